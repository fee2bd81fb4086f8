package mapview

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVisits() model.VisitTable {
	at := func(lat, lon float64) *model.Coordinates { return &model.Coordinates{Latitude: lat, Longitude: lon} }
	return model.VisitTable{
		{Name: "Home", Location: at(51.36, -0.19), Timing: model.Timing{StartYear: 2019, StartDate: "2019-01-02"}},
		{Name: "Cafe", Timing: model.Timing{StartYear: 2019}},
		{Name: "Museum", Location: at(41.40, 2.17), Timing: model.Timing{StartYear: 2020, StartDate: "2020-05-01"}},
		{Name: "Beach", Location: at(-33.89, 151.27), Timing: model.Timing{StartYear: 2021}},
	}
}

func TestPoints(t *testing.T) {
	visits := sampleVisits()

	points := Points(visits, []int{2019, 2020})
	require.Len(t, points, 2, "missing coordinates and unselected years are excluded")
	assert.Equal(t, 51.36, points[0].Lat)
	assert.Equal(t, "Museum", points[1].Name)

	assert.Empty(t, Points(visits, nil))
	assert.Len(t, Points(visits, visits.Years()), 3)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Points(sampleVisits(), []int{2019})))
	assert.Equal(t, "LAT,LON\n51.36,-0.19\n", buf.String())
}

func TestGeoJSON(t *testing.T) {
	data, err := GeoJSON(Points(sampleVisits(), []int{2020}))
	require.NoError(t, err)

	var fc map[string]any
	require.NoError(t, sonic.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc["type"])
	features := fc["features"].([]any)
	require.Len(t, features, 1)

	geom := features[0].(map[string]any)["geometry"].(map[string]any)
	coords := geom["coordinates"].([]any)
	assert.Equal(t, 2.17, coords[0], "GeoJSON puts longitude first")
	assert.Equal(t, 41.40, coords[1])

	empty, err := GeoJSON(nil)
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"features":[]`)
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	points := Points(sampleVisits(), []int{2019, 2020, 2021})
	require.NoError(t, RenderPNG(&buf, points, RenderOptions{Width: 320, Height: 200}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestRenderPNGSinglePointAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, Points(sampleVisits(), []int{2021}), RenderOptions{Width: 100, Height: 100}))

	buf.Reset()
	require.NoError(t, RenderPNG(&buf, nil, RenderOptions{Width: 100, Height: 100}))

	assert.Error(t, RenderPNG(&buf, nil, RenderOptions{Width: 10, Height: 10}))
}
