// Package mapview turns visits into map points and renders them as CSV, GeoJSON or a PNG plot.
package mapview

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// Point is one visit location
type Point struct {
	Lat   float64
	Lon   float64
	Name  string
	Year  int
	Start string
}

// Points returns the locations of visits that started in one of the selected years.
// Visits without coordinates are left out. An empty selection selects nothing.
func Points(visits model.VisitTable, years []int) []Point {
	selected := make(map[int]bool, len(years))
	for _, y := range years {
		selected[y] = true
	}

	var points []Point
	for _, v := range visits {
		if !selected[v.StartYear] || v.Location == nil {
			continue
		}
		points = append(points, Point{
			Lat:   v.Location.Latitude,
			Lon:   v.Location.Longitude,
			Name:  v.Name,
			Year:  v.StartYear,
			Start: v.StartDate,
		})
	}
	return points
}

// WriteCSV writes a LAT,LON table
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"LAT", "LON"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{util.FormatFloat(p.Lat), util.FormatFloat(p.Lon)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// GeoJSON encodes the points as a FeatureCollection of Point features.
func GeoJSON(points []Point) ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(points))}
	for _, p := range points {
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "Point", Coordinates: [2]float64{p.Lon, p.Lat}},
			Properties: map[string]any{
				"name":  p.Name,
				"year":  p.Year,
				"start": p.Start,
			},
		})
	}
	data, err := sonic.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("encoding geojson: %w", err)
	}
	return data, nil
}

// WriteGeoJSON writes the FeatureCollection followed by a newline
func WriteGeoJSON(w io.Writer, points []Point) error {
	data, err := GeoJSON(points)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.Write(data)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}
