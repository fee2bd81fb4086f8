package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/bytedance/sonic"
)

// Export is one monthly Semantic Location History file
type Export struct {
	TimelineObjects []TimelineObject `json:"timelineObjects"`
}

// TimelineObject carries exactly one of its tags
type TimelineObject struct {
	PlaceVisit      *PlaceVisit      `json:"placeVisit,omitempty"`
	ActivitySegment *ActivitySegment `json:"activitySegment,omitempty"`
}

type PlaceVisit struct {
	Location             Location `json:"location"`
	Duration             Duration `json:"duration"`
	PlaceConfidence      string   `json:"placeConfidence"`
	VisitConfidence      int      `json:"visitConfidence"`
	PlaceVisitImportance string   `json:"placeVisitImportance"`
}

type Location struct {
	LatitudeE7         int64   `json:"latitudeE7"`
	LongitudeE7        int64   `json:"longitudeE7"`
	PlaceID            string  `json:"placeId,omitempty"`
	Address            string  `json:"address,omitempty"`
	Name               string  `json:"name,omitempty"`
	LocationConfidence float64 `json:"locationConfidence,omitempty"`
}

type Point struct {
	LatitudeE7  int64 `json:"latitudeE7"`
	LongitudeE7 int64 `json:"longitudeE7"`
}

type Duration struct {
	StartTimestamp string `json:"startTimestamp"`
	EndTimestamp   string `json:"endTimestamp"`
}

type ActivitySegment struct {
	StartLocation Point    `json:"startLocation"`
	EndLocation   Point    `json:"endLocation"`
	Duration      Duration `json:"duration"`
	Distance      int      `json:"distance,omitempty"`
	ActivityType  string   `json:"activityType"`
	Confidence    string   `json:"confidence"`
}

var activityTypes = []string{
	"WALKING", "IN_PASSENGER_VEHICLE", "IN_BUS", "CYCLING", "IN_TRAIN", "IN_SUBWAY",
}

// ExportGenerator writes fake but well-formed location history exports.
// The same seed always produces the same files.
type ExportGenerator struct {
	baseDir string
	faker   *gofakeit.Faker
}

// NewExportGenerator creates a generator rooted at baseDir
func NewExportGenerator(baseDir string, seed uint64) *ExportGenerator {
	return &ExportGenerator{
		baseDir: baseDir,
		faker:   gofakeit.New(seed),
	}
}

// Month builds an export alternating place visits and journeys, starting on the
// first of the month at 08:00 UTC. Every record is valid.
func (g *ExportGenerator) Month(year int, month time.Month, visits, journeys int) *Export {
	at := time.Date(year, month, 1, 8, 0, 0, 0, time.UTC)
	export := &Export{TimelineObjects: []TimelineObject{}}

	lat, lon := g.faker.Latitude(), g.faker.Longitude()
	for i := 0; i < visits || i < journeys; i++ {
		if i < visits {
			stay := time.Duration(g.faker.Number(15, 240)) * time.Minute
			export.TimelineObjects = append(export.TimelineObjects, TimelineObject{PlaceVisit: g.placeVisit(lat, lon, at, at.Add(stay))})
			at = at.Add(stay)
		}
		if i < journeys {
			travel := time.Duration(g.faker.Number(5, 90)) * time.Minute
			nextLat := clamp(lat+g.faker.Float64Range(-0.2, 0.2), -89, 89)
			nextLon := clamp(lon+g.faker.Float64Range(-0.2, 0.2), -179, 179)
			export.TimelineObjects = append(export.TimelineObjects, TimelineObject{ActivitySegment: &ActivitySegment{
				StartLocation: point(lat, lon),
				EndLocation:   point(nextLat, nextLon),
				Duration:      span(at, at.Add(travel)),
				Distance:      g.faker.Number(100, 40000),
				ActivityType:  g.faker.RandomString(activityTypes),
				Confidence:    "HIGH",
			}})
			lat, lon = nextLat, nextLon
			at = at.Add(travel)
		}
	}
	return export
}

func (g *ExportGenerator) placeVisit(lat, lon float64, start, end time.Time) *PlaceVisit {
	name := g.faker.Company()
	p := point(lat, lon)
	return &PlaceVisit{
		Location: Location{
			LatitudeE7:         p.LatitudeE7,
			LongitudeE7:        p.LongitudeE7,
			PlaceID:            "ChIJ" + strings.ReplaceAll(g.faker.UUID(), "-", "")[:23],
			Address:            fmt.Sprintf("%s, %s, %s, %s", name, g.faker.Street(), g.faker.City(), g.faker.Country()),
			Name:               name,
			LocationConfidence: float64(g.faker.Number(50, 100)),
		},
		Duration:             span(start, end),
		PlaceConfidence:      "HIGH_CONFIDENCE",
		VisitConfidence:      g.faker.Number(50, 100),
		PlaceVisitImportance: "MAIN",
	}
}

// GenerateMonth writes an export under the Takeout layout <year>/<year>_<MONTH>.json
// and returns its path.
func (g *ExportGenerator) GenerateMonth(year int, month time.Month, visits, journeys int) (string, error) {
	dir := filepath.Join(g.baseDir, fmt.Sprint(year))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%s.json", year, strings.ToUpper(month.String())))
	return path, g.WriteExport(path, g.Month(year, month, visits, journeys))
}

// WriteExport encodes an export to filename
func (g *ExportGenerator) WriteExport(filename string, export *Export) error {
	data, err := sonic.Marshal(export)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// WriteRaw writes arbitrary content, for malformed-input tests
func (g *ExportGenerator) WriteRaw(name, content string) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte(content), 0644)
}

// CleanupTestData removes all generated test data
func (g *ExportGenerator) CleanupTestData() error {
	return os.RemoveAll(g.baseDir)
}

// GetBaseDir returns the base directory for test data
func (g *ExportGenerator) GetBaseDir() string {
	return g.baseDir
}

func point(lat, lon float64) Point {
	return Point{LatitudeE7: int64(lat * 1e7), LongitudeE7: int64(lon * 1e7)}
}

func span(start, end time.Time) Duration {
	return Duration{
		StartTimestamp: start.Format("2006-01-02T15:04:05.000Z"),
		EndTimestamp:   end.Format("2006-01-02T15:04:05.000Z"),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
