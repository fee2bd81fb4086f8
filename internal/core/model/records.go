package model

import (
	"sort"
	"time"
)

const (
	ActivityTypeVisit   = "place visit"
	ActivityTypeJourney = "journey activity segment"

	HomeLabel = "Home"
)

// VisitColumns is the column order of the visit table. Downstream consumers rely on it.
var VisitColumns = []string{
	"activity type", "place visit importance", "placeId",
	"location name", "Home", "Work", "country", "location latitude", "location longitude", "location address",
	"start timestamp", "end timestamp", "visit start year", "visit start month", "visit start day of week",
	"visit start date", "visit start time", "visit end date", "visit end time",
	"visit duration", "visit duration (in minutes)",
	"location confidence", "visit confidence",
}

// JourneyColumns is the column order of the journey table.
var JourneyColumns = []string{
	"activity type", "journey transport activity mode type", "journey distance (meters)",
	"journey start location latitude", "journey start location longitude",
	"journey end location latitude", "journey end location longitude",
	"start timestamp", "end timestamp", "journey start date", "journey start time",
	"journey start year", "journey start month", "journey start day of week",
	"journey end date", "journey end time",
	"journey duration", "journey duration (in minutes)",
}

// Coordinates is a decoded latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// CoordinatesFromE7 decodes integer micro-degrees (degrees × 10^7).
func CoordinatesFromE7(latE7, lonE7 int64) Coordinates {
	return Coordinates{
		Latitude:  float64(latE7) / 1e7,
		Longitude: float64(lonE7) / 1e7,
	}
}

// Timing holds the start/end instants and the calendar columns derived from them.
type Timing struct {
	Start           time.Time
	End             time.Time
	Duration        time.Duration
	DurationMinutes float64

	StartYear    int
	StartMonth   string
	StartWeekday string
	StartDate    string
	StartTime    string
	EndDate      string
	EndTime      string
}

// VisitRecord is one row of the visit table.
type VisitRecord struct {
	Importance string
	PlaceID    string
	Name       string
	Home       bool
	Work       bool
	Country    string
	Location   *Coordinates
	Address    string

	Timing

	LocationConfidence any
	VisitConfidence    any
}

// Row returns the cell values in VisitColumns order. Missing values are nil.
func (v VisitRecord) Row() []any {
	var lat, lon any
	if v.Location != nil {
		lat, lon = v.Location.Latitude, v.Location.Longitude
	}
	return []any{
		ActivityTypeVisit, v.Importance, v.PlaceID,
		v.Name, yesNo(v.Home), yesNo(v.Work), v.Country, lat, lon, v.Address,
		v.Start, v.End, v.StartYear, v.StartMonth, v.StartWeekday,
		v.StartDate, v.StartTime, v.EndDate, v.EndTime,
		v.Duration.String(), v.DurationMinutes,
		v.LocationConfidence, v.VisitConfidence,
	}
}

// JourneyRecord is one row of the journey table.
type JourneyRecord struct {
	Mode           TransportMode
	DistanceMeters *float64
	StartLocation  Coordinates
	EndLocation    Coordinates

	Timing
}

// Row returns the cell values in JourneyColumns order. Missing values are nil.
func (j JourneyRecord) Row() []any {
	var distance any
	if j.DistanceMeters != nil {
		distance = *j.DistanceMeters
	}
	return []any{
		ActivityTypeJourney, j.Mode.String(), distance,
		j.StartLocation.Latitude, j.StartLocation.Longitude,
		j.EndLocation.Latitude, j.EndLocation.Longitude,
		j.Start, j.End, j.StartDate, j.StartTime,
		j.StartYear, j.StartMonth, j.StartWeekday,
		j.EndDate, j.EndTime,
		j.Duration.String(), j.DurationMinutes,
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Table is a column-ordered view of records used by formatters and the query store.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.Rows)
}

// VisitTable is the output of visit normalization.
type VisitTable []VisitRecord

// Table returns the column-ordered view
func (vt VisitTable) Table() Table {
	rows := make([][]any, len(vt))
	for i, v := range vt {
		rows[i] = v.Row()
	}
	return Table{Name: "visits", Columns: VisitColumns, Rows: rows}
}

// Years returns the distinct start years, ascending
func (vt VisitTable) Years() []int {
	seen := make(map[int]struct{})
	for _, v := range vt {
		seen[v.StartYear] = struct{}{}
	}
	return sortedYears(seen)
}

// FilterYears keeps the visits starting in one of the given years. No years keeps everything.
func (vt VisitTable) FilterYears(years []int) VisitTable {
	if len(years) == 0 {
		return vt
	}
	want := yearSet(years)
	var out VisitTable
	for _, v := range vt {
		if _, ok := want[v.StartYear]; ok {
			out = append(out, v)
		}
	}
	return out
}

// JourneyTable is the output of journey normalization.
type JourneyTable []JourneyRecord

// Table returns the column-ordered view
func (jt JourneyTable) Table() Table {
	rows := make([][]any, len(jt))
	for i, j := range jt {
		rows[i] = j.Row()
	}
	return Table{Name: "journeys", Columns: JourneyColumns, Rows: rows}
}

// Years returns the distinct start years, ascending
func (jt JourneyTable) Years() []int {
	seen := make(map[int]struct{})
	for _, j := range jt {
		seen[j.StartYear] = struct{}{}
	}
	return sortedYears(seen)
}

// FilterYears keeps the journeys starting in one of the given years. No years keeps everything.
func (jt JourneyTable) FilterYears(years []int) JourneyTable {
	if len(years) == 0 {
		return jt
	}
	want := yearSet(years)
	var out JourneyTable
	for _, j := range jt {
		if _, ok := want[j.StartYear]; ok {
			out = append(out, j)
		}
	}
	return out
}

func yearSet(years []int) map[int]struct{} {
	set := make(map[int]struct{}, len(years))
	for _, y := range years {
		set[y] = struct{}{}
	}
	return set
}

func sortedYears(seen map[int]struct{}) []int {
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
