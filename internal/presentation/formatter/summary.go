package formatter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/util"
)

// Count is a labelled tally
type Count struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Value float64 `json:"value,omitempty"` // hours for places, kilometres for modes
}

// Summary aggregates both tables and the run report.
type Summary struct {
	Files     int    `json:"files"`
	Segments  int    `json:"segments"`
	FirstDate string `json:"first_date,omitempty"`
	LastDate  string `json:"last_date,omitempty"`

	Visits     int     `json:"visits"`
	VisitHours float64 `json:"visit_hours"`
	HomeVisits int     `json:"home_visits"`
	WorkVisits int     `json:"work_visits"`
	Countries  []Count `json:"countries"`
	TopPlaces  []Count `json:"top_places"`
	Journeys   int     `json:"journeys"`
	DistanceKm float64 `json:"distance_km"`
	Modes      []Count `json:"modes"`
	Years      []int   `json:"years"`

	DroppedMissingPlaceID int            `json:"dropped_missing_place_id"`
	InvalidVisits         map[string]int `json:"invalid_visits,omitempty"`
	InvalidJourneys       map[string]int `json:"invalid_journeys,omitempty"`
	FilteredJourneys      int            `json:"filtered_journeys"`
	Unrecognized          map[string]int `json:"unrecognized_modes,omitempty"`
}

const topPlaces = 5

// Summarize computes the summary of an Input
func Summarize(in *Input) Summary {
	s := Summary{
		Files:    in.Files,
		Visits:   len(in.Visits),
		Journeys: len(in.Journeys),
	}

	years := make(map[int]struct{})
	countries := make(map[string]*Count)
	places := make(map[string]*Count)
	var visitTime time.Duration

	for _, v := range in.Visits {
		visitTime += v.Duration
		if v.Home {
			s.HomeVisits++
		}
		if v.Work {
			s.WorkVisits++
		}
		tally(countries, v.Country, v.Duration.Hours())
		tally(places, v.Name, v.Duration.Hours())
		s.trackDate(v.StartDate)
		years[v.StartYear] = struct{}{}
	}
	s.VisitHours = round1(visitTime.Hours())

	modes := make(map[string]*Count)
	var meters float64
	for _, j := range in.Journeys {
		km := 0.0
		if j.DistanceMeters != nil {
			meters += *j.DistanceMeters
			km = *j.DistanceMeters / 1000
		}
		tally(modes, j.Mode.String(), km)
		s.trackDate(j.StartDate)
		years[j.StartYear] = struct{}{}
	}
	s.DistanceKm = round1(meters / 1000)

	s.Countries = sortedCounts(countries, 0)
	s.TopPlaces = sortedCounts(places, topPlaces)
	s.Modes = sortedCounts(modes, 0)
	for y := range years {
		s.Years = append(s.Years, y)
	}
	sort.Ints(s.Years)

	if r := in.Report; r != nil {
		s.Segments = r.Segments
		s.DroppedMissingPlaceID = r.DroppedMissingPlaceID
		s.InvalidVisits = r.InvalidVisits
		s.InvalidJourneys = r.InvalidJourneys
		s.FilteredJourneys = r.FilteredJourneys
		s.Unrecognized = r.Unrecognized
	}
	return s
}

func (s *Summary) trackDate(date string) {
	if date == "" {
		return
	}
	if s.FirstDate == "" || date < s.FirstDate {
		s.FirstDate = date
	}
	if date > s.LastDate {
		s.LastDate = date
	}
}

func tally(m map[string]*Count, label string, value float64) {
	c, ok := m[label]
	if !ok {
		c = &Count{Label: label}
		m[label] = c
	}
	c.Count++
	c.Value += value
}

// sortedCounts orders by count descending, then label; limit 0 keeps all
func sortedCounts(m map[string]*Count, limit int) []Count {
	out := make([]Count, 0, len(m))
	for _, c := range m {
		c.Value = round1(c.Value)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}

// SummaryFormatter prints the summary report.
type SummaryFormatter struct{}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{}
}

func (f *SummaryFormatter) Format(w io.Writer, in *Input) error {
	s := Summarize(in)
	line := strings.Repeat("=", 60)

	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "Location History Summary Report")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)

	if s.FirstDate != "" {
		if s.FirstDate == s.LastDate {
			fmt.Fprintf(w, "Date Range: %s\n", s.FirstDate)
		} else {
			fmt.Fprintf(w, "Date Range: %s to %s\n", s.FirstDate, s.LastDate)
		}
	}
	fmt.Fprintf(w, "Files: %s  Timeline objects: %s\n", util.FormatNumber(s.Files), util.FormatNumber(s.Segments))
	fmt.Fprintln(w)

	if s.Visits == 0 && s.Journeys == 0 {
		fmt.Fprintln(w, "No data to summarize")
		fmt.Fprintln(w)
		fmt.Fprintln(w, line)
		return nil
	}

	fmt.Fprintln(w, "Visits:")
	fmt.Fprintf(w, "  Total: %s\n", util.FormatNumber(s.Visits))
	fmt.Fprintf(w, "  Time spent: %s\n", util.FormatDuration(time.Duration(s.VisitHours*float64(time.Hour))))
	fmt.Fprintf(w, "  Home: %s  Work: %s\n", util.FormatNumber(s.HomeVisits), util.FormatNumber(s.WorkVisits))
	if len(s.TopPlaces) > 0 {
		fmt.Fprintln(w, "  Top places:")
		for _, c := range s.TopPlaces {
			fmt.Fprintf(w, "    %-30s %6s visits %8sh\n", util.TruncateString(c.Label, 30), util.FormatNumber(c.Count), util.FormatFloat(c.Value))
		}
	}
	fmt.Fprintln(w)

	if len(s.Countries) > 0 {
		fmt.Fprintln(w, "Countries:")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, c := range s.Countries {
			fmt.Fprintf(w, "  %-30s %6s visits\n", util.TruncateString(c.Label, 30), util.FormatNumber(c.Count))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Journeys:")
	fmt.Fprintf(w, "  Total: %s\n", util.FormatNumber(s.Journeys))
	fmt.Fprintf(w, "  Distance: %s km\n", util.FormatFloat(s.DistanceKm))
	for _, c := range s.Modes {
		fmt.Fprintf(w, "    %-28s %6s trips %10s km\n", c.Label, util.FormatNumber(c.Count), util.FormatFloat(c.Value))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Data Quality:")
	fmt.Fprintf(w, "  Visits without placeId: %s\n", util.FormatNumber(s.DroppedMissingPlaceID))
	writeCounts(w, "Invalid visits dropped", s.InvalidVisits)
	writeCounts(w, "Invalid journeys dropped", s.InvalidJourneys)
	fmt.Fprintf(w, "  Unclassified journeys without distance: %s\n", util.FormatNumber(s.FilteredJourneys))
	writeCounts(w, "Unrecognized transport modes", s.Unrecognized)

	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	return nil
}

func writeCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "  %s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "    %s: %s\n", k, util.FormatNumber(counts[k]))
	}
}
