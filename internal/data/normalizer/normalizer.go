// Package normalizer reshapes raw timeline segments into the visit and journey tables.
package normalizer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// Policy decides what happens to a record that fails validation.
type Policy string

const (
	PolicyFail Policy = "fail"
	PolicyDrop Policy = "drop"
)

// Options configures a Normalizer
type Options struct {
	Home string // reference name marking the home location; empty matches nothing
	Work string // reference name marking the work location; empty matches nothing

	CountryRules []CountryRule // tried before the built-in rules
	Zones        ZoneResolver  // nil keeps the recorded offsets

	InvalidVisits   Policy // default fail
	InvalidJourneys Policy // default drop
}

// Report counts what happened to every segment of a run.
type Report struct {
	Segments         int
	PlaceVisits      int
	ActivitySegments int
	Untagged         int

	Visits                int
	DroppedMissingPlaceID int
	InvalidVisits         map[string]int // dropped visits by field

	Journeys         int
	InvalidJourneys  map[string]int // dropped journeys by field
	FilteredJourneys int
	Unrecognized     map[string]int // transport tags outside the vocabulary
}

// UnrecognizedTags returns the unrecognized transport tags in name order
func (r *Report) UnrecognizedTags() []string {
	tags := make([]string, 0, len(r.Unrecognized))
	for tag := range r.Unrecognized {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Result holds both tables of one run.
type Result struct {
	Visits   model.VisitTable
	Journeys model.JourneyTable
	Report   Report
}

// Normalizer turns segments into records. It holds no per-run state.
type Normalizer struct {
	opts      Options
	countries *CountryNormalizer
	zones     ZoneResolver
}

// New creates a Normalizer
func New(opts Options) *Normalizer {
	if opts.InvalidVisits == "" {
		opts.InvalidVisits = PolicyFail
	}
	if opts.InvalidJourneys == "" {
		opts.InvalidJourneys = PolicyDrop
	}
	zones := opts.Zones
	if zones == nil {
		zones = keepZone{}
	}
	return &Normalizer{
		opts:      opts,
		countries: NewCountryNormalizer(opts.CountryRules...),
		zones:     zones,
	}
}

type visitReport struct {
	seen           int
	droppedNoPlace int
	invalid        map[string]int
}

type journeyReport struct {
	seen         int
	invalid      map[string]int
	filtered     int
	unrecognized map[string]int
}

// Run normalizes visits and journeys concurrently. The two pipelines share nothing
// but the read-only segments.
func (n *Normalizer) Run(ctx context.Context, segments []model.Segment) (*Result, error) {
	start := time.Now()
	var (
		wg       sync.WaitGroup
		visits   model.VisitTable
		journeys model.JourneyTable
		vr       visitReport
		jr       journeyReport
		vErr     error
		jErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		visits, vr, vErr = n.visits(ctx, segments)
	}()
	go func() {
		defer wg.Done()
		journeys, jr, jErr = n.journeys(ctx, segments)
	}()
	wg.Wait()

	if err := errors.Join(vErr, jErr); err != nil {
		return nil, err
	}

	report := Report{
		Segments:              len(segments),
		PlaceVisits:           vr.seen,
		ActivitySegments:      jr.seen,
		Visits:                len(visits),
		DroppedMissingPlaceID: vr.droppedNoPlace,
		InvalidVisits:         vr.invalid,
		Journeys:              len(journeys),
		InvalidJourneys:       jr.invalid,
		FilteredJourneys:      jr.filtered,
		Unrecognized:          jr.unrecognized,
	}
	for _, seg := range segments {
		_, pv := seg.PlaceVisit()
		_, as := seg.ActivitySegment()
		if !pv && !as {
			report.Untagged++
		}
	}

	util.LogInfo("Normalization complete",
		util.Int("visits", report.Visits),
		util.Int("journeys", report.Journeys),
		util.Int("dropped_missing_place_id", report.DroppedMissingPlaceID),
		util.Int("filtered_journeys", report.FilteredJourneys),
		util.Duration("duration", time.Since(start)))

	return &Result{Visits: visits, Journeys: journeys, Report: report}, nil
}

// NormalizeVisits builds the visit table only.
func (n *Normalizer) NormalizeVisits(ctx context.Context, segments []model.Segment) (model.VisitTable, error) {
	visits, _, err := n.visits(ctx, segments)
	return visits, err
}

// NormalizeJourneys builds the journey table only.
func (n *Normalizer) NormalizeJourneys(ctx context.Context, segments []model.Segment) (model.JourneyTable, error) {
	journeys, _, err := n.journeys(ctx, segments)
	return journeys, err
}

func (n *Normalizer) visits(ctx context.Context, segments []model.Segment) (model.VisitTable, visitReport, error) {
	rep := visitReport{invalid: make(map[string]int)}
	var out model.VisitTable

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		pv, ok := seg.PlaceVisit()
		if !ok {
			continue
		}
		rep.seen++

		rec, outcome, ferr := n.normalizeVisit(pv)
		switch outcome {
		case visitNoPlaceID:
			rep.droppedNoPlace++
			util.LogDebugf("Dropping visit %d from %s: no placeId", seg.Index, seg.Source)
		case visitInvalid:
			verr := validationError(KindVisit, seg, ferr)
			if n.opts.InvalidVisits == PolicyFail {
				return nil, rep, verr
			}
			rep.invalid[ferr.field]++
			util.LogDebug("Dropping invalid visit", util.Err(verr))
		default:
			out = append(out, rec)
		}
	}
	return out, rep, nil
}

func (n *Normalizer) journeys(ctx context.Context, segments []model.Segment) (model.JourneyTable, journeyReport, error) {
	rep := journeyReport{
		invalid:      make(map[string]int),
		unrecognized: make(map[string]int),
	}
	var out model.JourneyTable

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		as, ok := seg.ActivitySegment()
		if !ok {
			continue
		}
		rep.seen++

		rec, ferr := n.normalizeJourney(as)
		if ferr != nil {
			verr := validationError(KindJourney, seg, ferr)
			if n.opts.InvalidJourneys == PolicyFail {
				return nil, rep, verr
			}
			rep.invalid[ferr.field]++
			util.LogDebug("Dropping invalid journey", util.Err(verr))
			continue
		}

		if !rec.Mode.Known() {
			if rep.unrecognized[rec.Mode.Raw()] == 0 {
				util.LogWarn("Unrecognized transport mode", util.String("tag", rec.Mode.Raw()))
			}
			rep.unrecognized[rec.Mode.Raw()]++
		}

		if !keepJourney(rec) {
			rep.filtered++
			continue
		}
		out = append(out, rec)
	}
	return out, rep, nil
}

func validationError(kind string, seg model.Segment, ferr *fieldError) *ValidationError {
	return &ValidationError{
		Kind:   kind,
		Index:  seg.Index,
		Source: seg.Source,
		Field:  ferr.field,
		Err:    ferr.err,
	}
}
