package analyzer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/config"
	"github.com/penwyp/go-timeline-chat/internal/core/cache"
	"github.com/penwyp/go-timeline-chat/internal/core/geo"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/data/loader"
	"github.com/penwyp/go-timeline-chat/internal/data/normalizer"
	"github.com/penwyp/go-timeline-chat/internal/presentation/formatter"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

const (
	TableVisits   = "visits"
	TableJourneys = "journeys"
	TableAll      = "all"
)

type Config struct {
	DataDir string
	FS      fs.FS // used instead of DataDir when set

	Home            string
	Work            string
	Timezone        string
	MissingTimeline string
	InvalidVisits   string
	InvalidJourneys string
	Concurrency     int
	Countries       []config.CountryRule

	// Selection and output
	Table        string
	OutputFormat string
	Years        []int
	Since        string // relative window such as 30d or 1y
	Limit        int
}

// FromConfig copies the pipeline settings of a loaded configuration.
func FromConfig(cfg *config.Config) *Config {
	return &Config{
		DataDir:         cfg.DataDir,
		Home:            cfg.Home,
		Work:            cfg.Work,
		Timezone:        cfg.Timezone,
		MissingTimeline: cfg.MissingTimeline,
		InvalidVisits:   cfg.InvalidVisits,
		InvalidJourneys: cfg.InvalidJourneys,
		Concurrency:     cfg.Concurrency,
		Countries:       cfg.Countries,
	}
}

// Dataset is the result of one complete load and normalization.
type Dataset struct {
	Files       []string
	Skipped     []string
	Visits      model.VisitTable
	Journeys    model.JourneyTable
	Report      normalizer.Report
	Fingerprint string
	LoadedAt    time.Time
}

// Years returns every start year present in either table, ascending.
func (d *Dataset) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, list := range [][]int{d.Visits.Years(), d.Journeys.Years()} {
		for _, y := range list {
			if !seen[y] {
				seen[y] = true
				years = append(years, y)
			}
		}
	}
	sort.Ints(years)
	return years
}

// Tables returns both tables in the order they are loaded into the query store.
func (d *Dataset) Tables() []model.Table {
	return []model.Table{d.Visits.Table(), d.Journeys.Table()}
}

type Analyzer struct {
	config     *Config
	loader     *loader.Loader
	normalizer *normalizer.Normalizer
}

func New(cfg *Config) (*Analyzer, error) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Table == "" {
		cfg.Table = TableAll
	}
	switch cfg.Table {
	case TableVisits, TableJourneys, TableAll:
	default:
		return nil, fmt.Errorf("unsupported table: %s", cfg.Table)
	}

	zones, err := geo.NewZoneResolver(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	rules := make([]normalizer.CountryRule, 0, len(cfg.Countries))
	for _, c := range cfg.Countries {
		rule, err := normalizer.NewCountryRule(c.Pattern, c.Name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return &Analyzer{
		config: cfg,
		loader: loader.New(loader.Options{
			Root:            cfg.DataDir,
			FS:              cfg.FS,
			Concurrency:     cfg.Concurrency,
			MissingTimeline: loader.Policy(cfg.MissingTimeline),
			Cache:           cache.NewMemoryCache(),
		}),
		normalizer: normalizer.New(normalizer.Options{
			Home:            cfg.Home,
			Work:            cfg.Work,
			CountryRules:    rules,
			Zones:           zones,
			InvalidVisits:   normalizer.Policy(cfg.InvalidVisits),
			InvalidJourneys: normalizer.Policy(cfg.InvalidJourneys),
		}),
	}, nil
}

// Load runs the full batch: read every export file, then build both tables.
func (a *Analyzer) Load(ctx context.Context) (*Dataset, error) {
	stats := NewPhaseStats()
	util.LogInfo("Starting analysis of location history...")

	stop := stats.Track("load")
	loaded, err := a.loader.Load(ctx)
	stop()
	if err != nil {
		return nil, err
	}
	util.LogDebug(fmt.Sprintf("Phase 1 - Load duration: %v, %d files, %d segments",
		stats.Last(), len(loaded.Files), len(loaded.Segments)))

	stop = stats.Track("normalize")
	result, err := a.normalizer.Run(ctx, loaded.Segments)
	stop()
	if err != nil {
		return nil, err
	}
	util.LogDebug(fmt.Sprintf("Phase 2 - Normalize duration: %v, %d visits, %d journeys",
		stats.Last(), len(result.Visits), len(result.Journeys)))

	stats.PrintFinalStats()
	return &Dataset{
		Files:       loaded.Files,
		Skipped:     loaded.Skipped,
		Visits:      result.Visits,
		Journeys:    result.Journeys,
		Report:      result.Report,
		Fingerprint: loaded.Fingerprint,
		LoadedAt:    time.Now(),
	}, nil
}

// Select applies the configured table, year, since and limit selection.
func (a *Analyzer) Select(ds *Dataset) (*formatter.Input, error) {
	visits := ds.Visits.FilterYears(a.config.Years)
	journeys := ds.Journeys.FilterYears(a.config.Years)

	if a.config.Since != "" {
		from, err := parseDuration(a.config.Since, time.Now())
		if err != nil {
			return nil, err
		}
		visits = visitsSince(visits, from)
		journeys = journeysSince(journeys, from)
	}

	in := &formatter.Input{
		Visits:   visits,
		Journeys: journeys,
		Report:   &ds.Report,
		Files:    len(ds.Files),
		Years:    a.config.Years,
	}
	if a.config.Table != TableJourneys {
		in.Tables = append(in.Tables, limitRows(visits.Table(), a.config.Limit))
	}
	if a.config.Table != TableVisits {
		in.Tables = append(in.Tables, limitRows(journeys.Table(), a.config.Limit))
	}
	return in, nil
}

// Run loads, selects and writes the tables in the configured output format.
func (a *Analyzer) Run(ctx context.Context, w io.Writer) error {
	f, err := formatter.New(a.config.OutputFormat)
	if err != nil {
		return err
	}
	ds, err := a.Load(ctx)
	if err != nil {
		return err
	}
	in, err := a.Select(ds)
	if err != nil {
		return err
	}

	outputStart := time.Now()
	err = f.Format(w, in)
	util.LogDebug(fmt.Sprintf("Phase 3 - Formatting and output duration: %v", time.Since(outputStart)))
	return err
}

func visitsSince(visits model.VisitTable, from time.Time) model.VisitTable {
	var out model.VisitTable
	for _, v := range visits {
		if !v.Start.Before(from) {
			out = append(out, v)
		}
	}
	return out
}

func journeysSince(journeys model.JourneyTable, from time.Time) model.JourneyTable {
	var out model.JourneyTable
	for _, j := range journeys {
		if !j.Start.Before(from) {
			out = append(out, j)
		}
	}
	return out
}

func limitRows(t model.Table, limit int) model.Table {
	if limit > 0 && len(t.Rows) > limit {
		util.LogDebug(fmt.Sprintf("Applying result limit to %s: %d -> %d", t.Name, len(t.Rows), limit))
		t.Rows = t.Rows[:limit]
	}
	return t
}

var durationPattern = regexp.MustCompile(`(\d+)([hymwd])`)

// parseDuration returns now minus a window such as "12h", "7d", "2w", "3m" or "1y".
// Months count as 30 days and years as 365.
func parseDuration(durationStr string, now time.Time) (time.Time, error) {
	if durationStr == "" {
		return time.Time{}, nil
	}

	matches := durationPattern.FindAllStringSubmatch(durationStr, -1)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid duration format: %s", durationStr)
	}

	var total time.Duration
	for _, match := range matches {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid number in duration: %s", match[1])
		}

		switch match[2] {
		case "h":
			total += time.Duration(value) * time.Hour
		case "d":
			total += time.Duration(value) * 24 * time.Hour
		case "w":
			total += time.Duration(value) * 7 * 24 * time.Hour
		case "m":
			total += time.Duration(value) * 30 * 24 * time.Hour
		case "y":
			total += time.Duration(value) * 365 * 24 * time.Hour
		}
	}

	return now.Add(-total), nil
}
