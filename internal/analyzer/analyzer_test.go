package analyzer

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/config"
	"github.com/penwyp/go-timeline-chat/internal/data/parser"
	"github.com/penwyp/go-timeline-chat/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "single hour", input: "1h", expected: time.Hour},
		{name: "multiple days", input: "7d", expected: 7 * 24 * time.Hour},
		{name: "multiple weeks", input: "2w", expected: 2 * 7 * 24 * time.Hour},
		{name: "multiple months", input: "3m", expected: 3 * 30 * 24 * time.Hour},
		{name: "single year", input: "1y", expected: 365 * 24 * time.Hour},
		{name: "days and hours", input: "1d12h", expected: 36 * time.Hour},
		{
			name:     "complex combination",
			input:    "1y2m3w4d5h",
			expected: 365*24*time.Hour + 2*30*24*time.Hour + 3*7*24*time.Hour + 4*24*time.Hour + 5*time.Hour,
		},
		{name: "invalid format", input: "invalid", wantErr: true},
		{name: "invalid unit", input: "5x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration(tt.input, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, now.Add(-tt.expected), result)
		})
	}

	zero, err := parseDuration("", now)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func generatedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	g := fixtures.NewExportGenerator(dir, 2024)
	_, err := g.GenerateMonth(2019, time.April, 3, 2)
	require.NoError(t, err)
	_, err = g.GenerateMonth(2020, time.May, 2, 2)
	require.NoError(t, err)
	return dir
}

func TestAnalyzerConfigDefaults(t *testing.T) {
	cfg := &Config{DataDir: t.TempDir()}
	_, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), cfg.Concurrency)
	assert.Equal(t, TableAll, cfg.Table)
}

func TestAnalyzerConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad table", Config{Table: "places"}},
		{"bad timezone", Config{Timezone: "Mars/Olympus"}},
		{"bad country rule", Config{Countries: []config.CountryRule{{Pattern: "(", Name: "x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Home = "A2215"
	cfg.Timezone = "UTC"

	ac := FromConfig(cfg)
	assert.Equal(t, "A2215", ac.Home)
	assert.Equal(t, "UTC", ac.Timezone)
	assert.Equal(t, config.PolicyDrop, ac.InvalidJourneys)
}

func TestLoad(t *testing.T) {
	a, err := New(&Config{DataDir: generatedDir(t)})
	require.NoError(t, err)

	ds, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Files, 2)
	assert.Len(t, ds.Visits, 5)
	assert.Len(t, ds.Journeys, 4)
	assert.Equal(t, []int{2019, 2020}, ds.Years())
	assert.Len(t, ds.Fingerprint, 32)
	assert.Equal(t, 9, ds.Report.Segments)

	tables := ds.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "visits", tables[0].Name)
	assert.Equal(t, "journeys", tables[1].Name)
}

func TestLoadFailsOnMissingDir(t *testing.T) {
	a, err := New(&Config{DataDir: "/nonexistent/takeout"})
	require.NoError(t, err)
	_, err = a.Load(context.Background())
	assert.Error(t, err)
}

func TestLoadMissingTimelinePolicy(t *testing.T) {
	fsys := fstest.MapFS{
		"a.json": {Data: []byte(`{"timelineObjects":[]}`)},
		"b.json": {Data: []byte(`{"other":1}`)},
	}

	a, err := New(&Config{FS: fsys})
	require.NoError(t, err)
	_, err = a.Load(context.Background())
	assert.ErrorIs(t, err, parser.ErrMissingTimeline)

	a, err = New(&Config{FS: fsys, MissingTimeline: config.PolicySkip})
	require.NoError(t, err)
	ds, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.json"}, ds.Skipped)
}

func TestSelect(t *testing.T) {
	cfg := &Config{DataDir: generatedDir(t), Table: TableVisits, Years: []int{2020}}
	a, err := New(cfg)
	require.NoError(t, err)
	ds, err := a.Load(context.Background())
	require.NoError(t, err)

	in, err := a.Select(ds)
	require.NoError(t, err)
	require.Len(t, in.Tables, 1)
	assert.Equal(t, "visits", in.Tables[0].Name)
	assert.Equal(t, 2, in.Tables[0].Len())
	assert.Len(t, in.Journeys, 2)
	assert.Equal(t, 2, in.Files)

	cfg.Table, cfg.Years, cfg.Limit = TableAll, nil, 1
	in, err = a.Select(ds)
	require.NoError(t, err)
	require.Len(t, in.Tables, 2)
	assert.Equal(t, 1, in.Tables[0].Len())
	assert.Equal(t, 1, in.Tables[1].Len())
	assert.Len(t, in.Visits, 5, "the limit only applies to printed rows")

	cfg.Limit, cfg.Since = 0, "1d"
	in, err = a.Select(ds)
	require.NoError(t, err)
	assert.Empty(t, in.Visits)

	cfg.Since = "soon"
	_, err = a.Select(ds)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	for _, format := range []string{"table", "csv", "json", "summary"} {
		t.Run(format, func(t *testing.T) {
			a, err := New(&Config{DataDir: generatedDir(t), OutputFormat: format, Table: TableJourneys})
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, a.Run(context.Background(), &buf))
			assert.NotEmpty(t, strings.TrimSpace(buf.String()))
		})
	}

	a, err := New(&Config{DataDir: t.TempDir(), OutputFormat: "xml"})
	require.NoError(t, err)
	assert.Error(t, a.Run(context.Background(), &bytes.Buffer{}))
}
