package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2019-04-05T14:29:31Z", time.Date(2019, 4, 5, 14, 29, 31, 0, time.UTC)},
		{"2019-04-05T14:29:31.123Z", time.Date(2019, 4, 5, 14, 29, 31, 123e6, time.UTC)},
		{"2019-04-05T16:29:31+02:00", time.Date(2019, 4, 5, 14, 29, 31, 0, time.UTC)},
		{"2019-04-05T16:29:31.5+0200", time.Date(2019, 4, 5, 14, 29, 31, 5e8, time.UTC)},
		{"2019-04-05T14:29:31", time.Date(2019, 4, 5, 14, 29, 31, 0, time.UTC)},
		{"2019-04-05", time.Date(2019, 4, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := ParseTimestamp("05/04/2019")
	assert.Error(t, err)
}

func TestNewTiming(t *testing.T) {
	start := time.Date(2019, 4, 5, 14, 29, 31, 0, time.UTC)
	end := time.Date(2019, 4, 5, 23, 59, 45, 0, time.UTC)

	tm := NewTiming(start, end)

	assert.Equal(t, "2019-04-05", tm.StartDate)
	assert.Equal(t, "14:30:00", tm.StartTime)
	assert.Equal(t, "2019-04-05", tm.EndDate, "date comes from the unrounded instant")
	assert.Equal(t, "00:00:00", tm.EndTime)
	assert.Equal(t, "Friday", tm.StartWeekday)
	assert.Equal(t, "April", tm.StartMonth)
	assert.Equal(t, 2019, tm.StartYear)
	assert.Equal(t, 570.2, tm.DurationMinutes)
}

func TestNewTimingRoundsHalfMinuteToEven(t *testing.T) {
	day := func(h, m, s, ns int) time.Time { return time.Date(2019, 4, 5, h, m, s, ns, time.UTC) }
	tests := []struct {
		start time.Time
		want  string
	}{
		{day(10, 0, 30, 0), "10:00:00"},
		{day(10, 1, 30, 0), "10:02:00"},
		{day(10, 0, 30, 1), "10:01:00"},
		{day(10, 0, 29, 999999999), "10:00:00"},
		{day(23, 59, 30, 0), "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.start.Format(time.RFC3339Nano), func(t *testing.T) {
			tm := NewTiming(tt.start, tt.start)
			assert.Equal(t, tt.want, tm.StartTime)
			assert.Equal(t, tt.want, tm.EndTime)
			assert.Equal(t, "2019-04-05", tm.StartDate)
		})
	}
}

func TestDurationMinutesRounding(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		span time.Duration
		want float64
	}{
		{"zero", 0, 0},
		{"ninety seconds", 90 * time.Second, 1.5},
		{"one decimal", 100 * time.Second, 1.7},
		{"tie below one minute goes to even", 15 * time.Second, 0.2},
		{"tie goes down to even", 75 * time.Second, 1.2},
		{"tie after two minutes goes to even", 135 * time.Second, 2.2},
		{"tie goes up to even", 45 * time.Second, 0.8},
		{"multi-day", 2*24*time.Hour + 3*time.Hour + 20*time.Minute + 30*time.Second, 3080.5},
		{"negative", -30 * time.Minute, -30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := NewTiming(base, base.Add(tt.span))
			assert.Equal(t, tt.want, tm.DurationMinutes)
			assert.Equal(t, tt.span, tm.Duration)
		})
	}
}

func TestTimingKeepsRecordedOffset(t *testing.T) {
	zone := time.FixedZone("", -5*3600)
	start := time.Date(2021, 12, 31, 22, 0, 0, 0, zone)

	tm := NewTiming(start, start.Add(3*time.Hour))

	assert.Equal(t, "2021-12-31", tm.StartDate)
	assert.Equal(t, "2022-01-01", tm.EndDate)
	assert.Equal(t, 2021, tm.StartYear)
	assert.Equal(t, "December", tm.StartMonth)
}
