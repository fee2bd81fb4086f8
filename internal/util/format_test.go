package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected string
	}{
		{
			name:     "zero",
			input:    0,
			expected: "0",
		},
		{
			name:     "hundreds",
			input:    999,
			expected: "999",
		},
		{
			name:     "exactly 1000",
			input:    1000,
			expected: "1,000",
		},
		{
			name:     "millions",
			input:    2500000,
			expected: "2,500,000",
		},
		{
			name:     "negative",
			input:    -12345,
			expected: "-12,345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatNumber(tt.input))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{"zero", 0, "0m"},
		{"minutes only", 45 * time.Minute, "45m"},
		{"hours and minutes", 26*time.Hour + 5*time.Minute, "26h 5m"},
		{"negative", -90 * time.Minute, "-1h 30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.input))
		})
	}
}

func TestFormatOptionalFloat(t *testing.T) {
	v := 12.3456789
	assert.Equal(t, "12.3456789", FormatOptionalFloat(&v))
	assert.Equal(t, "", FormatOptionalFloat(nil))

	whole := 120.0
	assert.Equal(t, "120", FormatOptionalFloat(&whole))
}

func TestPadAndTruncate(t *testing.T) {
	assert.Equal(t, "ab  ", PadString("ab", 4, true))
	assert.Equal(t, "  ab", PadString("ab", 4, false))
	assert.Equal(t, "abcdef", PadString("abcdef", 4, true))

	// Greek letters are single width, CJK are double width
	assert.Equal(t, 6, GetDisplayWidth("Ελλάδα"))
	assert.Equal(t, 4, GetDisplayWidth("東京"))

	assert.Equal(t, "short", TruncateString("short", 10))
	truncated := TruncateString("St Helier Hospital", 8)
	assert.LessOrEqual(t, GetDisplayWidth(truncated), 8)
	assert.Contains(t, truncated, "…")
}
