package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for ISO-8601 timestamps. RFC3339Nano also accepts values without
// fractional seconds. Values without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 instant as found in timeline exports.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseEpochMillis parses the legacy *TimestampMs string form.
func parseEpochMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized epoch milliseconds %q", s)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// readInstant reads duration.<name>Timestamp, falling back to duration.<name>TimestampMs.
func readInstant(duration map[string]any, name string) (time.Time, *fieldError) {
	field := name + "Timestamp"
	if s, ok := getString(duration, field); ok {
		t, err := ParseTimestamp(s)
		if err != nil {
			return time.Time{}, invalid("duration."+field, err)
		}
		return t, nil
	}

	legacy := field + "Ms"
	if s, ok := getString(duration, legacy); ok {
		t, err := parseEpochMillis(s)
		if err != nil {
			return time.Time{}, invalid("duration."+legacy, err)
		}
		return t, nil
	}
	return time.Time{}, missing("duration." + field)
}

// readSpan reads the start and end instants of a record's duration object.
func readSpan(record map[string]any) (start, end time.Time, ferr *fieldError) {
	duration, ok := getMap(record, "duration")
	if !ok {
		return start, end, missing("duration")
	}
	if start, ferr = readInstant(duration, "start"); ferr != nil {
		return start, end, ferr
	}
	end, ferr = readInstant(duration, "end")
	return start, end, ferr
}
