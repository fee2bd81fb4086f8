package normalizer

import (
	"strconv"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
)

// The helpers below read one field of a decoded JSON object. They never panic;
// absent keys, nulls and wrong types all report ok == false.

func getMap(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key].(map[string]any)
	return v, ok
}

func getString(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key].(string)
	return v, ok
}

// getValue returns any non-null value verbatim
func getValue(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// getNumber accepts JSON numbers and numeric strings
func getNumber(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// getE7 reads an integer micro-degree field
func getE7(m map[string]any, key string) (int64, bool) {
	f, ok := getNumber(m, key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// getCoordinates reads latitudeE7/longitudeE7 from a location object; both must be present.
func getCoordinates(loc map[string]any) (model.Coordinates, bool) {
	lat, okLat := getE7(loc, "latitudeE7")
	lon, okLon := getE7(loc, "longitudeE7")
	if !okLat || !okLon {
		return model.Coordinates{}, false
	}
	return model.CoordinatesFromE7(lat, lon), true
}
