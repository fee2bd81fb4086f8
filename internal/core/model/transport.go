package model

import "strings"

// ModeUnknown is the label Google uses when it could not classify a journey.
const ModeUnknown = "unknown"

var transportVocabulary = map[string]string{
	"in_bus":                "bus",
	"walking":               "walking",
	"in_passenger_vehicle":  "car",
	"in_subway":             "subway",
	"cycling":               "cycling",
	"in_train":              "train",
	"running":               "running",
	"unknown_activity_type": ModeUnknown,
	"flying":                "flying",
	"motorcycling":          "motorcycling",
	"in_ferry":              "ferry",
	"in_tram":               "tram",
	"boating":               "boating",
}

// TransportMode is either a known canonical label or an unrecognized raw tag.
type TransportMode struct {
	label string
	raw   string
}

// KnownMode returns a mode with a canonical label.
func KnownMode(label string) TransportMode {
	return TransportMode{label: label, raw: label}
}

// UnrecognizedMode returns a mode for a raw tag outside the vocabulary.
func UnrecognizedMode(raw string) TransportMode {
	return TransportMode{raw: raw}
}

// ParseTransportMode lower-cases a raw activityType tag and maps it to a label.
func ParseTransportMode(raw string) TransportMode {
	tag := strings.ToLower(raw)
	if label, ok := transportVocabulary[tag]; ok {
		return TransportMode{label: label, raw: tag}
	}
	return UnrecognizedMode(tag)
}

// Known reports whether the mode maps to a canonical label.
func (m TransportMode) Known() bool {
	return m.label != ""
}

// Label is the canonical label, empty for unrecognized modes.
func (m TransportMode) Label() string {
	return m.label
}

// Raw is the lower-cased tag as found in the export.
func (m TransportMode) Raw() string {
	return m.raw
}

// IsUnknown reports whether the export itself labelled the journey as unknown.
func (m TransportMode) IsUnknown() bool {
	return m.label == ModeUnknown
}

func (m TransportMode) String() string {
	if m.Known() {
		return m.label
	}
	return "unrecognized:" + m.raw
}

// TransportLabels returns the canonical labels in a stable order.
func TransportLabels() []string {
	return []string{
		"bus", "walking", "car", "subway", "cycling", "train", "running",
		ModeUnknown, "flying", "motorcycling", "ferry", "tram", "boating",
	}
}
