package model

// Tags of the timeline objects we understand. Anything else is ignored.
const (
	TagPlaceVisit      = "placeVisit"
	TagActivitySegment = "activitySegment"
)

// Segment is one element of a file's timelineObjects array, kept as decoded JSON.
type Segment struct {
	Index  int            // position in the loaded sequence
	Source string         // file the segment was read from
	Raw    map[string]any // nil when the array element was not an object
}

// PlaceVisit returns the object under the placeVisit tag.
func (s Segment) PlaceVisit() (map[string]any, bool) {
	return s.tagged(TagPlaceVisit)
}

// ActivitySegment returns the object under the activitySegment tag.
func (s Segment) ActivitySegment() (map[string]any, bool) {
	return s.tagged(TagActivitySegment)
}

func (s Segment) tagged(tag string) (map[string]any, bool) {
	if s.Raw == nil {
		return nil, false
	}
	v, ok := s.Raw[tag].(map[string]any)
	return v, ok
}
