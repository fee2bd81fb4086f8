package normalizer

import (
	"github.com/penwyp/go-timeline-chat/internal/core/model"
)

func (n *Normalizer) normalizeJourney(as map[string]any) (model.JourneyRecord, *fieldError) {
	var rec model.JourneyRecord

	startLoc, _ := getMap(as, "startLocation")
	start, ok := getCoordinates(startLoc)
	if !ok {
		return rec, missing("startLocation")
	}
	endLoc, _ := getMap(as, "endLocation")
	end, ok := getCoordinates(endLoc)
	if !ok {
		return rec, missing("endLocation")
	}
	rec.StartLocation, rec.EndLocation = start, end

	startAt, endAt, ferr := readSpan(as)
	if ferr != nil {
		return rec, ferr
	}

	if d, ok := getNumber(as, "distance"); ok {
		rec.DistanceMeters = &d
	}

	activity, ok := getString(as, "activityType")
	if !ok {
		return rec, missing("activityType")
	}
	rec.Mode = model.ParseTransportMode(activity)

	rec.Timing = NewTiming(n.zones.In(startAt, &rec.StartLocation), n.zones.In(endAt, &rec.EndLocation))
	return rec, nil
}

// keepJourney drops journeys with no distance that Google could not classify.
func keepJourney(j model.JourneyRecord) bool {
	return j.DistanceMeters != nil || !j.Mode.IsUnknown()
}
