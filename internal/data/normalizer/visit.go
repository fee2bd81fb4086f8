package normalizer

import (
	"strings"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
)

// UnknownAddress stands in for a visit location without an address.
const UnknownAddress = "unknown"

// visitOutcome tells the caller what to do with one placeVisit object.
type visitOutcome int

const (
	visitKept visitOutcome = iota
	visitNoPlaceID
	visitInvalid
)

func (n *Normalizer) normalizeVisit(pv map[string]any) (model.VisitRecord, visitOutcome, *fieldError) {
	var rec model.VisitRecord
	loc, _ := getMap(pv, "location")

	placeID, ok := getString(loc, "placeId")
	if !ok || placeID == "" {
		return rec, visitNoPlaceID, nil
	}
	rec.PlaceID = placeID

	address, hasAddress := getString(loc, "address")
	if !hasAddress {
		address = UnknownAddress
	}
	rec.Address = address

	name, ok := getString(loc, "name")
	if !ok {
		if !hasAddress {
			return rec, visitInvalid, missing("location.name")
		}
		name, _, _ = strings.Cut(address, ",")
	}

	if c, ok := getCoordinates(loc); ok {
		rec.Location = &c
	}

	if rec.VisitConfidence, ok = getValue(pv, "visitConfidence"); !ok {
		return rec, visitInvalid, missing("visitConfidence")
	}
	if rec.LocationConfidence, ok = getValue(pv, "locationConfidence"); !ok {
		if rec.LocationConfidence, ok = getValue(loc, "locationConfidence"); !ok {
			return rec, visitInvalid, missing("locationConfidence")
		}
	}

	importance, ok := getString(pv, "placeVisitImportance")
	if !ok {
		return rec, visitInvalid, missing("placeVisitImportance")
	}
	rec.Importance = strings.ToLower(importance)

	start, end, ferr := readSpan(pv)
	if ferr != nil {
		return rec, visitInvalid, ferr
	}
	rec.Timing = NewTiming(n.zones.In(start, rec.Location), n.zones.In(end, rec.Location))

	rec.Home = n.opts.Home != "" && name == n.opts.Home
	rec.Work = n.opts.Work != "" && name == n.opts.Work
	if rec.Home {
		name = model.HomeLabel
	}
	rec.Name = name

	rec.Country = n.countries.Normalize(CountryFromAddress(address))
	return rec, visitKept, nil
}
