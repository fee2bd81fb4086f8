// Package geo resolves the display time zone of timeline instants.
package geo

import (
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/util"
	"github.com/ringsaturn/tzf"
)

const (
	ZoneRecorded = ""      // keep the offset written in the export
	ZoneLocal    = "Local" // the machine's zone
	ZonePlace    = "place" // the zone at the record's coordinates
)

// Finder maps a longitude/latitude to an IANA zone name.
type Finder interface {
	GetTimezoneName(lng, lat float64) string
}

// ZoneResolver moves instants into a fixed zone or into the zone of the place they belong to.
type ZoneResolver struct {
	fixed  *time.Location
	finder Finder

	mu    sync.RWMutex
	cache map[string]*time.Location
}

// NewZoneResolver builds a resolver from a timezone setting.
func NewZoneResolver(setting string) (*ZoneResolver, error) {
	switch setting {
	case ZoneRecorded:
		return &ZoneResolver{}, nil
	case ZoneLocal:
		return &ZoneResolver{fixed: time.Local}, nil
	case ZonePlace:
		finder, err := tzf.NewDefaultFinder()
		if err != nil {
			return nil, fmt.Errorf("loading time zone boundaries: %w", err)
		}
		return NewPlaceResolver(finder), nil
	default:
		loc, err := time.LoadLocation(setting)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", setting, err)
		}
		return &ZoneResolver{fixed: loc}, nil
	}
}

// NewPlaceResolver resolves zones from coordinates using finder.
func NewPlaceResolver(finder Finder) *ZoneResolver {
	return &ZoneResolver{
		finder: finder,
		cache:  make(map[string]*time.Location),
	}
}

// In returns t in the resolved zone. Without a finder match or coordinates t is returned unchanged.
func (z *ZoneResolver) In(t time.Time, at *model.Coordinates) time.Time {
	if z.fixed != nil {
		return t.In(z.fixed)
	}
	if z.finder == nil || at == nil {
		return t
	}
	if loc := z.location(z.finder.GetTimezoneName(at.Longitude, at.Latitude)); loc != nil {
		return t.In(loc)
	}
	return t
}

func (z *ZoneResolver) location(name string) *time.Location {
	if name == "" {
		return nil
	}

	z.mu.RLock()
	loc, ok := z.cache[name]
	z.mu.RUnlock()
	if ok {
		return loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		util.LogDebugf("Unknown zone %s from finder: %v", name, err)
		loc = nil
	}

	z.mu.Lock()
	z.cache[name] = loc
	z.mu.Unlock()
	return loc
}
