package normalizer

import (
	"math"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// ZoneResolver moves an instant into the zone it should be displayed in.
// at is the place the instant belongs to and may be nil.
type ZoneResolver interface {
	In(t time.Time, at *model.Coordinates) time.Time
}

type keepZone struct{}

func (keepZone) In(t time.Time, _ *model.Coordinates) time.Time { return t }

// NewTiming derives the calendar columns. Dates come from the exact instants,
// times of day are rounded to the nearest minute. Ties round to even.
func NewTiming(start, end time.Time) model.Timing {
	d := end.Sub(start)
	return model.Timing{
		Start:           start,
		End:             end,
		Duration:        d,
		DurationMinutes: roundMinutes(d),
		StartYear:       start.Year(),
		StartMonth:      start.Month().String(),
		StartWeekday:    start.Weekday().String(),
		StartDate:       start.Format(dateLayout),
		StartTime:       roundMinute(start).Format(timeLayout),
		EndDate:         end.Format(dateLayout),
		EndTime:         roundMinute(end).Format(timeLayout),
	}
}

// roundMinutes converts a span to minutes with one decimal place, half to even
func roundMinutes(d time.Duration) float64 {
	return math.RoundToEven(d.Seconds()/60*10) / 10
}

// roundMinute rounds t to the nearest minute. An instant exactly half way goes
// to the even minute, so 10:00:30 becomes 10:00 and 10:01:30 becomes 10:02.
func roundMinute(t time.Time) time.Time {
	floor := t.Truncate(time.Minute)
	rem := t.Sub(floor)
	if rem > 30*time.Second || (rem == 30*time.Second && (floor.Unix()/60)%2 != 0) {
		return floor.Add(time.Minute)
	}
	return floor
}
