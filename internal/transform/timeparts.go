package transform

import (
	"time"

	"songplay_etl/internal/models"
)

// Calendar turns epoch seconds into calendar parts in a fixed location.
type Calendar struct {
	loc *time.Location
}

// UTC is the calendar used unless a run configures another time zone.
var UTC = NewCalendar(time.UTC)

// NewCalendar returns a Calendar for loc. A nil loc means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Location returns the calendar's time zone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Datetime returns the calendar instant of an epoch-seconds value.
func (c Calendar) Datetime(startTime int64) time.Time {
	return time.Unix(startTime, 0).In(c.Location())
}

// DeriveTime is Calendar.DeriveTime in UTC.
func DeriveTime(startTime int64) models.TimeEntry {
	return UTC.DeriveTime(startTime)
}

// DeriveTime breaks startTime (epoch seconds) into calendar parts. Week is the
// ISO 8601 week number and Weekday runs from 1 (Sunday) to 7 (Saturday).
func (c Calendar) DeriveTime(startTime int64) models.TimeEntry {
	dt := c.Datetime(startTime)
	_, week := dt.ISOWeek()
	return models.TimeEntry{
		StartTime: startTime,
		Hour:      int32(dt.Hour()),
		Day:       int32(dt.Day()),
		Week:      int32(week),
		Month:     int32(dt.Month()),
		Year:      int32(dt.Year()),
		Weekday:   int32(dt.Weekday()) + 1,
	}
}

// ExtractTime is Calendar.ExtractTime in UTC.
func ExtractTime(plays []models.PlayEvent) []models.TimeEntry {
	return UTC.ExtractTime(plays)
}

// ExtractTime returns one TimeEntry per distinct start_time among plays.
func (c Calendar) ExtractTime(plays []models.PlayEvent) []models.TimeEntry {
	seen := make(map[int64]struct{}, len(plays))
	entries := make([]models.TimeEntry, 0, len(plays))
	for _, p := range plays {
		if _, ok := seen[p.StartTime]; ok {
			continue
		}
		seen[p.StartTime] = struct{}{}
		entries = append(entries, c.DeriveTime(p.StartTime))
	}
	return entries
}
