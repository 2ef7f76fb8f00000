package transform

import (
	"time"

	"songplay_etl/internal/models"
)

// NextSongPage is the page value of an event that played a track.
const NextSongPage = "NextSong"

// StartTimeFromMillis converts a millisecond epoch to epoch seconds, truncating
// toward zero.
func StartTimeFromMillis(ts int64) int64 {
	return ts / 1000
}

// DatetimeFromSeconds returns the UTC calendar instant of an epoch-seconds value.
func DatetimeFromSeconds(startTime int64) time.Time {
	return UTC.Datetime(startTime)
}

// FilterPlays is Calendar.FilterPlays in UTC.
func FilterPlays(records []models.EventRecord) ([]models.PlayEvent, int) {
	return UTC.FilterPlays(records)
}

// FilterPlays keeps NextSong events and normalizes their timestamps. NextSong
// events without a usable ts are dropped and counted in the second return value.
func (c Calendar) FilterPlays(records []models.EventRecord) ([]models.PlayEvent, int) {
	plays := make([]models.PlayEvent, 0, len(records))
	skipped := 0
	for _, r := range records {
		if r.Page != NextSongPage {
			continue
		}
		if r.TS == nil {
			skipped++
			continue
		}
		startTime := StartTimeFromMillis(*r.TS)
		plays = append(plays, models.PlayEvent{
			EventRecord: r,
			StartTime:   startTime,
			Datetime:    c.Datetime(startTime),
		})
	}
	return plays, skipped
}

// ExtractUsers projects user columns from plays, skipping events with no userId,
// and removes exact duplicate tuples. A user seen at both levels yields two rows.
func ExtractUsers(plays []models.PlayEvent) []models.User {
	users := make([]models.User, 0, len(plays))
	for _, p := range plays {
		if p.UserID == nil {
			continue
		}
		users = append(users, models.User{
			UserID:    *p.UserID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Gender:    p.Gender,
			Level:     p.Level,
		})
	}
	return Distinct(users, models.User.Key)
}
