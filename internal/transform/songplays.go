package transform

import (
	"songplay_etl/internal/models"
)

type matchKey struct {
	artistName string
	title      string
}

// CatalogIndex maps (artist name, title) to the catalog records carrying that pair.
type CatalogIndex map[matchKey][]models.CatalogRecord

// IndexCatalog builds the join index over valid catalog records that have both an
// artist name and a title.
func IndexCatalog(records []models.CatalogRecord) CatalogIndex {
	index := make(CatalogIndex)
	for _, r := range records {
		if !ValidCatalogRecord(r) || r.ArtistName == nil || r.Title == nil {
			continue
		}
		k := matchKey{artistName: *r.ArtistName, title: *r.Title}
		index[k] = append(index[k], r)
	}
	return index
}

// Lookup returns the catalog records matching a play, or nil.
func (idx CatalogIndex) Lookup(p models.PlayEvent) []models.CatalogRecord {
	if p.Artist == nil || p.Song == nil {
		return nil
	}
	return idx[matchKey{artistName: *p.Artist, title: *p.Song}]
}

// ResolveMatch picks the candidate with the lowest (song_id, artist_id). It reports
// false when there are no candidates.
func ResolveMatch(candidates []models.CatalogRecord) (models.CatalogRecord, bool) {
	if len(candidates) == 0 {
		return models.CatalogRecord{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.SongID < best.SongID || (c.SongID == best.SongID && c.ArtistID < best.ArtistID) {
			best = c
		}
	}
	return best, true
}

// ResolveSongplays left-joins plays to the catalog. Exactly one row is produced per
// play; songplay_id follows the order of plays starting at 0.
func ResolveSongplays(plays []models.PlayEvent, catalog []models.CatalogRecord) []models.Songplay {
	index := IndexCatalog(catalog)
	songplays := make([]models.Songplay, 0, len(plays))
	for i, p := range plays {
		sp := models.Songplay{
			SongplayID: int64(i),
			StartTime:  p.StartTime,
			UserID:     p.UserID,
			Level:      p.Level,
			SessionID:  p.SessionID,
			Location:   p.Location,
			UserAgent:  p.UserAgent,
		}
		if match, ok := ResolveMatch(index.Lookup(p)); ok {
			sp.SongID = models.Ptr(match.SongID)
			sp.ArtistID = models.Ptr(match.ArtistID)
		}
		songplays = append(songplays, sp)
	}
	return songplays
}

// SongplayPartition is Calendar.SongplayPartition in UTC.
func SongplayPartition(sp models.Songplay) (year, month int32) {
	return UTC.SongplayPartition(sp)
}

// SongplayPartition returns the (year, month) partition of a songplay, computed from
// its start_time the same way the time table computes it.
func (c Calendar) SongplayPartition(sp models.Songplay) (year, month int32) {
	entry := c.DeriveTime(sp.StartTime)
	return entry.Year, entry.Month
}
