// Package transform derives the songs, artists, users, time and songplays tables
// from decoded catalog and usage-log records. Every function here is pure: it reads
// its input slices and returns new ones.
package transform

import "songplay_etl/internal/models"

// ValidCatalogRecord reports whether r carries both identifiers a song row needs.
func ValidCatalogRecord(r models.CatalogRecord) bool {
	return r.SongID != "" && r.ArtistID != ""
}

// ExtractSongs projects one Song per valid catalog record. song_id is assumed to be
// unique per record, so no deduplication is applied.
func ExtractSongs(records []models.CatalogRecord) []models.Song {
	songs := make([]models.Song, 0, len(records))
	for _, r := range records {
		if !ValidCatalogRecord(r) {
			continue
		}
		songs = append(songs, models.Song{
			SongID:   r.SongID,
			Title:    r.Title,
			ArtistID: r.ArtistID,
			Year:     r.Year,
			Duration: r.Duration,
		})
	}
	return songs
}

// ExtractArtists projects the artist columns of each valid catalog record and
// removes rows whose whole tuple was already seen. Two rows for the same artist_id
// that differ in any column are both kept.
func ExtractArtists(records []models.CatalogRecord) []models.Artist {
	artists := make([]models.Artist, 0, len(records))
	for _, r := range records {
		if !ValidCatalogRecord(r) {
			continue
		}
		artists = append(artists, models.Artist{
			ArtistID:  r.ArtistID,
			Name:      r.ArtistName,
			Location:  r.ArtistLocation,
			Latitude:  r.ArtistLatitude,
			Longitude: r.ArtistLongitude,
		})
	}
	return Distinct(artists, models.Artist.Key)
}

// Distinct keeps the first row for every key, preserving input order.
func Distinct[T any, K comparable](rows []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		k := key(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}
