package ingest

import (
	"encoding/json"

	"songplay_etl/internal/jsonutil"
	"songplay_etl/internal/models"
)

// Required fields per source. A source whose records never carry one of these is
// in the wrong format.
var (
	CatalogRequiredFields = []string{"song_id", "artist_id", "title", "artist_name"}
	EventRequiredFields   = []string{"page", "ts"}
)

type rawRecord map[string]json.RawMessage

func stringValue(raw json.RawMessage) string {
	if s := jsonutil.FlexibleString(raw); s != nil {
		return *s
	}
	return ""
}

// DecodeCatalog maps a song_data object to a CatalogRecord.
func DecodeCatalog(raw map[string]json.RawMessage) models.CatalogRecord {
	return models.CatalogRecord{
		SongID:          stringValue(raw["song_id"]),
		Title:           jsonutil.FlexibleString(raw["title"]),
		ArtistID:        stringValue(raw["artist_id"]),
		Year:            jsonutil.FlexibleInt32(raw["year"]),
		Duration:        jsonutil.FlexibleFloat64(raw["duration"]),
		NumSongs:        jsonutil.FlexibleInt64(raw["num_songs"]),
		ArtistName:      jsonutil.FlexibleString(raw["artist_name"]),
		ArtistLocation:  jsonutil.FlexibleString(raw["artist_location"]),
		ArtistLatitude:  jsonutil.FlexibleFloat64(raw["artist_latitude"]),
		ArtistLongitude: jsonutil.FlexibleFloat64(raw["artist_longitude"]),
	}
}

// DecodeEvent maps a log_data object to an EventRecord. userId arrives as a string
// and is empty for logged-out sessions, which decodes to nil.
func DecodeEvent(raw map[string]json.RawMessage) models.EventRecord {
	return models.EventRecord{
		UserID:        jsonutil.FlexibleInt64(raw["userId"]),
		FirstName:     jsonutil.FlexibleString(raw["firstName"]),
		LastName:      jsonutil.FlexibleString(raw["lastName"]),
		Gender:        jsonutil.FlexibleString(raw["gender"]),
		Level:         jsonutil.FlexibleString(raw["level"]),
		Page:          stringValue(raw["page"]),
		TS:            jsonutil.FlexibleInt64(raw["ts"]),
		Artist:        jsonutil.FlexibleString(raw["artist"]),
		Song:          jsonutil.FlexibleString(raw["song"]),
		SessionID:     jsonutil.FlexibleInt64(raw["sessionId"]),
		ItemInSession: jsonutil.FlexibleInt64(raw["itemInSession"]),
		Location:      jsonutil.FlexibleString(raw["location"]),
		UserAgent:     jsonutil.FlexibleString(raw["userAgent"]),
		Auth:          jsonutil.FlexibleString(raw["auth"]),
		Method:        jsonutil.FlexibleString(raw["method"]),
		Status:        jsonutil.FlexibleInt64(raw["status"]),
		Length:        jsonutil.FlexibleFloat64(raw["length"]),
		Registration:  jsonutil.FlexibleFloat64(raw["registration"]),
	}
}
