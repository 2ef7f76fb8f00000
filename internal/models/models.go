package models

import "time"

// CatalogRecord is one raw song_data record. Nullable fields are pointers so that
// JSON null and an absent key both read back as nil.
type CatalogRecord struct {
	SongID          string
	Title           *string
	ArtistID        string
	Year            *int32
	Duration        *float64
	NumSongs        *int64
	ArtistName      *string
	ArtistLocation  *string
	ArtistLatitude  *float64
	ArtistLongitude *float64
}

// EventRecord is one raw log_data record.
type EventRecord struct {
	UserID        *int64
	FirstName     *string
	LastName      *string
	Gender        *string
	Level         *string
	Page          string
	TS            *int64
	Artist        *string
	Song          *string
	SessionID     *int64
	ItemInSession *int64
	Location      *string
	UserAgent     *string
	Auth          *string
	Method        *string
	Status        *int64
	Length        *float64
	Registration  *float64
}

// PlayEvent is a NextSong event with its timestamp normalized.
// Datetime is an intermediate for calendar derivation and is never persisted.
type PlayEvent struct {
	EventRecord
	StartTime int64
	Datetime  time.Time
}

// Song is a row of the songs dimension table.
type Song struct {
	SongID   string   `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Title    *string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ArtistID string   `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year     *int32   `parquet:"name=year, type=INT32, repetitiontype=OPTIONAL"`
	Duration *float64 `parquet:"name=duration, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// Artist is a row of the artists dimension table.
type Artist struct {
	ArtistID  string   `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name      *string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Location  *string  `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Latitude  *float64 `parquet:"name=latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude *float64 `parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// User is a row of the users dimension table.
type User struct {
	UserID    int64   `parquet:"name=user_id, type=INT64"`
	FirstName *string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	LastName  *string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Gender    *string `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Level     *string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

// TimeEntry is a row of the time dimension table, keyed by StartTime.
// Weekday runs from 1 (Sunday) to 7 (Saturday).
type TimeEntry struct {
	StartTime int64 `parquet:"name=start_time, type=INT64"`
	Hour      int32 `parquet:"name=hour, type=INT32"`
	Day       int32 `parquet:"name=day, type=INT32"`
	Week      int32 `parquet:"name=week, type=INT32"`
	Month     int32 `parquet:"name=month, type=INT32"`
	Year      int32 `parquet:"name=year, type=INT32"`
	Weekday   int32 `parquet:"name=weekday, type=INT32"`
}

// Songplay is a row of the songplays fact table.
type Songplay struct {
	SongplayID int64   `parquet:"name=songplay_id, type=INT64"`
	StartTime  int64   `parquet:"name=start_time, type=INT64"`
	UserID     *int64  `parquet:"name=user_id, type=INT64, repetitiontype=OPTIONAL"`
	Level      *string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SongID     *string `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ArtistID   *string `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SessionID  *int64  `parquet:"name=session_id, type=INT64, repetitiontype=OPTIONAL"`
	Location   *string `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	UserAgent  *string `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}
