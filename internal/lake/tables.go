package lake

import (
	"songplay_etl/internal/models"
	"songplay_etl/internal/transform"
)

// SongsTable is partitioned by year, then artist_id.
func SongsTable() Table[models.Song] {
	return Table[models.Song]{
		Name: "songs",
		PartitionBy: func(s models.Song) []Partition {
			return []Partition{
				Int32Partition("year", s.Year),
				StringPartition("artist_id", s.ArtistID),
			}
		},
		Less: func(a, b models.Song) bool { return a.SongID < b.SongID },
	}
}

// ArtistsTable is unpartitioned.
func ArtistsTable() Table[models.Artist] {
	return Table[models.Artist]{
		Name: "artists",
		Less: func(a, b models.Artist) bool { return a.ArtistID < b.ArtistID },
	}
}

// UsersTable is unpartitioned.
func UsersTable() Table[models.User] {
	return Table[models.User]{
		Name: "users",
		Less: func(a, b models.User) bool { return a.UserID < b.UserID },
	}
}

// TimeTable is partitioned by year, then month.
func TimeTable() Table[models.TimeEntry] {
	return Table[models.TimeEntry]{
		Name: "time",
		PartitionBy: func(e models.TimeEntry) []Partition {
			return []Partition{
				Int32Partition("year", &e.Year),
				Int32Partition("month", &e.Month),
			}
		},
		Less: func(a, b models.TimeEntry) bool { return a.StartTime < b.StartTime },
	}
}

// SongplaysTable is partitioned by the year and month of each row's start_time,
// computed with cal so it agrees with the time table.
func SongplaysTable(cal transform.Calendar) Table[models.Songplay] {
	return Table[models.Songplay]{
		Name: "songplays",
		PartitionBy: func(sp models.Songplay) []Partition {
			year, month := cal.SongplayPartition(sp)
			return []Partition{
				Int32Partition("year", &year),
				Int32Partition("month", &month),
			}
		},
		Less: func(a, b models.Songplay) bool { return a.SongplayID < b.SongplayID },
	}
}
