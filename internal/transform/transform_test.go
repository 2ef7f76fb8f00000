package transform

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songplay_etl/internal/models"
)

func catalogRecord(songID, artistID, title, artistName string) models.CatalogRecord {
	return models.CatalogRecord{
		SongID:     songID,
		ArtistID:   artistID,
		Title:      models.Ptr(title),
		ArtistName: models.Ptr(artistName),
		Year:       models.Ptr(int32(2004)),
		Duration:   models.Ptr(218.93179),
	}
}

func play(page string, ts int64, userID int64, artist, song string) models.EventRecord {
	return models.EventRecord{
		UserID:    models.Ptr(userID),
		FirstName: models.Ptr("Kaylee"),
		LastName:  models.Ptr("Summers"),
		Gender:    models.Ptr("F"),
		Level:     models.Ptr("free"),
		Page:      page,
		TS:        models.Ptr(ts),
		Artist:    models.Ptr(artist),
		Song:      models.Ptr(song),
		SessionID: models.Ptr(int64(139)),
		Location:  models.Ptr("Phoenix-Mesa-Scottsdale, AZ"),
		UserAgent: models.Ptr("Mozilla/5.0"),
	}
}

func TestExtractSongs_OneRowPerValidRecord(t *testing.T) {
	records := []models.CatalogRecord{
		catalogRecord("SOA", "AR1", "Song A", "Artist One"),
		catalogRecord("SOB", "AR1", "Song B", "Artist One"),
		catalogRecord("", "AR2", "No Id", "Artist Two"),
		catalogRecord("SOC", "", "No Artist", "Nobody"),
	}

	songs := ExtractSongs(records)

	require.Len(t, songs, 2)
	assert.Equal(t, "SOA", songs[0].SongID)
	assert.Equal(t, "AR1", songs[0].ArtistID)
	assert.Equal(t, "Song A", *songs[0].Title)
	assert.Equal(t, int32(2004), *songs[0].Year)
	assert.Equal(t, "SOB", songs[1].SongID)
}

func TestExtractSongs_KeepsNullableColumns(t *testing.T) {
	songs := ExtractSongs([]models.CatalogRecord{{SongID: "SOA", ArtistID: "AR1"}})

	require.Len(t, songs, 1)
	assert.Nil(t, songs[0].Title)
	assert.Nil(t, songs[0].Year)
	assert.Nil(t, songs[0].Duration)
}

func TestExtractArtists_DedupsByFullTuple(t *testing.T) {
	a := catalogRecord("SOA", "AR1", "Song A", "Artist One")
	a.ArtistLocation = models.Ptr("Memphis, TN")
	b := catalogRecord("SOB", "AR1", "Song B", "Artist One")
	b.ArtistLocation = models.Ptr("Memphis, TN")
	c := catalogRecord("SOC", "AR1", "Song C", "Artist One")
	c.ArtistLocation = models.Ptr("Nashville, TN")
	d := catalogRecord("SOD", "AR1", "Song D", "Artist One")

	artists := ExtractArtists([]models.CatalogRecord{a, b, c, d})

	require.Len(t, artists, 3)
	assert.Equal(t, "Memphis, TN", *artists[0].Location)
	assert.Equal(t, "Nashville, TN", *artists[1].Location)
	assert.Nil(t, artists[2].Location)
	for _, artist := range artists {
		assert.Equal(t, "AR1", artist.ArtistID)
		assert.Equal(t, "Artist One", *artist.Name)
	}
}

func TestExtractArtists_NullAndEmptyDiffer(t *testing.T) {
	a := catalogRecord("SOA", "AR1", "Song A", "Artist One")
	a.ArtistLocation = models.Ptr("")
	b := catalogRecord("SOB", "AR1", "Song B", "Artist One")

	assert.Len(t, ExtractArtists([]models.CatalogRecord{a, b}), 2)
}

func TestExtractArtists_SkipsMalformed(t *testing.T) {
	artists := ExtractArtists([]models.CatalogRecord{
		catalogRecord("", "AR1", "x", "y"),
		catalogRecord("SOA", "", "x", "y"),
	})
	assert.Empty(t, artists)
}

func TestStartTimeFromMillis_Truncates(t *testing.T) {
	assert.Equal(t, int64(1541121934), StartTimeFromMillis(1541121934796))
	assert.Equal(t, int64(1541121934), StartTimeFromMillis(1541121934999))
	assert.Equal(t, int64(1541121934), StartTimeFromMillis(1541121934000))
}

func TestFilterPlays_KeepsOnlyNextSong(t *testing.T) {
	records := []models.EventRecord{
		play(NextSongPage, 1541121934796, 8, "Des'ree", "You Gotta Be"),
		play("Home", 1541121935796, 9, "", ""),
		play("Logout", 1541121936796, 10, "", ""),
		play(NextSongPage, 1541121937796, 8, "Mr Oizo", "Flat 55"),
	}

	plays, skipped := FilterPlays(records)

	assert.Equal(t, 0, skipped)
	require.Len(t, plays, 2)
	for _, p := range plays {
		assert.Equal(t, NextSongPage, p.Page)
	}
	assert.Equal(t, int64(1541121934), plays[0].StartTime)
	assert.True(t, time.Date(2018, time.November, 2, 1, 25, 34, 0, time.UTC).Equal(plays[0].Datetime))
}

func TestFilterPlays_SkipsMissingTimestamp(t *testing.T) {
	r := play(NextSongPage, 0, 8, "a", "b")
	r.TS = nil

	plays, skipped := FilterPlays([]models.EventRecord{r})

	assert.Empty(t, plays)
	assert.Equal(t, 1, skipped)
}

func TestExtractUsers_DedupAndLevelVersions(t *testing.T) {
	first := play(NextSongPage, 1541121934796, 8, "a", "b")
	repeat := play(NextSongPage, 1541121944796, 8, "c", "d")
	upgraded := play(NextSongPage, 1541121954796, 8, "e", "f")
	upgraded.Level = models.Ptr("paid")
	guest := play(NextSongPage, 1541121964796, 0, "g", "h")
	guest.UserID = nil
	other := play(NextSongPage, 1541121974796, 15, "i", "j")

	plays, _ := FilterPlays([]models.EventRecord{first, repeat, upgraded, guest, other})
	users := ExtractUsers(plays)

	require.Len(t, users, 3)
	assert.Equal(t, int64(8), users[0].UserID)
	assert.Equal(t, "free", *users[0].Level)
	assert.Equal(t, int64(8), users[1].UserID)
	assert.Equal(t, "paid", *users[1].Level)
	assert.Equal(t, int64(15), users[2].UserID)
}

func TestExtractUsers_IgnoresNonPlayEvents(t *testing.T) {
	home := play("Home", 1541121934796, 42, "", "")
	plays, _ := FilterPlays([]models.EventRecord{home})

	assert.Empty(t, ExtractUsers(plays))
	assert.Empty(t, ExtractTime(plays))
	assert.Empty(t, ResolveSongplays(plays, nil))
}

func TestDeriveTime_KnownInstant(t *testing.T) {
	entry := DeriveTime(StartTimeFromMillis(1541121934796))

	assert.Equal(t, models.TimeEntry{
		StartTime: 1541121934,
		Hour:      1,
		Day:       2,
		Week:      44,
		Month:     11,
		Year:      2018,
		Weekday:   6,
	}, entry)
}

func TestCalendar_LocalZoneBreakdown(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	cal := NewCalendar(loc)

	entry := cal.DeriveTime(StartTimeFromMillis(1541121934796))

	assert.Equal(t, int64(1541121934), entry.StartTime)
	assert.Equal(t, int32(2018), entry.Year)
	assert.Equal(t, int32(11), entry.Month)
	assert.Equal(t, int32(1), entry.Day)
	assert.Equal(t, int32(21), entry.Hour)
	assert.Equal(t, int32(44), entry.Week)
	assert.Equal(t, int32(5), entry.Weekday)

	plays, _ := cal.FilterPlays([]models.EventRecord{play(NextSongPage, 1541121934796, 8, "a", "b")})
	require.Len(t, plays, 1)
	assert.Equal(t, 21, plays[0].Datetime.Hour())

	year, month := cal.SongplayPartition(models.Songplay{StartTime: entry.StartTime})
	assert.Equal(t, int32(2018), year)
	assert.Equal(t, int32(11), month)
}

func TestDeriveTime_MatchesCalendarBreakdown(t *testing.T) {
	for _, ts := range []int64{0, 1541121934, 1543622400, 1546300799, 1546300800, 1609459200} {
		entry := DeriveTime(ts)
		dt := time.Unix(ts, 0).UTC()
		_, week := dt.ISOWeek()

		assert.Equal(t, int32(dt.Year()), entry.Year)
		assert.Equal(t, int32(dt.Month()), entry.Month)
		assert.Equal(t, int32(dt.Day()), entry.Day)
		assert.Equal(t, int32(dt.Hour()), entry.Hour)
		assert.Equal(t, int32(week), entry.Week)
		assert.GreaterOrEqual(t, entry.Weekday, int32(1))
		assert.LessOrEqual(t, entry.Weekday, int32(7))
	}
}

func TestDeriveTime_WeekdayConvention(t *testing.T) {
	sunday := time.Date(2018, time.November, 4, 12, 0, 0, 0, time.UTC).Unix()
	saturday := time.Date(2018, time.November, 10, 12, 0, 0, 0, time.UTC).Unix()

	assert.Equal(t, int32(1), DeriveTime(sunday).Weekday)
	assert.Equal(t, int32(7), DeriveTime(saturday).Weekday)
}

func TestDeriveTime_ISOWeekAtYearBoundary(t *testing.T) {
	// 2018-12-31 is a Monday and belongs to ISO week 1 of 2019.
	entry := DeriveTime(time.Date(2018, time.December, 31, 8, 0, 0, 0, time.UTC).Unix())

	assert.Equal(t, int32(2018), entry.Year)
	assert.Equal(t, int32(1), entry.Week)
}

func TestExtractTime_OneEntryPerDistinctStartTime(t *testing.T) {
	records := []models.EventRecord{
		play(NextSongPage, 1541121934796, 8, "a", "b"),
		play(NextSongPage, 1541121934100, 9, "c", "d"),
		play(NextSongPage, 1541121935000, 10, "e", "f"),
	}
	plays, _ := FilterPlays(records)

	entries := ExtractTime(plays)

	require.Len(t, entries, 2)
	assert.Equal(t, int64(1541121934), entries[0].StartTime)
	assert.Equal(t, int64(1541121935), entries[1].StartTime)
}

func TestResolveMatch(t *testing.T) {
	_, ok := ResolveMatch(nil)
	assert.False(t, ok)

	match, ok := ResolveMatch([]models.CatalogRecord{
		catalogRecord("SOZ", "AR9", "t", "a"),
		catalogRecord("SOB", "AR5", "t", "a"),
		catalogRecord("SOB", "AR2", "t", "a"),
	})
	require.True(t, ok)
	assert.Equal(t, "SOB", match.SongID)
	assert.Equal(t, "AR2", match.ArtistID)
}

func TestResolveMatch_OrderIndependent(t *testing.T) {
	a := catalogRecord("SOA", "AR1", "t", "a")
	b := catalogRecord("SOB", "AR1", "t", "a")

	first, _ := ResolveMatch([]models.CatalogRecord{a, b})
	second, _ := ResolveMatch([]models.CatalogRecord{b, a})

	assert.Equal(t, first, second)
}

func TestResolveSongplays_CardinalityPreserving(t *testing.T) {
	catalog := []models.CatalogRecord{
		catalogRecord("SOONE", "ARONE", "One Match", "Solo"),
		catalogRecord("SOTWO2", "ARTWO", "Two Matches", "Duo"),
		catalogRecord("SOTWO1", "ARTWO", "Two Matches", "Duo"),
	}
	records := []models.EventRecord{
		play(NextSongPage, 1541121934796, 8, "Nobody", "No Match"),
		play(NextSongPage, 1541121944796, 8, "Solo", "One Match"),
		play(NextSongPage, 1541121954796, 8, "Duo", "Two Matches"),
		play(NextSongPage, 1541121964796, 9, "Duo", "Two Matches"),
	}
	plays, _ := FilterPlays(records)

	songplays := ResolveSongplays(plays, catalog)

	require.Len(t, songplays, len(plays))

	assert.Nil(t, songplays[0].SongID)
	assert.Nil(t, songplays[0].ArtistID)
	assert.Equal(t, "Phoenix-Mesa-Scottsdale, AZ", *songplays[0].Location)

	require.NotNil(t, songplays[1].SongID)
	assert.Equal(t, "SOONE", *songplays[1].SongID)
	assert.Equal(t, "ARONE", *songplays[1].ArtistID)

	require.NotNil(t, songplays[2].SongID)
	assert.Equal(t, "SOTWO1", *songplays[2].SongID)
	assert.Equal(t, "SOTWO1", *songplays[3].SongID)

	ids := make(map[int64]struct{})
	for i, sp := range songplays {
		ids[sp.SongplayID] = struct{}{}
		if i > 0 {
			assert.Greater(t, sp.SongplayID, songplays[i-1].SongplayID)
		}
	}
	assert.Len(t, ids, len(songplays))
}

func TestResolveSongplays_RequiresBothArtistAndTitle(t *testing.T) {
	catalog := []models.CatalogRecord{catalogRecord("SOA", "AR1", "Title", "Artist")}
	records := []models.EventRecord{
		play(NextSongPage, 1541121934796, 8, "Artist", "Other Title"),
		play(NextSongPage, 1541121934796, 8, "Other Artist", "Title"),
	}
	plays, _ := FilterPlays(records)
	plays[0].Song = nil

	for _, sp := range ResolveSongplays(plays, catalog) {
		assert.Nil(t, sp.SongID)
		assert.Nil(t, sp.ArtistID)
	}
}

func TestResolveSongplays_IgnoresMalformedCatalogRecords(t *testing.T) {
	catalog := []models.CatalogRecord{catalogRecord("", "AR1", "Title", "Artist")}
	plays, _ := FilterPlays([]models.EventRecord{play(NextSongPage, 1541121934796, 8, "Artist", "Title")})

	songplays := ResolveSongplays(plays, catalog)

	require.Len(t, songplays, 1)
	assert.Nil(t, songplays[0].SongID)
}

func TestSongplayPartition_MatchesTimeEntry(t *testing.T) {
	records := []models.EventRecord{
		play(NextSongPage, 1541121934796, 8, "a", "b"),
		play(NextSongPage, 1546300799000, 8, "a", "b"),
		play(NextSongPage, 1546300800000, 8, "a", "b"),
	}
	plays, _ := FilterPlays(records)
	entries := make(map[int64]models.TimeEntry)
	for _, e := range ExtractTime(plays) {
		entries[e.StartTime] = e
	}

	for _, sp := range ResolveSongplays(plays, nil) {
		year, month := SongplayPartition(sp)
		entry, ok := entries[sp.StartTime]
		require.True(t, ok)
		assert.Equal(t, entry.Year, year)
		assert.Equal(t, entry.Month, month)
	}
}

func TestDistinct_KeepsFirstOccurrence(t *testing.T) {
	out := Distinct([]string{"b", "a", "b", "c", "a"}, func(s string) string { return s })
	assert.Equal(t, []string{"b", "a", "c"}, out)
}
