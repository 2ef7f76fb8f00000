// Package pipeline runs one batch: read the catalog and usage logs, derive the
// five star-schema tables and overwrite each of them at the destination.
//
// Concurrent runs against the same destination are not coordinated; the last
// table overwrite wins.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"songplay_etl/internal/ingest"
	"songplay_etl/internal/lake"
	"songplay_etl/internal/metrics"
	"songplay_etl/internal/models"
	"songplay_etl/internal/storage"
	"songplay_etl/internal/transform"
)

// Options tunes a run. Zero values fall back to the defaults noted per field.
type Options struct {
	SongDataPrefix string // "song_data"
	LogDataPrefix  string // "log_data"
	Workers        int    // twice the CPU count
	TempDir        string // os.TempDir()
	MaxRowsPerFile int    // one file per partition
	Calendar       transform.Calendar
}

// accessChecker is implemented by sinks that can prove write access up front.
type accessChecker interface {
	CheckAccess(ctx context.Context) error
}

// ETLPipeline wires the reader, the transforms and the table writer for one run.
type ETLPipeline struct {
	source   storage.Source
	sink     storage.Sink
	opts     Options
	metrics  *metrics.Metrics
	logger   *zap.Logger
	runID    string
	tempDir  string
	reader   *ingest.Reader
	writer   *lake.Writer
	calendar transform.Calendar
}

// New returns a pipeline reading from source and writing to sink.
func New(source storage.Source, sink storage.Sink, opts Options, m *metrics.Metrics, logger *zap.Logger) *ETLPipeline {
	if opts.SongDataPrefix == "" {
		opts.SongDataPrefix = "song_data"
	}
	if opts.LogDataPrefix == "" {
		opts.LogDataPrefix = "log_data"
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	tempDir := filepath.Join(opts.TempDir, "songplay-etl-"+runID)

	return &ETLPipeline{
		source:   source,
		sink:     sink,
		opts:     opts,
		metrics:  m,
		logger:   logger,
		runID:    runID,
		tempDir:  tempDir,
		reader:   ingest.NewReader(source, opts.Workers, logger),
		writer:   lake.NewWriter(sink, tempDir, opts.MaxRowsPerFile, logger),
		calendar: opts.Calendar,
	}
}

// RunID identifies this run in logs and stats.
func (p *ETLPipeline) RunID() string {
	return p.runID
}

// Run processes song data, then log data. Tables already written stay in place
// when a later step fails; the returned stats describe how far the run got.
func (p *ETLPipeline) Run(ctx context.Context) (*ETLStats, error) {
	start := time.Now()
	stats := &ETLStats{RunID: p.runID, StartedAt: start.UTC()}

	p.logger.Info("starting ETL pipeline",
		zap.String("song_data", p.opts.SongDataPrefix),
		zap.String("log_data", p.opts.LogDataPrefix),
		zap.String("calendar", p.calendar.Location().String()))

	err := p.run(ctx, stats)

	duration := time.Since(start)
	stats.TotalExecutionTime = duration.String()
	stats.Success = err == nil
	p.metrics.RunDuration.Set(duration.Seconds())
	p.metrics.LastRunTimestamp.Set(float64(time.Now().Unix()))
	if err != nil {
		stats.Error = err.Error()
		p.metrics.LastRunSuccess.Set(0)
		p.logger.Error("ETL pipeline failed",
			zap.Duration("duration", duration),
			zap.Strings("tables_written", stats.TablesWritten()),
			zap.Error(err))
		return stats, err
	}

	p.metrics.LastRunSuccess.Set(1)
	p.logger.Info("ETL pipeline completed",
		zap.Duration("duration", duration),
		zap.Int("play_events", stats.PlayEvents),
		zap.Int("unmatched_songplays", stats.UnmatchedSongplays))
	return stats, nil
}

func (p *ETLPipeline) run(ctx context.Context, stats *ETLStats) error {
	if checker, ok := p.sink.(accessChecker); ok {
		if err := checker.CheckAccess(ctx); err != nil {
			return fmt.Errorf("destination access test failed: %w", err)
		}
	}
	defer p.cleanup()

	catalog, err := p.processSongData(ctx, stats)
	if err != nil {
		return err
	}
	return p.processLogData(ctx, catalog, stats)
}

// processSongData writes the songs and artists tables and returns the catalog for
// the songplays join.
func (p *ETLPipeline) processSongData(ctx context.Context, stats *ETLStats) ([]models.CatalogRecord, error) {
	catalog, readStats, err := p.reader.ReadCatalog(ctx, p.opts.SongDataPrefix)
	stats.Catalog = readStats
	p.recordRead("catalog", readStats)
	if err != nil {
		return nil, fmt.Errorf("failed to read song data: %w", err)
	}

	songs := transform.ExtractSongs(catalog)
	stats.SkippedCatalogRecords = len(catalog) - len(songs)
	if stats.SkippedCatalogRecords > 0 {
		p.metrics.RecordsSkippedTotal.WithLabelValues("catalog", "missing_id").Add(float64(stats.SkippedCatalogRecords))
		sample := firstInvalidCatalog(catalog)
		p.logger.Warn("skipped catalog records without song_id or artist_id",
			zap.Int("count", stats.SkippedCatalogRecords),
			zap.String("sample_song_id", sample.SongID),
			zap.String("sample_artist_id", sample.ArtistID),
			zap.Stringp("sample_title", sample.Title))
	}

	if err := writeTable(ctx, p, stats, lake.SongsTable(), songs); err != nil {
		return nil, err
	}
	if err := writeTable(ctx, p, stats, lake.ArtistsTable(), transform.ExtractArtists(catalog)); err != nil {
		return nil, err
	}
	return catalog, nil
}

// processLogData writes the users, time and songplays tables.
func (p *ETLPipeline) processLogData(ctx context.Context, catalog []models.CatalogRecord, stats *ETLStats) error {
	events, readStats, err := p.reader.ReadEvents(ctx, p.opts.LogDataPrefix)
	stats.Events = readStats
	p.recordRead("events", readStats)
	if err != nil {
		return fmt.Errorf("failed to read log data: %w", err)
	}

	plays, skipped := p.calendar.FilterPlays(events)
	stats.PlayEvents = len(plays)
	stats.SkippedEventRecords = skipped
	if skipped > 0 {
		p.metrics.RecordsSkippedTotal.WithLabelValues("events", "missing_ts").Add(float64(skipped))
		sample := firstPlayWithoutTS(events)
		p.logger.Warn("skipped NextSong events without a usable ts",
			zap.Int("count", skipped),
			zap.Int64p("sample_session_id", sample.SessionID),
			zap.Int64p("sample_item_in_session", sample.ItemInSession),
			zap.Int64p("sample_user_id", sample.UserID))
	}
	p.logger.Info("filtered play events",
		zap.Int("events", len(events)),
		zap.Int("plays", len(plays)))

	if err := writeTable(ctx, p, stats, lake.UsersTable(), transform.ExtractUsers(plays)); err != nil {
		return err
	}
	if err := writeTable(ctx, p, stats, lake.TimeTable(), p.calendar.ExtractTime(plays)); err != nil {
		return err
	}

	songplays := transform.ResolveSongplays(plays, catalog)
	for _, sp := range songplays {
		if sp.SongID == nil {
			stats.UnmatchedSongplays++
		}
	}
	return writeTable(ctx, p, stats, lake.SongplaysTable(p.calendar), songplays)
}

func writeTable[T any](ctx context.Context, p *ETLPipeline, stats *ETLStats, table lake.Table[T], rows []T) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before writing %s: %w", table.Name, err)
	}

	start := time.Now()
	result, err := lake.Write(ctx, p.writer, table, rows)
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.TableWriteSeconds.WithLabelValues(table.Name, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to write %s table: %w", table.Name, err)
	}

	p.metrics.RowsWrittenTotal.WithLabelValues(table.Name).Add(float64(result.Rows))
	p.metrics.FilesWrittenTotal.WithLabelValues(table.Name).Add(float64(result.Files))
	stats.Tables = append(stats.Tables, result)
	return nil
}

func (p *ETLPipeline) recordRead(source string, s ingest.ReadStats) {
	p.metrics.RecordsReadTotal.WithLabelValues(source).Add(float64(s.Records))
	p.metrics.InputBytesTotal.WithLabelValues(source).Add(float64(s.Bytes))
	if s.InvalidLines > 0 {
		p.metrics.RecordsSkippedTotal.WithLabelValues(source, "invalid_json").Add(float64(s.InvalidLines))
	}
}

func firstInvalidCatalog(records []models.CatalogRecord) models.CatalogRecord {
	for _, r := range records {
		if !transform.ValidCatalogRecord(r) {
			return r
		}
	}
	return models.CatalogRecord{}
}

func firstPlayWithoutTS(records []models.EventRecord) models.EventRecord {
	for _, r := range records {
		if r.Page == transform.NextSongPage && r.TS == nil {
			return r
		}
	}
	return models.EventRecord{}
}

// cleanup removes the run's staging directory.
func (p *ETLPipeline) cleanup() {
	p.logger.Debug("cleaning up temp directory", zap.String("dir", p.tempDir))
	if err := os.RemoveAll(p.tempDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("failed to clean up temp directory", zap.String("dir", p.tempDir), zap.Error(err))
	}
}
