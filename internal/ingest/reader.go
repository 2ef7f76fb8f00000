// Package ingest lists and decodes the raw JSON-lines inputs of a run.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"songplay_etl/internal/models"
	"songplay_etl/internal/storage"
)

var (
	// ErrNoInput is returned when a source prefix holds no JSON files.
	ErrNoInput = errors.New("no input files")
	// ErrSchema is returned when a required field is absent from every record.
	ErrSchema = errors.New("source schema mismatch")
)

// defaultMaxLineBytes bounds a single JSON line. Longer lines are skipped as invalid.
const defaultMaxLineBytes = 16 << 20

// ReadStats describes one source read.
type ReadStats struct {
	FilesFound   int   `json:"files_found"`
	Records      int   `json:"records"`
	InvalidLines int   `json:"invalid_lines"`
	Bytes        int64 `json:"bytes"`
}

// Reader decodes every .json file under a prefix with a bounded worker pool.
type Reader struct {
	src          storage.Source
	workers      int
	maxLineBytes int
	logger       *zap.Logger
}

// NewReader returns a Reader. workers <= 0 means twice the CPU count.
func NewReader(src storage.Source, workers int, logger *zap.Logger) *Reader {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	return &Reader{src: src, workers: workers, maxLineBytes: defaultMaxLineBytes, logger: logger}
}

// ReadCatalog decodes every song_data record under prefix.
func (r *Reader) ReadCatalog(ctx context.Context, prefix string) ([]models.CatalogRecord, ReadStats, error) {
	return readSource(ctx, r, "catalog", prefix, CatalogRequiredFields, DecodeCatalog)
}

// ReadEvents decodes every log_data record under prefix.
func (r *Reader) ReadEvents(ctx context.Context, prefix string) ([]models.EventRecord, ReadStats, error) {
	return readSource(ctx, r, "events", prefix, EventRequiredFields, DecodeEvent)
}

type fileResult[T any] struct {
	records []T
	invalid int
	fields  map[string]struct{}
}

// readSource returns records in sorted key order, then line order, whatever order
// the workers finish in.
func readSource[T any](
	ctx context.Context,
	r *Reader,
	source, prefix string,
	required []string,
	decode func(map[string]json.RawMessage) T,
) ([]T, ReadStats, error) {
	var stats ReadStats

	objects, err := r.src.List(ctx, prefix)
	if err != nil {
		return nil, stats, err
	}
	var files []storage.Object
	for _, obj := range objects {
		if strings.HasSuffix(strings.ToLower(obj.Key), ".json") {
			files = append(files, obj)
			stats.Bytes += obj.Size
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	stats.FilesFound = len(files)

	if len(files) == 0 {
		return nil, stats, fmt.Errorf("%w: %s source under %q", ErrNoInput, source, prefix)
	}

	r.logger.Info("reading source",
		zap.String("source", source),
		zap.String("prefix", prefix),
		zap.Int("files", len(files)),
		zap.Int("workers", r.workers))

	results := make([]fileResult[T], len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, obj := range files {
		i, obj := i, obj
		g.Go(func() error {
			res, err := readFile(gctx, r, obj.Key, decode)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	seen := make(map[string]struct{})
	var records []T
	for _, res := range results {
		records = append(records, res.records...)
		stats.InvalidLines += res.invalid
		for f := range res.fields {
			seen[f] = struct{}{}
		}
	}
	stats.Records = len(records)

	// Files exist at this point, so a source where nothing decodes is in the
	// wrong format rather than empty.
	for _, field := range required {
		if _, ok := seen[field]; !ok {
			return nil, stats, fmt.Errorf("%w: %s source has no %q field in any record (%d records, %d invalid lines)",
				ErrSchema, source, field, stats.Records, stats.InvalidLines)
		}
	}

	r.logger.Info("source read",
		zap.String("source", source),
		zap.Int("records", stats.Records),
		zap.Int("invalid_lines", stats.InvalidLines),
		zap.Int64("bytes", stats.Bytes))
	return records, stats, nil
}

func readFile[T any](
	ctx context.Context,
	r *Reader,
	key string,
	decode func(map[string]json.RawMessage) T,
) (fileResult[T], error) {
	res := fileResult[T]{fields: make(map[string]struct{})}

	body, err := r.src.Open(ctx, key)
	if err != nil {
		return res, err
	}
	defer body.Close()

	br := bufio.NewReaderSize(body, 64*1024)
	lineNum := 0
	for {
		line, oversized, readErr := readLine(br, r.maxLineBytes)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return res, fmt.Errorf("failed to read %s: %w", key, readErr)
		}
		atEOF := readErr != nil
		if atEOF && len(line) == 0 && !oversized {
			break
		}
		lineNum++

		if oversized {
			res.invalid++
			r.logger.Warn("skipping oversized line",
				zap.String("key", key),
				zap.Int("line", lineNum),
				zap.Int("max_bytes", r.maxLineBytes))
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			var raw rawRecord
			if err := json.Unmarshal(line, &raw); err != nil || raw == nil {
				res.invalid++
				r.logger.Warn("skipping invalid JSON line",
					zap.String("key", key),
					zap.Int("line", lineNum),
					zap.Error(err))
			} else {
				for f := range raw {
					res.fields[f] = struct{}{}
				}
				res.records = append(res.records, decode(raw))
			}
		}

		if atEOF {
			break
		}
	}

	r.logger.Debug("file decoded",
		zap.String("key", key),
		zap.Int("records", len(res.records)),
		zap.Int("invalid_lines", res.invalid))
	return res, nil
}

// readLine returns the next line including its newline. A line longer than limit is
// drained and reported as oversized with no content. The error is io.EOF on the
// last line.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > limit {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, oversized, err
	}
}
