package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"songplay_etl/internal/ingest"
	"songplay_etl/internal/lake"
)

// ETLStats holds the outcome of a run.
type ETLStats struct {
	RunID                 string             `json:"run_id"`
	StartedAt             time.Time          `json:"started_at"`
	TotalExecutionTime    string             `json:"total_execution_time"`
	Success               bool               `json:"success"`
	Error                 string             `json:"error,omitempty"`
	Catalog               ingest.ReadStats   `json:"catalog"`
	Events                ingest.ReadStats   `json:"events"`
	SkippedCatalogRecords int                `json:"skipped_catalog_records"`
	SkippedEventRecords   int                `json:"skipped_event_records"`
	PlayEvents            int                `json:"play_events"`
	UnmatchedSongplays    int                `json:"unmatched_songplays"`
	Tables                []lake.WriteResult `json:"tables"`
}

// TablesWritten lists the tables completed so far, in write order.
func (s *ETLStats) TablesWritten() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Table
	}
	return names
}

// Table returns the write result of a table, if it was written.
func (s *ETLStats) Table(name string) (lake.WriteResult, bool) {
	for _, t := range s.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return lake.WriteResult{}, false
}

// WriteJSON writes the stats to path as indented JSON.
func (s *ETLStats) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats file %s: %w", path, err)
	}
	return nil
}
