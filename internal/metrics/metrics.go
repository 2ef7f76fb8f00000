package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of a single run on its own registry, so a batch job
// can export them to a node exporter textfile when it finishes.
type Metrics struct {
	registry *prometheus.Registry

	// Input metrics
	RecordsReadTotal    *prometheus.CounterVec
	RecordsSkippedTotal *prometheus.CounterVec
	InputBytesTotal     *prometheus.CounterVec

	// Output metrics
	RowsWrittenTotal  *prometheus.CounterVec
	FilesWrittenTotal *prometheus.CounterVec
	TableWriteSeconds *prometheus.HistogramVec

	// Run metrics
	LastRunSuccess   prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
	RunDuration      prometheus.Gauge
}

// NewMetrics creates a Metrics instance with every collector registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RecordsReadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songplay_etl_records_read_total",
				Help: "Total number of raw records decoded",
			},
			[]string{"source"},
		),
		RecordsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songplay_etl_records_skipped_total",
				Help: "Total number of raw records skipped",
			},
			[]string{"source", "reason"},
		),
		InputBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songplay_etl_input_bytes_total",
				Help: "Total size of input files read",
			},
			[]string{"source"},
		),

		RowsWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songplay_etl_rows_written_total",
				Help: "Total number of rows written per table",
			},
			[]string{"table"},
		),
		FilesWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songplay_etl_files_written_total",
				Help: "Total number of parquet files written per table",
			},
			[]string{"table"},
		),
		TableWriteSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "songplay_etl_table_write_seconds",
				Help:    "Duration of table writes in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"table", "status"},
		),

		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "songplay_etl_last_run_success",
			Help: "Whether the last run wrote all tables (1=ok, 0=failed)",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "songplay_etl_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "songplay_etl_last_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
	}

	m.registry.MustRegister(
		m.RecordsReadTotal,
		m.RecordsSkippedTotal,
		m.InputBytesTotal,
		m.RowsWrittenTotal,
		m.FilesWrittenTotal,
		m.TableWriteSeconds,
		m.LastRunSuccess,
		m.LastRunTimestamp,
		m.RunDuration,
	)
	return m
}

// Registry exposes the run registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, replacing path
// atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
