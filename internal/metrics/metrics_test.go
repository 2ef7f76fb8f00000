package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordsReadTotal.WithLabelValues("events").Add(12)
	m.RecordsSkippedTotal.WithLabelValues("catalog", "missing_id").Inc()
	m.RowsWrittenTotal.WithLabelValues("songplays").Add(7)
	m.LastRunSuccess.Set(1)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.RecordsReadTotal.WithLabelValues("events")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.RowsWrittenTotal.WithLabelValues("songplays")))

	path := filepath.Join(t.TempDir(), "songplay_etl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `songplay_etl_records_skipped_total{reason="missing_id",source="catalog"} 1`)
	assert.Contains(t, string(data), "songplay_etl_last_run_success 1")
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.RowsWrittenTotal.WithLabelValues("users").Inc()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.RowsWrittenTotal.WithLabelValues("users")))
}
