package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSuccess(time.Second, BatchSummary{RawRecords: 10, Stations: 7, Districts: 3, UndefinedRates: 1})
	m.ObserveSuccess(time.Second, BatchSummary{RawRecords: 10, Stations: 9, Districts: 3})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues(StatusFailure)))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.Stations))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DroppedRows))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Districts))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.UndefinedRates))
}

func TestObserveFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFailure(time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues(StatusFailure)))
	n, err := testutil.GatherAndCount(reg, "velib_batch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSuccess(time.Second, BatchSummary{})
		m.ObserveFailure(time.Second)
	})
}
