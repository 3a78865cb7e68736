package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Batch outcome labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds the collectors exported by the batch service.
type Metrics struct {
	BatchesTotal   *prometheus.CounterVec
	BatchDuration  prometheus.Histogram
	RawRecords     prometheus.Gauge
	Stations       prometheus.Gauge
	DroppedRows    prometheus.Counter
	Districts      prometheus.Gauge
	UndefinedRates prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "velib",
			Name:      "batches_total",
			Help:      "Processed station batches by outcome.",
		}, []string{"status"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "velib",
			Name:      "batch_duration_seconds",
			Help:      "Time spent fetching and processing one batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		RawRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "velib",
			Name:      "raw_records",
			Help:      "Raw station records in the latest batch.",
		}),
		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "velib",
			Name:      "stations",
			Help:      "Cleaned station rows in the latest batch.",
		}),
		DroppedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib",
			Name:      "dropped_rows_total",
			Help:      "Rows removed for missing values.",
		}),
		Districts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "velib",
			Name:      "districts",
			Help:      "Districts present in the latest batch.",
		}),
		UndefinedRates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "velib",
			Name:      "undefined_fill_rates",
			Help:      "Stations of the latest batch whose fill rate is NaN or infinite.",
		}),
	}
	reg.MustRegister(
		m.BatchesTotal,
		m.BatchDuration,
		m.RawRecords,
		m.Stations,
		m.DroppedRows,
		m.Districts,
		m.UndefinedRates,
	)
	return m
}

// BatchSummary carries the counts recorded for a successful batch.
type BatchSummary struct {
	RawRecords     int
	Stations       int
	Districts      int
	UndefinedRates int
}

// ObserveSuccess records a processed batch. A nil receiver is a no-op.
func (m *Metrics) ObserveSuccess(elapsed time.Duration, s BatchSummary) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(StatusSuccess).Inc()
	m.BatchDuration.Observe(elapsed.Seconds())
	m.RawRecords.Set(float64(s.RawRecords))
	m.Stations.Set(float64(s.Stations))
	m.DroppedRows.Add(float64(s.RawRecords - s.Stations))
	m.Districts.Set(float64(s.Districts))
	m.UndefinedRates.Set(float64(s.UndefinedRates))
}

// ObserveFailure records a failed batch. A nil receiver is a no-op.
func (m *Metrics) ObserveFailure(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(StatusFailure).Inc()
	m.BatchDuration.Observe(elapsed.Seconds())
}
