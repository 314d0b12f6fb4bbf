package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	persisted    *prometheus.CounterVec
	ingested     *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastRate     *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	ticksSkipped prometheus.Counter
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		persisted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratepull_snapshots_persisted_total",
				Help: "Total number of snapshots routed to a backend",
			},
			[]string{"backend", "bank"},
		),
		ingested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratepull_observations_ingested_total",
				Help: "Observations by normalization outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratepull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastRate: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ratepull_last_rate",
				Help: "Last recorded rate per bank, code and field",
			},
			[]string{"bank", "code", "field"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratepull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ticksSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ratepull_scheduler_ticks_skipped_total",
				Help: "Scheduler ticks skipped because a run was in flight",
			},
		),
	}
}

// RecordPersisted records a snapshot routed to a backend.
func (r *Recorder) RecordPersisted(backend, bank string) {
	r.persisted.WithLabelValues(backend, bank).Inc()
}

// RecordIngest records normalization outcomes for one batch.
func (r *Recorder) RecordIngest(accepted, rejected int) {
	r.ingested.WithLabelValues("accepted").Add(float64(accepted))
	r.ingested.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastRate records the last seen rate for a bank, code and field.
func (r *Recorder) RecordLastRate(bank, code, field string, value float64) {
	r.lastRate.WithLabelValues(bank, code, field).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordTickSkipped counts a skipped scheduler tick.
func (r *Recorder) RecordTickSkipped() {
	r.ticksSkipped.Inc()
}
