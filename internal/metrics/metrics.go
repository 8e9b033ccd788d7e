package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EmailsSent         prometheus.Counter
	EmailsFailed       prometheus.Counter
	BatchesApplied     prometheus.Counter
	BatchesDuplicated  prometheus.Counter
	BatchesNacked      prometheus.Counter
	BatchProcessingDur prometheus.Histogram
	QueueDepth         prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EmailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_emails_sent_total",
			Help: "Total number of campaign emails accepted by the gateway.",
		}),
		EmailsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_emails_failed_total",
			Help: "Total number of campaign emails the gateway rejected.",
		}),
		BatchesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_batches_applied_total",
			Help: "Total number of batches whose tally was merged into campaign counters.",
		}),
		BatchesDuplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_batches_duplicated_total",
			Help: "Total number of redelivered batches skipped because they were already applied.",
		}),
		BatchesNacked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campaign_batches_nacked_total",
			Help: "Total number of batch deliveries returned to the queue for retry.",
		}),
		BatchProcessingDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "campaign_batch_processing_seconds",
			Help:    "End-to-end batch processing latency from dequeue to settle.",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campaign_queue_depth",
			Help: "Current number of batches waiting in the queue.",
		}),
	}

	reg.MustRegister(
		m.EmailsSent,
		m.EmailsFailed,
		m.BatchesApplied,
		m.BatchesDuplicated,
		m.BatchesNacked,
		m.BatchProcessingDur,
		m.QueueDepth,
	)

	return m
}

// WorkerHooks returns the metric callback functions expected by
// worker.MetricHooks. Centralising the prometheus observation calls here
// keeps the worker package metrics-agnostic.
func (m *Metrics) WorkerHooks() (
	onEmailSent func(),
	onEmailFailed func(),
	onApplied func(duplicate bool, elapsed time.Duration),
	onNacked func(),
) {
	onEmailSent = func() { m.EmailsSent.Inc() }
	onEmailFailed = func() { m.EmailsFailed.Inc() }
	onApplied = func(duplicate bool, elapsed time.Duration) {
		if duplicate {
			m.BatchesDuplicated.Inc()
		} else {
			m.BatchesApplied.Inc()
		}
		m.BatchProcessingDur.Observe(elapsed.Seconds())
	}
	onNacked = func() { m.BatchesNacked.Inc() }
	return
}
