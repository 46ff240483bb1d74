package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "crm"

// Metrics holds the CRM's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// MutationsTotal counts service writes.
	// Labels: operation (create_customer, create_order, ...), status (success, error)
	MutationsTotal *prometheus.CounterVec

	// RestockedProductsTotal counts products raised by restock runs.
	RestockedProductsTotal prometheus.Counter

	// JobRunsTotal counts scheduled job executions.
	// Labels: job, status (success, error, skipped)
	JobRunsTotal *prometheus.CounterVec

	// JobDurationSeconds measures job execution time.
	// Labels: job
	JobDurationSeconds *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MutationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "mutations_total",
				Help:      "Total number of CRM mutations by operation and status",
			},
			[]string{"operation", "status"},
		),
		RestockedProductsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "restocked_products_total",
				Help:      "Total number of products restocked",
			},
		),
		JobRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "job_runs_total",
				Help:      "Total number of scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),
		JobDurationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "job_duration_seconds",
				Help:      "Scheduled job duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

func (m *Metrics) RecordRestock(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RestockedProductsTotal.Add(float64(n))
}

func (m *Metrics) RecordJob(job string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.JobRunsTotal.WithLabelValues(job, statusLabel(err)).Inc()
	m.JobDurationSeconds.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

func (m *Metrics) RecordJobSkipped(job string) {
	if m == nil {
		return
	}
	m.JobRunsTotal.WithLabelValues(job, "skipped").Inc()
}
