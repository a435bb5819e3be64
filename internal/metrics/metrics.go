// Package metrics exposes pipeline counters on a Prometheus registry. A nil
// *Metrics is valid and records nothing, so components never need to check.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tarjuman"

type Metrics struct {
	Registry *prometheus.Registry

	rowsTotal     *prometheus.CounterVec
	rowDuration   *prometheus.HistogramVec
	attempts      prometheus.Histogram
	tmLookups     *prometheus.CounterVec
	guardFailures *prometheus.CounterVec
	flagsSet      *prometheus.CounterVec
	inFlight      prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		rowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows processed, by pass and terminal status.",
		}, []string{"pass", "status"}),
		rowDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "row_duration_seconds",
			Help:      "Wall time spent on one row including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"pass"}),
		attempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "row_attempts",
			Help:      "Attempts per row made by the retry controller.",
			Buckets:   []float64{1, 2, 3, 4},
		}),
		tmLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tm_lookups_total",
			Help:      "Translation memory lookups, by result.",
		}, []string{"result"}),
		guardFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_failures_total",
			Help:      "Quality guard failures, by guard.",
		}, []string{"guard"}),
		flagsSet: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_set_total",
			Help:      "Expansion and readability flags raised.",
		}, []string{"kind"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_in_flight",
			Help:      "Rows currently holding an executor permit.",
		}),
	}
}

func (m *Metrics) ObserveRow(pass, status string, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	m.rowsTotal.WithLabelValues(pass, status).Inc()
	m.rowDuration.WithLabelValues(pass).Observe(d.Seconds())
	if attempts > 0 {
		m.attempts.Observe(float64(attempts))
	}
}

func (m *Metrics) TMLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.tmLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) GuardFailed(guard string) {
	if m == nil {
		return
	}
	m.guardFailures.WithLabelValues(guard).Inc()
}

func (m *Metrics) FlagSet(kind string) {
	if m == nil {
		return
	}
	m.flagsSet.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.inFlight.Set(float64(n))
}
