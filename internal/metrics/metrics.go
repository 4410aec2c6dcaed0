// Package metrics defines the Prometheus collectors shared by the estimation
// services. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "farmcarbon"

// Outcome label values.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidInput = "invalid_input"
	OutcomeError        = "error"
)

// Metrics groups the collectors. Create it with New.
type Metrics struct {
	estimates         *prometheus.CounterVec
	credits           prometheus.Histogram
	fetchAttempts     *prometheus.CounterVec
	snapshotFallbacks prometheus.Counter
	analysisDuration  prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// Registration panics on duplicate collectors, as prometheus.MustRegister does.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimates_total",
			Help:      "Monthly carbon estimates by outcome.",
		}, []string{"outcome"}),
		credits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "credits_tco2e",
			Help:      "Net provisional credits per estimate in t CO2e.",
			Buckets:   []float64{0, 0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ndvi_fetch_attempts_total",
			Help:      "Requests to the NDVI classification service by outcome.",
		}, []string{"outcome"}),
		snapshotFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_fallbacks_total",
			Help:      "Analyses served from the cached snapshot after a failed fetch.",
		}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of farm analyses, including upstream fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.estimates, m.credits, m.fetchAttempts, m.snapshotFallbacks, m.analysisDuration)
	return m
}

// ObserveEstimate records one estimator call. credits is only observed for
// OutcomeOK.
func (m *Metrics) ObserveEstimate(outcome string, credits float64) {
	if m == nil {
		return
	}
	m.estimates.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.credits.Observe(credits)
	}
}

// ObserveFetch records one request to the classification service.
func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(outcome).Inc()
}

// ObserveFallback records an analysis served from the cached snapshot.
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.snapshotFallbacks.Inc()
}

// ObserveAnalysis records the duration of one analysis in seconds.
func (m *Metrics) ObserveAnalysis(seconds float64) {
	if m == nil {
		return
	}
	m.analysisDuration.Observe(seconds)
}
