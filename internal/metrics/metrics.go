// Package metrics exposes the generator's runtime behavior as Prometheus
// collectors, the way noah-isme-sma-adp-api instruments its handlers with
// github.com/prometheus/client_golang: a histogram for operation latency and
// a gauge for the last observed value of a scored quantity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects generation-run metrics. The zero value is not usable;
// construct with New.
type Recorder struct {
	registry          *prometheus.Registry
	generationSeconds prometheus.Histogram
	riskScore         *prometheus.GaugeVec
	conflictsTotal    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry and returns a Recorder
// bound to it. Registering on a private registry (rather than the global
// default one) keeps repeated construction in tests from panicking on
// duplicate registration.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	r := &Recorder{
		generationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timetable_engine",
			Subsystem: "generator",
			Name:      "generation_seconds",
			Help:      "Wall-clock duration of a generate() run, in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		riskScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "timetable_engine",
			Subsystem: "generator",
			Name:      "risk_score",
			Help:      "Most recent conflict risk score (spec §4.4) observed for a class's generated schedule.",
		}, []string{"class_id"}),
		conflictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable_engine",
			Subsystem: "generator",
			Name:      "conflicts_total",
			Help:      "Count of conflicts detected per severity across all generate() runs.",
		}, []string{"severity"}),
	}
	r.registry = registry
	return r
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveGeneration records one generate() run's elapsed time, risk score,
// and conflict-severity breakdown.
func (r *Recorder) ObserveGeneration(classID string, elapsedSeconds float64, risk int, bySeverity map[string]int) {
	r.generationSeconds.Observe(elapsedSeconds)
	r.riskScore.WithLabelValues(classID).Set(float64(risk))
	for severity, count := range bySeverity {
		r.conflictsTotal.WithLabelValues(severity).Add(float64(count))
	}
}
