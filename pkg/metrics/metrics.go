package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/travigo/railtracker/pkg/tracker"
)

// Collector holds the railtracker metrics in a private registry. It implements
// tracker.Observer and session.Observer.
type Collector struct {
	reg *prometheus.Registry

	FixesProcessed      prometheus.Counter
	FixDuration         prometheus.Histogram
	QueryFailures       *prometheus.CounterVec // stage label: proximity|direction|stations
	InvariantViolations *prometheus.CounterVec // kind label
	PhaseTransitions    *prometheus.CounterVec // phase label
	ResultsPublished    *prometheus.CounterVec // sink label
	PublishErrors       *prometheus.CounterVec // sink label
	ActiveSessions      prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FixesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railtracker_fixes_processed_total",
			Help: "Total location fixes run through a tracker.",
		}),
		FixDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "railtracker_fix_duration_seconds",
			Help:    "Time taken to process one location fix.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		QueryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railtracker_query_failures_total",
			Help: "Railway index queries that failed, by tracking stage.",
		}, []string{"stage"}),
		InvariantViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railtracker_invariant_violations_total",
			Help: "Station tracking states that were rejected, by kind.",
		}, []string{"kind"}),
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railtracker_phase_transitions_total",
			Help: "Station phases recorded, by phase.",
		}, []string{"phase"}),
		ResultsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railtracker_results_published_total",
			Help: "Tracking results handed to a sink.",
		}, []string{"sink"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railtracker_publish_errors_total",
			Help: "Tracking results a sink failed to accept.",
		}, []string{"sink"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railtracker_active_sessions",
			Help: "Number of open tracking sessions.",
		}),
	}

	reg.MustRegister(
		c.FixesProcessed, c.FixDuration,
		c.QueryFailures, c.InvariantViolations, c.PhaseTransitions,
		c.ResultsPublished, c.PublishErrors, c.ActiveSessions,
		collectors.NewGoCollector(),
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) FixProcessed(duration time.Duration) {
	c.FixesProcessed.Inc()
	c.FixDuration.Observe(duration.Seconds())
}

func (c *Collector) QueryFailed(stage string) {
	c.QueryFailures.WithLabelValues(stage).Inc()
}

func (c *Collector) InvariantViolated(kind string) {
	c.InvariantViolations.WithLabelValues(kind).Inc()
}

func (c *Collector) PhaseTransition(phase tracker.StationPhase) {
	c.PhaseTransitions.WithLabelValues(string(phase)).Inc()
}

func (c *Collector) ResultPublished(sink string, err error) {
	if err != nil {
		c.PublishErrors.WithLabelValues(sink).Inc()
		return
	}
	c.ResultsPublished.WithLabelValues(sink).Inc()
}

func (c *Collector) SessionOpened() {
	c.ActiveSessions.Inc()
}

func (c *Collector) SessionClosed() {
	c.ActiveSessions.Dec()
}
