// Package metrics exposes Prometheus collectors reporting orchestrator
// activity.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the orchestrator collectors.
type Metrics struct {
	nodeDuration *prometheus.HistogramVec
	nodeFailures *prometheus.CounterVec
	escalations  prometheus.Counter
	tasksServed  prometheus.Counter
	runsActive   prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the package-level metrics registered with the global
// Prometheus registry. Collectors are created once so repeated orchestrator
// construction (unit tests, multiple servers) cannot trigger duplicate
// registration panics.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew constructs Metrics against the provided registerer. Registration
// errors panic, mirroring promauto semantics, so configuration bugs surface
// at startup rather than as silent metric gaps.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "servicedesk",
				Subsystem: "orchestrator",
				Name:      "node_duration_seconds",
				Help:      "Duration spent in each orchestrator node.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		nodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "servicedesk",
				Subsystem: "orchestrator",
				Name:      "node_failures_total",
				Help:      "Node executions that fell back to their degraded path.",
			},
			[]string{"node", "reason"},
		),
		escalations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "servicedesk",
				Subsystem: "orchestrator",
				Name:      "escalations_total",
				Help:      "Runs that paused for human approval.",
			},
		),
		tasksServed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "servicedesk",
				Subsystem: "orchestrator",
				Name:      "tasks_served_total",
				Help:      "Domain agent executions, one per consumed task.",
			},
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "servicedesk",
				Subsystem: "orchestrator",
				Name:      "runs_active",
				Help:      "Runs currently executing.",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.nodeDuration, m.nodeFailures, m.escalations, m.tasksServed, m.runsActive,
	} {
		reg.MustRegister(c)
	}
	return m
}

// ObserveNode records a node execution duration.
func (m *Metrics) ObserveNode(node string, start time.Time) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(node).Observe(time.Since(start).Seconds())
}

// NodeFallback counts a node degrading to its documented fallback.
func (m *Metrics) NodeFallback(node, reason string) {
	if m == nil {
		return
	}
	m.nodeFailures.WithLabelValues(node, reason).Inc()
}

// Escalated counts a run entering the escalation pause.
func (m *Metrics) Escalated() {
	if m == nil {
		return
	}
	m.escalations.Inc()
}

// TaskServed counts one domain agent execution.
func (m *Metrics) TaskServed() {
	if m == nil {
		return
	}
	m.tasksServed.Inc()
}

// RunStarted marks a run active; the returned func marks it done.
func (m *Metrics) RunStarted() func() {
	if m == nil {
		return func() {}
	}
	m.runsActive.Inc()
	return m.runsActive.Dec
}
