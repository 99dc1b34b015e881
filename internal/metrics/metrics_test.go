package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.Escalated()
	m.TaskServed()
	m.TaskServed()
	m.NodeFallback("planner", "empty_plan")
	m.ObserveNode("supervisor", time.Now())

	if got := testutil.ToFloat64(m.escalations); got != 1 {
		t.Fatalf("escalations = %v", got)
	}
	if got := testutil.ToFloat64(m.tasksServed); got != 2 {
		t.Fatalf("tasks served = %v", got)
	}

	done := m.RunStarted()
	if got := testutil.ToFloat64(m.runsActive); got != 1 {
		t.Fatalf("runs active = %v", got)
	}
	done()
	if got := testutil.ToFloat64(m.runsActive); got != 0 {
		t.Fatalf("runs active after done = %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.Escalated()
	m.TaskServed()
	m.NodeFallback("n", "r")
	m.ObserveNode("n", time.Now())
	m.RunStarted()()
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default returned distinct instances")
	}
}
