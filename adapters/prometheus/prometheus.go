// Package prometheus provides Prometheus implementations of the metrics
// interfaces of the actor engine and the shuttle transport.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmehali/actors/core/metrics"
)

func newTimer(h prometheus.Observer) metrics.Timer {
	return metrics.StartTimer(func(d time.Duration) { h.Observe(d.Seconds()) })
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1,
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// AllMetrics holds Prometheus implementations for the engine and the transport.
// Use this when you want to initialize metrics for a whole process at once.
type AllMetrics struct {
	Actor *actorMetrics
	Bus   *busMetrics
}

// NewAllMetrics creates and registers every metric family on reg.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Actor: NewActorMetrics(reg).(*actorMetrics),
		Bus:   NewBusMetrics(reg).(*busMetrics),
	}
}
