package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmehali/actors/core/shuttle"
)

// busMetrics implements shuttle.BusMetrics using Prometheus.
type busMetrics struct {
	depth   *prometheus.GaugeVec
	routed  *prometheus.CounterVec
	dropped *prometheus.CounterVec
}

// NewBusMetrics creates a new Prometheus implementation of BusMetrics.
func NewBusMetrics(reg prometheus.Registerer) shuttle.BusMetrics {
	m := &busMetrics{
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "actr_bus_depth",
			Help: "Number of entries waiting on a bus",
		}, []string{"owner"}),

		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actr_bus_messages_routed_total",
			Help: "Total number of messages handed to an outgoing shuttle",
		}, []string{"owner", "prefix"}),

		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actr_bus_messages_dropped_total",
			Help: "Total number of messages that could not be routed",
		}, []string{"owner", "reason"}),
	}

	reg.MustRegister(m.depth, m.routed, m.dropped)
	return m
}

func (m *busMetrics) BusDepth(owner string, depth int) {
	m.depth.WithLabelValues(owner).Set(float64(depth))
}

func (m *busMetrics) MessagesRouted(owner, prefix string, n int) {
	m.routed.WithLabelValues(owner, prefix).Add(float64(n))
}

func (m *busMetrics) MessageDropped(owner, reason string) {
	m.dropped.WithLabelValues(owner, reason).Inc()
}

var _ shuttle.BusMetrics = (*busMetrics)(nil)
