package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmehali/actors/core/actor"
	"github.com/mmehali/actors/core/metrics"
)

// actorMetrics implements actor.ActorMetrics using Prometheus.
type actorMetrics struct {
	messageDuration    *prometheus.HistogramVec
	messagesTotal      *prometheus.CounterVec
	rejectedTotal      *prometheus.CounterVec
	droppedTotal       *prometheus.CounterVec
	faultsTotal        *prometheus.CounterVec
	treesDiscarded     prometheus.Counter
	actorsLive         *prometheus.GaugeVec
	activations        prometheus.Counter
	passivations       prometheus.Counter
	checkpointDuration prometheus.Histogram
	checkpointsTotal   *prometheus.CounterVec
}

// NewActorMetrics creates a new Prometheus implementation of ActorMetrics.
func NewActorMetrics(reg prometheus.Registerer) actor.ActorMetrics {
	m := &actorMetrics{
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "actr_actor_message_duration_seconds",
			Help:    "Time spent resuming an actor body in seconds",
			Buckets: defaultBuckets,
		}, []string{"message_type"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actr_actor_messages_total",
			Help: "Total number of messages processed by actor bodies",
		}, []string{"message_type", "success"}),

		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actr_actor_messages_rejected_total",
			Help: "Total number of messages rejected by an actor rule set",
		}, []string{"message_type"}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actr_actor_messages_dropped_total",
			Help: "Total number of messages dropped before reaching an actor",
		}, []string{"reason"}),

		faultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actr_actor_faults_total",
			Help: "Total number of actor faults",
		}, []string{"kind"}),

		treesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actr_actor_trees_discarded_total",
			Help: "Total number of actor trees discarded",
		}),

		actorsLive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "actr_actor_live",
			Help: "Number of live top-level actors",
		}, []string{"runner"}),

		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actr_actor_activations_total",
			Help: "Total number of top-level actors restored on demand",
		}),

		passivations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actr_actor_passivations_total",
			Help: "Total number of top-level actors checkpointed and unloaded",
		}),

		checkpointDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "actr_actor_checkpoint_duration_seconds",
			Help:    "Checkpoint save time in seconds",
			Buckets: defaultBuckets,
		}),

		checkpointsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actr_actor_checkpoints_total",
			Help: "Total number of checkpoint records saved",
		}, []string{"persisted"}),
	}

	reg.MustRegister(
		m.messageDuration,
		m.messagesTotal,
		m.rejectedTotal,
		m.droppedTotal,
		m.faultsTotal,
		m.treesDiscarded,
		m.actorsLive,
		m.activations,
		m.passivations,
		m.checkpointDuration,
		m.checkpointsTotal,
	)

	return m
}

func (m *actorMetrics) MessageDuration(msgType string) metrics.Timer {
	return newTimer(m.messageDuration.WithLabelValues(msgType))
}

func (m *actorMetrics) MessageProcessed(msgType string, success bool) {
	m.messagesTotal.WithLabelValues(msgType, boolToStr(success)).Inc()
}

func (m *actorMetrics) MessageRejected(msgType string) {
	m.rejectedTotal.WithLabelValues(msgType).Inc()
}

func (m *actorMetrics) MessageDropped(reason string) {
	m.droppedTotal.WithLabelValues(reason).Inc()
}

func (m *actorMetrics) ActorFault(kind string) {
	m.faultsTotal.WithLabelValues(kind).Inc()
}

func (m *actorMetrics) TreeDiscarded() {
	m.treesDiscarded.Inc()
}

func (m *actorMetrics) ActorsLive(runner string, n int) {
	m.actorsLive.WithLabelValues(runner).Set(float64(n))
}

func (m *actorMetrics) ActorActivated() {
	m.activations.Inc()
}

func (m *actorMetrics) ActorPassivated() {
	m.passivations.Inc()
}

func (m *actorMetrics) CheckpointDuration() metrics.Timer {
	return newTimer(m.checkpointDuration)
}

func (m *actorMetrics) CheckpointSaved(persisted bool) {
	m.checkpointsTotal.WithLabelValues(boolToStr(persisted)).Inc()
}

var _ actor.ActorMetrics = (*actorMetrics)(nil)
