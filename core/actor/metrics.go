package actor

import "github.com/mmehali/actors/core/metrics"

// ActorMetrics defines the metrics interface for the actor engine.
// All methods are thread-safe.
type ActorMetrics interface {
	// Message handling
	MessageDuration(msgType string) metrics.Timer
	MessageProcessed(msgType string, success bool)
	MessageRejected(msgType string)
	MessageDropped(reason string)

	// Lifecycle
	ActorFault(kind string)
	TreeDiscarded()
	ActorsLive(runner string, n int)
	ActorActivated()
	ActorPassivated()

	// Checkpoints
	CheckpointDuration() metrics.Timer
	CheckpointSaved(persisted bool)
}

type nopActorMetrics struct{}

func (nopActorMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) MessageProcessed(string, bool)        {}
func (nopActorMetrics) MessageRejected(string)               {}
func (nopActorMetrics) MessageDropped(string)                {}

func (nopActorMetrics) ActorFault(string)      {}
func (nopActorMetrics) TreeDiscarded()         {}
func (nopActorMetrics) ActorsLive(string, int) {}
func (nopActorMetrics) ActorActivated()        {}
func (nopActorMetrics) ActorPassivated()       {}

func (nopActorMetrics) CheckpointDuration() metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) CheckpointSaved(bool)              {}

// NopActorMetrics returns a no-op ActorMetrics implementation.
func NopActorMetrics() ActorMetrics { return nopActorMetrics{} }
