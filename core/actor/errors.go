package actor

import "errors"

var (
	// Context errors
	ErrInvalidOut     = errors.New("invalid outgoing message")
	ErrDuplicateChild = errors.New("child already exists")
	ErrBodyPanic      = errors.New("actor body panicked")

	// Checkpoint errors
	ErrNoCheckpoint = errors.New("no checkpoint")
	ErrUnknownBody  = errors.New("unknown body type")

	// Runner errors
	ErrRunnerClosed = errors.New("runner closed")
	ErrActorExists  = errors.New("actor already exists")
)
