package actor

import (
	"fmt"
	"sync"

	"github.com/mmehali/actors/core/reflector"
)

type (
	// Body is an actor's resumable computation. Resume is called once per
	// admitted message and runs from the body's current resumption point to
	// the next one. It returns done=true when the actor has finished; a
	// non-nil error is an unrecoverable fault that discards the actor's tree.
	//
	// A body keeps everything it needs across resumptions in its own fields,
	// including which point to resume from. Those fields are what a
	// checkpoint persists, so checkpointable bodies are pointers to structs
	// whose state survives a codec round trip.
	Body interface {
		Resume(ctx *Context) (done bool, err error)
	}

	// BodyFunc adapts a function to a Body. BodyFuncs carry no packed state
	// and cannot be checkpointed.
	BodyFunc func(ctx *Context) (done bool, err error)

	// Snapshottable lets a body control its own checkpoint encoding.
	Snapshottable interface {
		Snapshot() ([]byte, error)
		RestoreSnapshot(data []byte) error
	}
)

func (f BodyFunc) Resume(ctx *Context) (bool, error) { return f(ctx) }

type bodyTyper interface{ BodyType() string }

func bodyTypeOf(b Body) string {
	if bt, ok := b.(bodyTyper); ok {
		return bt.BodyType()
	}
	return reflector.TypeInfoOf(b).Name
}

// BodyRegistry maps body type names to constructors so checkpointed bodies
// can be decoded again.
type BodyRegistry struct {
	mu   sync.RWMutex
	news map[string]func() Body
}

func NewBodyRegistry() *BodyRegistry {
	return &BodyRegistry{news: map[string]func() Body{}}
}

func (r *BodyRegistry) Register(bodyType string, ctor func() Body) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.news[bodyType] = ctor
}

// RegisterBody registers *T under its type name.
func RegisterBody[T any, PT interface {
	*T
	Body
}](r *BodyRegistry) {
	ctor := func() Body { return PT(new(T)) }
	r.Register(bodyTypeOf(ctor()), ctor)
}

func (r *BodyRegistry) known(bodyType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.news[bodyType]
	return ok
}

func (r *BodyRegistry) create(bodyType string) (Body, error) {
	r.mu.RLock()
	ctor, ok := r.news[bodyType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, bodyType)
	}
	return ctor(), nil
}
