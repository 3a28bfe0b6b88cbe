package actor

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mmehali/actors/core/shuttle"
)

// ForwardMode controls what happens to a message addressed to a descendant
// after an intercepting ancestor has seen it.
type ForwardMode int

const (
	// ForwardNone stops the message at the intercepting actor.
	ForwardNone ForwardMode = iota
	// Forward passes the message on to the next actor on the path.
	Forward
	// ForwardAndReturn passes the message on and resumes the intercepting
	// actor once more after the descendant has handled it.
	ForwardAndReturn
)

func (m ForwardMode) String() string {
	switch m {
	case Forward:
		return "forward"
	case ForwardAndReturn:
		return "forward_and_return"
	default:
		return "none"
	}
}

// State is an actor's lifecycle state.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateSuspended
	StateFinished
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateFinished:
		return "finished"
	case StateDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CheckpointMode selects when a requested checkpoint is written.
type CheckpointMode int

const (
	CheckpointNone CheckpointMode = iota
	// CheckpointNow writes synchronously, capturing the body as it stands
	// at the call. Advance the body's resumption point before calling.
	CheckpointNow
	// CheckpointDeferred writes once the current resumption returns.
	CheckpointDeferred
)

type ContextOptions struct {
	Log          *slog.Logger
	Metrics      ActorMetrics
	Checkpointer Checkpointer
}

// tree holds what every context of one actor tree shares. It is owned by
// the root.
type tree struct {
	outs    []shuttle.Message
	log     *slog.Logger
	metrics ActorMetrics
	cp      Checkpointer
}

func newTree(opts ContextOptions) *tree {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopActorMetrics()
	}
	if opts.Checkpointer == nil {
		opts.Checkpointer = NopCheckpointer()
	}
	return &tree{log: opts.Log, metrics: opts.Metrics, cp: opts.Checkpointer}
}

// Context is the live state of one actor and the API its body uses to
// observe the current message and talk to the rest of the system.
//
// A Context is only ever touched by the goroutine dispatching messages to its
// tree; none of its methods are safe for concurrent use.
type Context struct {
	tree   *tree
	parent *Context // non-owning; used for root lookup only
	self   shuttle.Address
	body   Body
	rules  *RuleSet
	state  State
	log    *slog.Logger

	// transient, set only while the body is resumed
	time    time.Time
	source  shuttle.Address
	dest    shuttle.Address
	in      any
	pending CheckpointMode

	intercept bool
	forward   ForwardMode

	childIDs []string
	children map[string]*Context
}

// NewContext creates the root context of a new actor tree. The actor only
// admits messages from itself until its body says otherwise.
func NewContext(self shuttle.Address, body Body, opts ContextOptions) *Context {
	return newContext(newTree(opts), nil, self, body)
}

func newContext(t *tree, parent *Context, self shuttle.Address, body Body) *Context {
	rules := NewRuleSet()
	rules.Allow(self, false)
	c := &Context{
		tree:     t,
		parent:   parent,
		self:     self,
		body:     body,
		rules:    rules,
		state:    StateCreated,
		children: map[string]*Context{},
	}
	c.log = t.log.With(slog.String("actor", self.String()))
	return c
}

// bind attaches a restored tree to live infrastructure.
func (c *Context) bind(opts ContextOptions) {
	t := newTree(opts)
	t.outs = c.tree.outs
	c.walk(func(n *Context) {
		n.tree = t
		n.log = t.log.With(slog.String("actor", n.self.String()))
	})
}

func (c *Context) walk(f func(*Context)) {
	f(c)
	for _, id := range c.childIDs {
		c.children[id].walk(f)
	}
}

func (c *Context) root() *Context {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

func (c *Context) Self() shuttle.Address        { return c.self }
func (c *Context) Time() time.Time              { return c.time }
func (c *Context) Source() shuttle.Address      { return c.source }
func (c *Context) Destination() shuttle.Address { return c.dest }
func (c *Context) State() State                 { return c.state }
func (c *Context) Log() *slog.Logger            { return c.log }

// In returns the payload of the message currently being handled, or nil
// outside of a resumption.
func (c *Context) In() any { return c.in }

// Out queues a message from this actor to dst.
func (c *Context) Out(dst shuttle.Address, payload any) error {
	return c.OutFrom(c.self, dst, payload)
}

// OutFrom queues a message with an explicit source, which must be this
// actor's address or one below it.
func (c *Context) OutFrom(src, dst shuttle.Address, payload any) error {
	switch {
	case !c.self.IsPrefixOf(src):
		return fmt.Errorf("%w: source %s is outside of %s", ErrInvalidOut, src, c.self)
	case dst.IsEmpty():
		return fmt.Errorf("%w: empty destination", ErrInvalidOut)
	case payload == nil:
		return fmt.Errorf("%w: nil payload", ErrInvalidOut)
	}
	c.tree.outs = append(c.tree.outs, shuttle.NewMessage(src, dst, payload))
	return nil
}

// Reply queues a message back to the source of the current message.
func (c *Context) Reply(payload any) error {
	if c.source.IsEmpty() {
		return fmt.Errorf("%w: no current source", ErrInvalidOut)
	}
	return c.Out(c.source, payload)
}

// Outgoing returns a copy of the messages queued by this tree so far.
func (c *Context) Outgoing() []shuttle.Message { return slices.Clone(c.tree.outs) }

// DrainOutgoing returns and clears the tree's outgoing queue.
func (c *Context) DrainOutgoing() []shuttle.Message {
	out := c.tree.outs
	c.tree.outs = nil
	return out
}

// Child spawns a child actor at Self()+id. Priming messages are queued from
// the child to itself, so they pass its default admission rules.
func (c *Context) Child(id string, body Body, priming ...any) error {
	addr, err := c.self.Append(id)
	if err != nil {
		return err
	}
	if _, ok := c.children[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChild, addr)
	}
	for _, p := range priming {
		if p == nil {
			return fmt.Errorf("%w: nil priming message", ErrInvalidOut)
		}
	}

	child := newContext(c.tree, c, addr, body)
	c.children[id] = child
	c.childIDs = append(c.childIDs, id)

	for _, p := range priming {
		c.tree.outs = append(c.tree.outs, shuttle.NewMessage(addr, addr, p))
	}
	c.log.Debug("child spawned", slog.String("child", addr.String()), slog.Int("priming", len(priming)))
	return nil
}

func (c *Context) IsChild(id string) bool {
	_, ok := c.children[id]
	return ok
}

// Children returns the ids of the live children in creation order.
func (c *Context) Children() []string { return slices.Clone(c.childIDs) }

// ChildContext returns the context of a live child, or nil.
func (c *Context) ChildContext(id string) *Context { return c.children[id] }

func (c *Context) removeChild(id string) {
	child, ok := c.children[id]
	if !ok {
		return
	}
	delete(c.children, id)
	c.childIDs = slices.DeleteFunc(c.childIDs, func(s string) bool { return s == id })
	child.discard()
	if err := c.tree.cp.Delete(child.self); err != nil {
		c.log.Error("failed to delete checkpoint", slog.String("child", child.self.String()), slog.Any("error", err))
	}
}

// discard marks the subtree as discarded.
func (c *Context) discard() {
	c.walk(func(n *Context) {
		if n.state != StateFinished {
			n.state = StateDiscarded
		}
	})
}

// Intercept makes this actor see messages addressed to its descendants
// before they do.
func (c *Context) Intercept(intercept bool) { c.intercept = intercept }

func (c *Context) Intercepting() bool { return c.intercept }

// Forward tells the dispatcher what to do with an intercepted message once
// the current resumption returns.
func (c *Context) Forward(mode ForwardMode) { c.forward = mode }

// RuleSet exposes the admission policy for direct manipulation.
func (c *Context) RuleSet() *RuleSet { return c.rules }

func (c *Context) AllowAll() { c.rules.AllowAll() }
func (c *Context) BlockAll() { c.rules.RejectAll() }

func (c *Context) Allow(src shuttle.Address, children bool, types ...string) {
	c.rules.Allow(src, children, types...)
}

func (c *Context) Block(src shuttle.Address, children bool, types ...string) {
	c.rules.Reject(src, children, types...)
}

// Checkpoint requests that this actor's state, and that of its descendants,
// be persisted.
func (c *Context) Checkpoint(mode CheckpointMode) error {
	switch mode {
	case CheckpointNow:
		c.pending = CheckpointNone
		_, err := c.save()
		return err
	case CheckpointDeferred:
		c.pending = CheckpointDeferred
	default:
		c.pending = CheckpointNone
	}
	return nil
}

func (c *Context) save() (bool, error) {
	defer c.tree.metrics.CheckpointDuration().ObserveDuration()
	persisted, err := c.tree.cp.Save(c)
	if err != nil {
		c.log.Error("checkpoint failed", slog.Any("error", err))
		return false, err
	}
	c.tree.metrics.CheckpointSaved(persisted)
	return persisted, nil
}
