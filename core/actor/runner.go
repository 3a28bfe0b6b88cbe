package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmehali/actors/core/cache"
	"github.com/mmehali/actors/core/shuttle"
)

// Factory creates a top-level actor on first contact. It returns the body
// and the priming messages the actor receives before the message that
// caused its creation.
type Factory func(id string) (body Body, priming []any, err error)

type RunnerOptions struct {
	// Prefix is the address segment owned by the runner. Required.
	Prefix       string
	Context      context.Context
	Log          *slog.Logger
	Checkpointer Checkpointer
	Metrics      ActorMetrics
	BusMetrics   shuttle.BusMetrics
	Clock        func() time.Time
	// Factory, if set, creates actors for messages addressed to unknown ids.
	Factory Factory
	// MaxActive bounds the number of top-level actors held in memory. The
	// least recently used actor is checkpointed and unloaded, and restored
	// when a message addresses it again. Zero means unbounded. Requires a
	// Checkpointer.
	MaxActive int
}

// Runner hosts top-level actors under a single address prefix. All actor
// code runs on one consumer goroutine fed by the runner's bus.
type Runner struct {
	prefix   string
	self     shuttle.Address
	log      *slog.Logger
	bus      *shuttle.Bus
	incoming *shuttle.SimpleShuttle
	table    *shuttle.Table
	metrics  ActorMetrics
	cp       Checkpointer
	clock    func() time.Time
	factory  Factory
	ctxOpts  ContextOptions

	// consumer goroutine only
	actors map[string]*Context
	active *cache.LRU[string, struct{}] // nil when unbounded
	local  []shuttle.Message

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

type (
	addActor struct {
		id      string
		body    Body
		priming []any
	}
	removeActor struct {
		id string
	}
)

func NewRunner(opts RunnerOptions) (*Runner, error) {
	self, err := shuttle.Of(opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid runner prefix %q: %w", opts.Prefix, err)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.MaxActive < 0 {
		return nil, fmt.Errorf("invalid max active actors %d", opts.MaxActive)
	}
	if opts.MaxActive > 0 && opts.Checkpointer == nil {
		return nil, errors.New("bounding active actors requires a checkpointer")
	}
	if opts.Checkpointer == nil {
		opts.Checkpointer = NopCheckpointer()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopActorMetrics()
	}
	if opts.BusMetrics == nil {
		opts.BusMetrics = shuttle.NopBusMetrics()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	log := opts.Log.With(slog.String("runner", opts.Prefix))
	bus := shuttle.NewBus(shuttle.BusOptions{Owner: opts.Prefix, Metrics: opts.BusMetrics})
	ctx, cancel := context.WithCancel(opts.Context)

	r := &Runner{
		prefix:   opts.Prefix,
		self:     self,
		log:      log,
		bus:      bus,
		incoming: shuttle.NewSimpleShuttle(opts.Prefix, bus, log),
		table:    shuttle.NewTable(opts.Prefix, log, opts.BusMetrics),
		metrics:  opts.Metrics,
		cp:       opts.Checkpointer,
		clock:    opts.Clock,
		factory:  opts.Factory,
		ctxOpts: ContextOptions{
			Log:          log,
			Metrics:      opts.Metrics,
			Checkpointer: opts.Checkpointer,
		},
		actors: map[string]*Context{},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if opts.MaxActive > 0 {
		r.active = cache.NewLRU(cache.LRUOpts[string, struct{}]{
			Size:    opts.MaxActive,
			OnEvict: func(id string, _ struct{}) { r.passivate(id) },
		})
	}

	go r.run()
	return r, nil
}

func (r *Runner) Prefix() string                   { return r.prefix }
func (r *Runner) IncomingShuttle() shuttle.Shuttle { return r.incoming }

// Done is closed once the consumer goroutine has stopped.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) AddOutgoingShuttle(s shuttle.Shuttle) {
	if err := r.bus.Add(shuttle.AddShuttle{Shuttle: s}); err != nil {
		r.log.Warn("cannot add outgoing shuttle", slog.String("prefix", s.Prefix()), slog.Any("error", err))
	}
}

func (r *Runner) RemoveOutgoingShuttle(prefix string) {
	if err := r.bus.Add(shuttle.RemoveShuttle{Prefix: prefix}); err != nil {
		r.log.Warn("cannot remove outgoing shuttle", slog.String("prefix", prefix), slog.Any("error", err))
	}
}

// AddActor schedules the creation of a top-level actor at prefix:id. The
// priming messages are delivered to it, from itself, before any other
// message. Creation failures are logged by the consumer.
func (r *Runner) AddActor(id string, body Body, priming ...any) error {
	if _, err := r.self.Append(id); err != nil {
		return err
	}
	if body == nil {
		return errors.New("actor body is required")
	}
	if err := r.bus.Add(addActor{id: id, body: body, priming: priming}); err != nil {
		return fmt.Errorf("%w: %w", ErrRunnerClosed, err)
	}
	return nil
}

// RemoveActor schedules the removal of a top-level actor and its
// checkpoints.
func (r *Runner) RemoveActor(id string) error {
	if err := r.bus.Add(removeActor{id: id}); err != nil {
		return fmt.Errorf("%w: %w", ErrRunnerClosed, err)
	}
	return nil
}

// Close stops the consumer, waits for it and closes the bus. Queued
// messages are discarded.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		<-r.done
		r.bus.Close()
		r.log.Debug("runner closed")
	})
	return nil
}

var _ shuttle.Gateway = (*Runner)(nil)

// ---- consumer ----

func (r *Runner) run() {
	defer close(r.done)

	r.restore()

	for {
		entries, err := r.bus.Take(r.ctx)
		if err != nil {
			return
		}
		for _, e := range entries {
			if r.ctx.Err() != nil {
				return
			}
			r.handle(e)
			r.drainLocal()
		}
	}
}

// restore loads every checkpointed top-level actor. With a bound on active
// actors they are restored on demand instead.
func (r *Runner) restore() {
	if r.active != nil {
		return
	}
	addrs, err := r.cp.Addresses()
	if err != nil {
		r.log.Error("failed to list checkpoints", slog.Any("error", err))
		return
	}
	restored := 0
	for _, addr := range addrs {
		if addr.Size() != 2 || addr.Element(0) != r.prefix {
			continue
		}
		c, err := r.cp.Restore(addr)
		if err != nil {
			r.log.Error("failed to restore actor", slog.String("actor", addr.String()), slog.Any("error", err))
			continue
		}
		c.bind(r.ctxOpts)
		r.actors[addr.Element(1)] = c
		restored++
	}
	if restored > 0 {
		r.log.Info("actors restored", slog.Int("count", restored))
		r.metrics.ActorsLive(r.prefix, len(r.actors))
	}
}

func (r *Runner) handle(e any) {
	switch e := e.(type) {
	case shuttle.AddShuttle:
		if err := r.table.Add(e.Shuttle); err != nil {
			r.log.Error("ignoring outgoing shuttle", slog.Any("error", err))
		}
	case shuttle.RemoveShuttle:
		if err := r.table.Remove(e.Prefix); err != nil {
			r.log.Warn("cannot remove outgoing shuttle", slog.Any("error", err))
		}
	case shuttle.SendMessages:
		for _, m := range e.Messages {
			r.deliver(m, true)
			r.drainLocal()
		}
	case addActor:
		r.addActor(e.id, e.body, e.priming)
	case removeActor:
		r.removeActor(e.id)
	default:
		r.log.Error("unknown bus entry", slog.String("type", fmt.Sprintf("%T", e)))
	}
}

// drainLocal delivers messages the runner's actors sent to each other.
// They go before the next bus entry.
func (r *Runner) drainLocal() {
	for len(r.local) > 0 {
		if r.ctx.Err() != nil {
			r.local = nil
			return
		}
		m := r.local[0]
		r.local = r.local[1:]
		r.deliver(m, true)
	}
	r.local = nil
}

func (r *Runner) addActor(id string, body Body, priming []any) *Context {
	if _, ok := r.actors[id]; ok {
		r.log.Error("cannot add actor", slog.String("id", id), slog.Any("error", ErrActorExists))
		return nil
	}
	addr, err := r.self.Append(id)
	if err != nil {
		r.log.Error("cannot add actor", slog.String("id", id), slog.Any("error", err))
		return nil
	}
	if c, err := r.activate(id); err != nil {
		r.log.Error("cannot add actor", slog.String("id", id), slog.Any("error", err))
		return nil
	} else if c != nil {
		r.log.Info("actor restored from checkpoint, ignoring add", slog.String("actor", addr.String()))
		return nil
	}

	c := NewContext(addr, body, r.ctxOpts)
	r.actors[id] = c
	r.touch(id)
	for _, p := range priming {
		if p == nil {
			r.log.Warn("skipping nil priming message", slog.String("actor", addr.String()))
			continue
		}
		r.local = append(r.local, shuttle.NewMessage(addr, addr, p))
	}
	r.metrics.ActorsLive(r.prefix, len(r.actors))
	r.log.Debug("actor added", slog.String("actor", addr.String()), slog.Int("priming", len(priming)))
	return c
}

func (r *Runner) removeActor(id string) {
	addr, err := r.self.Append(id)
	if err != nil {
		r.log.Warn("cannot remove actor", slog.String("id", id), slog.Any("error", err))
		return
	}
	if c, ok := r.actors[id]; ok {
		c.discard()
		r.forget(id)
	} else {
		r.log.Debug("removing actor that is not loaded", slog.String("id", id))
	}
	if err := r.cp.Delete(addr); err != nil {
		r.log.Error("failed to delete checkpoint", slog.String("actor", addr.String()), slog.Any("error", err))
	}
	r.log.Debug("actor removed", slog.String("actor", addr.String()))
}

// touch marks a top-level actor as most recently used, which may
// passivate another one.
func (r *Runner) touch(id string) {
	if r.active != nil {
		r.active.Put(id, struct{}{})
	}
}

// forget drops a top-level actor from memory.
func (r *Runner) forget(id string) {
	delete(r.actors, id)
	if r.active != nil {
		r.active.Delete(id)
	}
	r.metrics.ActorsLive(r.prefix, len(r.actors))
}

// activate restores a checkpointed top-level actor that is not loaded. It
// returns nil and no error when there is no checkpoint.
func (r *Runner) activate(id string) (*Context, error) {
	addr, err := r.self.Append(id)
	if err != nil {
		return nil, err
	}
	c, err := r.cp.Restore(addr)
	if errors.Is(err, ErrNoCheckpoint) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	c.bind(r.ctxOpts)
	r.actors[id] = c
	r.touch(id)
	r.metrics.ActorActivated()
	r.metrics.ActorsLive(r.prefix, len(r.actors))
	r.log.Debug("actor activated", slog.String("actor", addr.String()))
	return c, nil
}

// passivate checkpoints a top-level actor and unloads it. An actor whose
// checkpoint fails stays loaded.
func (r *Runner) passivate(id string) {
	c, ok := r.actors[id]
	if !ok {
		return
	}
	if _, err := c.save(); err != nil {
		r.log.Error("cannot passivate actor", slog.String("actor", c.self.String()), slog.Any("error", err))
		return
	}
	delete(r.actors, id)
	r.metrics.ActorPassivated()
	r.metrics.ActorsLive(r.prefix, len(r.actors))
	r.log.Debug("actor passivated", slog.String("actor", c.self.String()))
}

func (r *Runner) deliver(m shuttle.Message, create bool) {
	dst := m.Destination()
	if dst.Size() < 2 || dst.Element(0) != r.prefix {
		r.log.Warn("dropping message not addressed to an actor", slog.Any("message", m))
		r.metrics.MessageDropped("no_actor")
		return
	}

	id := dst.Element(1)
	c, ok := r.actors[id]
	if !ok {
		var err error
		if c, err = r.activate(id); err != nil {
			r.log.Error("failed to restore actor", slog.String("id", id), slog.Any("error", err))
			r.metrics.MessageDropped("restore")
			return
		}
	}
	if c == nil {
		if !create || r.factory == nil {
			r.log.Debug("dropping message for unknown actor", slog.String("dst", dst.String()))
			r.metrics.MessageDropped("no_actor")
			return
		}
		r.spawn(id, m)
		return
	}
	r.touch(id)

	if Fire(c, m.Source(), dst, r.clock(), m.Payload()) {
		r.forget(id)
	}
	r.dispatch(c.DrainOutgoing())
}

// spawn creates an actor through the factory and delivers its priming
// messages ahead of the message that triggered it.
func (r *Runner) spawn(id string, trigger shuttle.Message) {
	body, priming, err := r.factory(id)
	if err != nil {
		r.log.Error("actor factory failed", slog.String("id", id), slog.Any("error", err))
		r.metrics.MessageDropped("factory")
		return
	}
	c := r.addActor(id, body, nil)
	if c == nil {
		return
	}
	for _, p := range priming {
		if p == nil {
			continue
		}
		r.deliver(shuttle.NewMessage(c.self, c.self, p), false)
	}
	r.deliver(trigger, false)
}

// dispatch sends local messages to the local FIFO and everything else
// through the outgoing shuttles.
func (r *Runner) dispatch(outs []shuttle.Message) {
	if len(outs) == 0 {
		return
	}
	remote := outs[:0:0]
	for _, m := range outs {
		if m.Destination().Element(0) == r.prefix {
			r.local = append(r.local, m)
			continue
		}
		remote = append(remote, m)
	}
	r.table.Route(remote)
}
