package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmehali/actors/core/shuttle"
)

const DefaultPrefix = "direct"

type DirectOptions struct {
	// Prefix is the address segment owned by the gateway (default "direct").
	Prefix     string
	Context    context.Context
	Log        *slog.Logger
	BusMetrics shuttle.BusMetrics
}

// Direct is a gateway whose inbox is read by application code instead of
// actors. Messages written through it are routed to outgoing shuttles;
// messages addressed to its prefix queue up until read.
type Direct struct {
	prefix   string
	self     shuttle.Address
	log      *slog.Logger
	bus      *shuttle.Bus
	incoming *shuttle.SimpleShuttle
	table    *shuttle.Table

	// read side
	inbox   *shuttle.Bus
	readSem chan struct{}
	pending []shuttle.Message

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewDirect(opts DirectOptions) (*Direct, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	self, err := shuttle.Of(opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway prefix %q: %w", opts.Prefix, err)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.BusMetrics == nil {
		opts.BusMetrics = shuttle.NopBusMetrics()
	}

	log := opts.Log.With(slog.String("gateway", opts.Prefix))
	bus := shuttle.NewBus(shuttle.BusOptions{Owner: opts.Prefix, Metrics: opts.BusMetrics})
	ctx, cancel := context.WithCancel(opts.Context)

	d := &Direct{
		prefix:   opts.Prefix,
		self:     self,
		log:      log,
		bus:      bus,
		incoming: shuttle.NewSimpleShuttle(opts.Prefix, bus, log),
		table:    shuttle.NewTable(opts.Prefix, log, opts.BusMetrics),
		inbox:    shuttle.NewBus(shuttle.BusOptions{Owner: opts.Prefix + ".inbox", Metrics: opts.BusMetrics}),
		readSem:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go d.run()
	return d, nil
}

func (d *Direct) Prefix() string                   { return d.prefix }
func (d *Direct) Address() shuttle.Address         { return d.self }
func (d *Direct) IncomingShuttle() shuttle.Shuttle { return d.incoming }
func (d *Direct) Done() <-chan struct{}            { return d.done }

func (d *Direct) AddOutgoingShuttle(s shuttle.Shuttle) {
	if err := d.bus.Add(shuttle.AddShuttle{Shuttle: s}); err != nil {
		d.log.Warn("cannot add outgoing shuttle", slog.String("prefix", s.Prefix()), slog.Any("error", err))
	}
}

func (d *Direct) RemoveOutgoingShuttle(prefix string) {
	if err := d.bus.Add(shuttle.RemoveShuttle{Prefix: prefix}); err != nil {
		d.log.Warn("cannot remove outgoing shuttle", slog.String("prefix", prefix), slog.Any("error", err))
	}
}

// WriteTo sends payload to dst with the gateway's own address as source.
func (d *Direct) WriteTo(dst shuttle.Address, payload any) error {
	return d.Write(d.self, dst, payload)
}

// Write sends payload from src, which must be below the gateway's prefix.
func (d *Direct) Write(src, dst shuttle.Address, payload any) error {
	return d.WriteMessages(shuttle.NewMessage(src, dst, payload))
}

func (d *Direct) WriteMessages(msgs ...shuttle.Message) error {
	for _, m := range msgs {
		switch {
		case !d.self.IsPrefixOf(m.Source()):
			return fmt.Errorf("%w: source %s is outside of %s", ErrInvalidMessage, m.Source(), d.self)
		case m.Destination().IsEmpty():
			return fmt.Errorf("%w: empty destination", ErrInvalidMessage)
		case m.Payload() == nil:
			return fmt.Errorf("%w: nil payload", ErrInvalidMessage)
		}
	}
	if err := d.bus.Add(shuttle.SendMessages{Messages: msgs}); err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return nil
}

// ReadMessage blocks until a message addressed to the gateway arrives.
func (d *Direct) ReadMessage(ctx context.Context) (shuttle.Message, error) {
	if err := d.acquire(ctx); err != nil {
		return shuttle.Message{}, err
	}
	defer d.release()

	if err := d.fill(ctx); err != nil {
		return shuttle.Message{}, err
	}
	m := d.pending[0]
	d.pending = d.pending[1:]
	return m, nil
}

// ReadMessages blocks until at least one message is available and returns
// every message received so far.
func (d *Direct) ReadMessages(ctx context.Context) ([]shuttle.Message, error) {
	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.release()

	if err := d.fill(ctx); err != nil {
		return nil, err
	}
	out := d.pending
	d.pending = nil
	return out, nil
}

// ReadPayload is ReadMessage without the envelope.
func (d *Direct) ReadPayload(ctx context.Context) (any, error) {
	m, err := d.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return m.Payload(), nil
}

// Read reads the next payload and asserts it to T.
func Read[T any](ctx context.Context, d *Direct) (out T, err error) {
	p, err := d.ReadPayload(ctx)
	if err != nil {
		return out, err
	}
	out, ok := p.(T)
	if !ok {
		return out, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedPayload, p, out)
	}
	return out, nil
}

func (d *Direct) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.readSem <- struct{}{}:
		return nil
	}
}

func (d *Direct) release() { <-d.readSem }

// fill makes sure pending holds at least one message. Callers hold readSem.
func (d *Direct) fill(ctx context.Context) error {
	for len(d.pending) == 0 {
		entries, err := d.inbox.Take(ctx)
		if err != nil {
			if errors.Is(err, shuttle.ErrBusClosed) {
				return ErrClosed
			}
			return err
		}
		for _, e := range entries {
			d.pending = append(d.pending, e.(shuttle.Message))
		}
	}
	return nil
}

// Close stops the gateway. Pending and future reads fail with ErrClosed.
func (d *Direct) Close() error {
	d.closeOnce.Do(func() {
		d.cancel()
		<-d.done
		d.bus.Close()
		d.inbox.Close()
		d.log.Debug("gateway closed")
	})
	return nil
}

var _ shuttle.Gateway = (*Direct)(nil)

func (d *Direct) run() {
	defer close(d.done)
	for {
		entries, err := d.bus.Take(d.ctx)
		if err != nil {
			return
		}
		for _, e := range entries {
			d.handle(e)
		}
	}
}

func (d *Direct) handle(e any) {
	switch e := e.(type) {
	case shuttle.AddShuttle:
		if err := d.table.Add(e.Shuttle); err != nil {
			d.log.Error("ignoring outgoing shuttle", slog.Any("error", err))
		}
	case shuttle.RemoveShuttle:
		if err := d.table.Remove(e.Prefix); err != nil {
			d.log.Warn("cannot remove outgoing shuttle", slog.Any("error", err))
		}
	case shuttle.SendMessages:
		var out []shuttle.Message
		for _, m := range e.Messages {
			if m.Destination().Element(0) == d.prefix {
				if err := d.inbox.Add(m); err != nil {
					d.log.Warn("dropping message", slog.Any("message", m), slog.Any("error", err))
				}
				continue
			}
			out = append(out, m)
		}
		d.table.Route(out)
	default:
		d.log.Error("unknown bus entry", slog.String("type", fmt.Sprintf("%T", e)))
	}
}
