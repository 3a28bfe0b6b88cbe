package shuttle

import (
	"context"
	"sync"
)

type BusOptions struct {
	// Owner names the consumer of the bus in metrics.
	Owner   string
	Metrics BusMetrics
}

// Bus is an unbounded, strictly ordered inbox with a single consumer.
// Producers call [Bus.Add] from any goroutine; the consumer drains entries
// with [Bus.Take] in the order they were added.
type Bus struct {
	mu      sync.Mutex
	entries []any
	closed  bool
	notify  chan struct{}

	owner   string
	metrics BusMetrics
}

func NewBus(opts BusOptions) *Bus {
	if opts.Metrics == nil {
		opts.Metrics = NopBusMetrics()
	}
	return &Bus{
		notify:  make(chan struct{}, 1),
		owner:   opts.Owner,
		metrics: opts.Metrics,
	}
}

// Add appends entries to the bus. It fails with [ErrBusClosed] once the bus
// has been closed.
func (b *Bus) Add(entries ...any) error {
	if len(entries) == 0 {
		return nil
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.entries = append(b.entries, entries...)
	depth := len(b.entries)
	b.mu.Unlock()

	b.metrics.BusDepth(b.owner, depth)

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// Take blocks until at least one entry is available and returns every
// pending entry in arrival order. It returns ctx.Err() when ctx is done and
// ErrBusClosed when the bus is closed.
func (b *Bus) Take(ctx context.Context) ([]any, error) {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return nil, ErrBusClosed
		}
		if len(b.entries) > 0 {
			out := b.entries
			b.entries = nil
			b.mu.Unlock()
			b.metrics.BusDepth(b.owner, 0)
			return out, nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.notify:
		}
	}
}

// Len returns a snapshot of the number of pending entries.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Close refuses further entries and discards the ones still queued.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.entries = nil

	select {
	case b.notify <- struct{}{}:
	default:
	}
}
