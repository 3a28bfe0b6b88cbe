package shuttle

import (
	"fmt"
	"log/slog"
)

// Table maps address prefixes to outgoing shuttles. It is owned by a single
// bus consumer and is not safe for concurrent use.
type Table struct {
	owner   string
	log     *slog.Logger
	metrics BusMetrics
	out     map[string]Shuttle
}

func NewTable(owner string, log *slog.Logger, metrics BusMetrics) *Table {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = NopBusMetrics()
	}
	return &Table{
		owner:   owner,
		log:     log,
		metrics: metrics,
		out:     make(map[string]Shuttle),
	}
}

// Add registers s. The owner's own prefix and already registered prefixes
// are refused.
func (t *Table) Add(s Shuttle) error {
	p := s.Prefix()
	if p == t.owner {
		return fmt.Errorf("shuttle prefix %q conflicts with owner", p)
	}
	if _, ok := t.out[p]; ok {
		return fmt.Errorf("shuttle prefix %q already registered", p)
	}
	t.out[p] = s
	t.log.Debug("outgoing shuttle added", slog.String("prefix", p))
	return nil
}

func (t *Table) Remove(prefix string) error {
	if _, ok := t.out[prefix]; !ok {
		return fmt.Errorf("shuttle prefix %q not registered", prefix)
	}
	delete(t.out, prefix)
	t.log.Debug("outgoing shuttle removed", slog.String("prefix", prefix))
	return nil
}

func (t *Table) Len() int { return len(t.out) }

// Route groups msgs by destination prefix, preserving their relative order,
// and sends each group through its shuttle. Messages without a registered
// shuttle are logged and dropped.
func (t *Table) Route(msgs []Message) {
	if len(msgs) == 0 {
		return
	}

	var order []string
	groups := make(map[string][]Message)
	for _, m := range msgs {
		dst := m.Destination()
		if dst.IsEmpty() {
			t.log.Error("dropping message without destination", slog.Any("message", m))
			t.metrics.MessageDropped(t.owner, "no_shuttle")
			continue
		}
		p := dst.Element(0)
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], m)
	}

	for _, p := range order {
		s, ok := t.out[p]
		if !ok {
			t.log.Error(
				"no outgoing shuttle for destination",
				slog.String("prefix", p),
				slog.Int("count", len(groups[p])),
			)
			t.metrics.MessageDropped(t.owner, "no_shuttle")
			continue
		}
		s.Send(groups[p]...)
		t.metrics.MessagesRouted(t.owner, p, len(groups[p]))
	}
}
