package shuttle

import (
	"fmt"
	"log/slog"
)

// SimpleShuttle validates outgoing messages against its prefix and forwards
// them to a [Bus] as a single [SendMessages] entry.
type SimpleShuttle struct {
	prefix  string
	bus     *Bus
	log     *slog.Logger
	metrics BusMetrics
}

func NewSimpleShuttle(prefix string, bus *Bus, log *slog.Logger) *SimpleShuttle {
	if prefix == "" {
		panic("shuttle: prefix is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SimpleShuttle{
		prefix:  prefix,
		bus:     bus,
		log:     log.With(slog.String("shuttle", prefix)),
		metrics: bus.metrics,
	}
}

func (s *SimpleShuttle) Prefix() string { return s.prefix }

func (s *SimpleShuttle) Send(msgs ...Message) {
	accepted := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if err := s.check(m); err != nil {
			s.log.Error("dropping message", slog.Any("message", m), slog.Any("error", err))
			s.metrics.MessageDropped(s.prefix, "prefix_mismatch")
			continue
		}
		accepted = append(accepted, m)
	}
	if len(accepted) == 0 {
		return
	}

	if err := s.bus.Add(SendMessages{Messages: accepted}); err != nil {
		s.log.Warn("dropping messages", slog.Int("count", len(accepted)), slog.Any("error", err))
		s.metrics.MessageDropped(s.prefix, "bus_closed")
	}
}

func (s *SimpleShuttle) check(m Message) error {
	dst := m.Destination()
	if dst.IsEmpty() || dst.Element(0) != s.prefix {
		return fmt.Errorf("%w: shuttle=%s dst=%s", ErrPrefixMismatch, s.prefix, dst)
	}
	return nil
}

var _ Shuttle = (*SimpleShuttle)(nil)
