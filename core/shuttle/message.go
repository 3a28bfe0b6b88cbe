package shuttle

import (
	"fmt"
	"log/slog"
)

// Message is an immutable (source, destination, payload) triple.
type Message struct {
	source      Address
	destination Address
	payload     any
}

func NewMessage(src, dst Address, payload any) Message {
	return Message{source: src, destination: dst, payload: payload}
}

func (m Message) Source() Address      { return m.source }
func (m Message) Destination() Address { return m.destination }
func (m Message) Payload() any         { return m.payload }

func (m Message) String() string {
	return fmt.Sprintf("%s -> %s: %T", m.source, m.destination, m.payload)
}

func (m Message) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("src", m.source.String()),
		slog.String("dst", m.destination.String()),
		slog.String("payload_type", fmt.Sprintf("%T", m.payload)),
	)
}
