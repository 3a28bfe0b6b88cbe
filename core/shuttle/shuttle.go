package shuttle

type (
	// Shuttle is the write side of a subsystem's inbox. It is bound to exactly
	// one address prefix and only accepts messages whose destination starts
	// with that prefix.
	Shuttle interface {
		Prefix() string
		// Send enqueues messages. Delivery is fire-and-forget: invalid messages
		// are logged and dropped, the caller is never notified.
		Send(msgs ...Message)
	}

	// Gateway is a component with one incoming shuttle that forwards its
	// outgoing traffic to registered outgoing shuttles.
	Gateway interface {
		IncomingShuttle() Shuttle
		AddOutgoingShuttle(s Shuttle)
		RemoveOutgoingShuttle(prefix string)
		Close() error
	}
)

// Entries understood by every bus consumer.
type (
	AddShuttle    struct{ Shuttle Shuttle }
	RemoveShuttle struct{ Prefix string }
	SendMessages  struct{ Messages []Message }
)
