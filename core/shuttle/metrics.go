package shuttle

// BusMetrics defines the metrics interface for buses and shuttle tables.
// All methods are thread-safe.
type BusMetrics interface {
	// BusDepth reports the number of entries waiting on the bus of owner.
	BusDepth(owner string, depth int)
	// MessagesRouted counts messages handed to an outgoing shuttle.
	MessagesRouted(owner, prefix string, n int)
	// MessageDropped counts messages that could not be routed.
	// Reasons: no_shuttle, prefix_mismatch, bus_closed
	MessageDropped(owner, reason string)
}

// nopBusMetrics is a no-op implementation of BusMetrics.
type nopBusMetrics struct{}

func (nopBusMetrics) BusDepth(string, int)               {}
func (nopBusMetrics) MessagesRouted(string, string, int) {}
func (nopBusMetrics) MessageDropped(string, string)      {}

// NopBusMetrics returns a no-op BusMetrics implementation.
func NopBusMetrics() BusMetrics { return nopBusMetrics{} }
