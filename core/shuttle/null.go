package shuttle

import "sync"

// NullShuttle accepts and discards every message.
type NullShuttle struct{ prefix string }

func NewNullShuttle(prefix string) *NullShuttle { return &NullShuttle{prefix: prefix} }

func (n *NullShuttle) Prefix() string  { return n.prefix }
func (n *NullShuttle) Send(...Message) {}

// CaptureShuttle records every message sent through it.
type CaptureShuttle struct {
	prefix string

	mu   sync.Mutex
	msgs []Message
	sent chan struct{}
}

func NewCaptureShuttle(prefix string) *CaptureShuttle {
	return &CaptureShuttle{prefix: prefix, sent: make(chan struct{}, 1)}
}

func (c *CaptureShuttle) Prefix() string { return c.prefix }

func (c *CaptureShuttle) Send(msgs ...Message) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msgs...)
	c.mu.Unlock()
	select {
	case c.sent <- struct{}{}:
	default:
	}
}

// Sent is signalled after each Send call.
func (c *CaptureShuttle) Sent() <-chan struct{} { return c.sent }

// Drain returns and clears the captured messages.
func (c *CaptureShuttle) Drain() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.msgs
	c.msgs = nil
	return out
}

var (
	_ Shuttle = (*NullShuttle)(nil)
	_ Shuttle = (*CaptureShuttle)(nil)
)
