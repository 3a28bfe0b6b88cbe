package actor

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/mmehali/actors/core/shuttle"
)

type outcome int

const (
	outcomeRunning outcome = iota // still alive, or the message was not admitted
	outcomeRemoved                // a non-root actor finished and left its parent
	outcomeDiscard                // the whole tree must go
)

// Fire dispatches one message into the tree that ctx belongs to. Dispatch
// always starts at the root and walks down towards dst, resuming every
// intercepting ancestor on the way and finally the destination itself.
//
// Fire returns true when the tree has been discarded: its root finished,
// an actor faulted, or an actor broke the forwarding protocol. The tree's
// checkpoints are deleted before Fire returns. A discarded tree must not be
// fired again.
func Fire(ctx *Context, src, dst shuttle.Address, t time.Time, payload any) bool {
	root := ctx.root()
	if root.state == StateDiscarded || root.state == StateFinished {
		root.log.Warn("dropping message for terminated actor", slog.String("dst", dst.String()))
		return true
	}
	if !root.self.IsPrefixOf(dst) {
		root.log.Warn("dropping message outside of actor tree", slog.String("dst", dst.String()))
		return false
	}
	if payload == nil {
		root.log.Warn("dropping message without payload", slog.String("dst", dst.String()))
		return false
	}

	if !fireRecurse(root, src, dst, t, payload) {
		return false
	}

	root.discard()
	root.tree.metrics.TreeDiscarded()
	if err := root.tree.cp.Delete(root.self); err != nil {
		root.log.Error("failed to delete checkpoint", slog.Any("error", err))
	}
	return true
}

func fireRecurse(c *Context, src, dst shuttle.Address, t time.Time, payload any) bool {
	if c.self.Equal(dst) {
		c.forward = ForwardNone
		return invoke(c, src, dst, t, payload) == outcomeDiscard
	}

	intercepted := c.intercept
	if intercepted {
		c.forward = ForwardNone
		switch invoke(c, src, dst, t, payload) {
		case outcomeDiscard:
			return true
		case outcomeRemoved:
			return false
		}
		if c.forward == ForwardNone {
			return false
		}
	}

	suffix, err := dst.RemovePrefix(c.self)
	if err != nil || suffix.IsEmpty() {
		c.log.Error("cannot route message", slog.String("dst", dst.String()), slog.Any("error", err))
		return false
	}

	if child := c.children[suffix.Element(0)]; child != nil {
		if fireRecurse(child, src, dst, t, payload) {
			return true
		}
	} else {
		c.log.Debug("no actor at address", slog.String("dst", dst.String()))
		c.tree.metrics.MessageDropped("no_actor")
	}

	mode := c.forward
	c.forward = ForwardNone
	if !intercepted || mode != ForwardAndReturn {
		return false
	}

	switch invoke(c, src, dst, t, payload) {
	case outcomeDiscard:
		return true
	case outcomeRemoved:
		return false
	}
	if c.forward != ForwardNone {
		c.log.Error(
			"actor requested forwarding while being released from a forward",
			slog.String("dst", dst.String()),
			slog.String("mode", c.forward.String()),
		)
		c.tree.metrics.ActorFault("protocol")
		return true
	}
	return false
}

func invoke(c *Context, src, dst shuttle.Address, t time.Time, payload any) outcome {
	m := c.tree.metrics
	msgType := TypeOf(payload)

	if c.rules.Evaluate(src, msgType) != ActionAllow {
		c.log.Debug(
			"message rejected by rule set",
			slog.String("src", src.String()),
			slog.String("dst", dst.String()),
			slog.String("msg_type", msgType),
		)
		m.MessageRejected(msgType)
		return outcomeRunning
	}

	c.log.Debug("processing message", slog.String("src", src.String()), slog.String("dst", dst.String()), slog.String("msg_type", msgType))

	c.in = payload
	c.source = src
	c.dest = dst
	c.time = t
	c.state = StateRunning

	timer := m.MessageDuration(msgType)
	done, err := c.resume()
	timer.ObserveDuration()

	c.in = nil
	c.source = shuttle.Empty()
	c.dest = shuttle.Empty()
	c.time = time.Time{}

	if err != nil {
		c.log.Error("actor failed, discarding its tree", slog.String("msg_type", msgType), slog.Any("error", err))
		m.MessageProcessed(msgType, false)
		m.ActorFault("error")
		c.state = StateDiscarded
		return outcomeDiscard
	}
	m.MessageProcessed(msgType, true)

	if !done {
		c.state = StateSuspended
		if c.pending == CheckpointDeferred {
			c.pending = CheckpointNone
			if _, err := c.save(); err != nil {
				c.log.Error("deferred checkpoint failed, discarding its tree", slog.String("msg_type", msgType), slog.Any("error", err))
				m.ActorFault("checkpoint")
				c.state = StateDiscarded
				return outcomeDiscard
			}
		}
		return outcomeRunning
	}

	c.state = StateFinished
	c.pending = CheckpointNone
	if c.parent == nil {
		c.log.Debug("actor finished")
		return outcomeDiscard
	}

	c.log.Debug("child actor finished")
	c.parent.removeChild(c.self.Last())
	return outcomeRemoved
}

// resume runs the body once, converting panics into errors.
func (c *Context) resume() (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("actor panicked", slog.Any("recovered", r), slog.String("stack", string(debug.Stack())))
			c.tree.metrics.ActorFault("panic")
			done, err = false, fmt.Errorf("%w: %v", ErrBodyPanic, r)
		}
	}()
	return c.body.Resume(c)
}
