package actor

import (
	"errors"
	"fmt"

	"github.com/mmehali/actors/core/shuttle"
)

// ForwardInfo is where a proxy should relay the current message. From is
// always at or below the proxy's own address and can be passed to
// [Context.OutFrom] as is.
type ForwardInfo struct {
	From shuttle.Address
	To   shuttle.Address
}

// ProxyHelper computes relay addresses for an actor that sits between a
// proxied actor and the outside world. Outside parties address the proxied
// actor as proxy+suffix; the proxied actor addresses outside parties as
// proxy+destination.
type ProxyHelper struct {
	ctx         *Context
	actorPrefix shuttle.Address
}

func NewProxyHelper(ctx *Context, actorPrefix shuttle.Address) (*ProxyHelper, error) {
	if ctx == nil {
		return nil, errors.New("proxy: context is required")
	}
	if actorPrefix.IsEmpty() {
		return nil, errors.New("proxy: actor prefix is required")
	}
	return &ProxyHelper{ctx: ctx, actorPrefix: actorPrefix}, nil
}

// FromActor reports whether the current message was sent by the proxied
// actor or one of its children.
func (p *ProxyHelper) FromActor() bool { return p.From(p.actorPrefix) }

func (p *ProxyHelper) From(prefix shuttle.Address) bool {
	return prefix.IsPrefixOf(p.ctx.Source())
}

// Outbound relays a message from the proxied actor to the outside. The
// destination suffix below the proxy becomes the target and the sender's
// suffix below the actor prefix is kept below the proxy.
func (p *ProxyHelper) Outbound() (ForwardInfo, error) {
	self := p.ctx.Self()
	to, err := p.ctx.Destination().RemovePrefix(self)
	if err != nil {
		return ForwardInfo{}, err
	}
	if to.IsEmpty() {
		return ForwardInfo{}, fmt.Errorf("proxy: message addressed to %s has no target below it", self)
	}
	fromSuffix, err := p.ctx.Source().RemovePrefix(p.actorPrefix)
	if err != nil {
		return ForwardInfo{}, err
	}
	return ForwardInfo{From: self.AppendSuffix(fromSuffix), To: to}, nil
}

// Inbound relays a message from the outside to the proxied actor. The
// original sender is kept below the proxy so replies travel back through
// it.
func (p *ProxyHelper) Inbound() (ForwardInfo, error) {
	self := p.ctx.Self()
	suffix, err := p.ctx.Destination().RemovePrefix(self)
	if err != nil {
		return ForwardInfo{}, err
	}
	return ForwardInfo{
		From: self.AppendSuffix(p.ctx.Source()),
		To:   p.actorPrefix.AppendSuffix(suffix),
	}, nil
}
