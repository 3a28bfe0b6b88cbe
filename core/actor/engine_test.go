package actor

import (
	"errors"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmehali/actors/core/shuttle"
)

var (
	rootAddr = shuttle.MustParse("runner:root")
	extAddr  = shuttle.MustParse("ext:client")
	epoch    = time.Unix(1_700_000_000, 0)
)

func fire(c *Context, src, dst shuttle.Address, payload any) bool {
	return Fire(c, src, dst, epoch, payload)
}

func childAddr(id string) shuttle.Address {
	a, err := rootAddr.Append(id)
	if err != nil {
		panic(err)
	}
	return a
}

// trace records which actor saw which payload, in order.
type trace struct {
	entries []string
}

func (tr *trace) add(who string, payload any) {
	tr.entries = append(tr.entries, who+"="+TypeOf(payload)+":"+payloadString(payload))
}

func payloadString(p any) string {
	if s, ok := p.(string); ok {
		return s
	}
	return "?"
}

// openBody allows everything on its first resumption and records every
// message after that.
func openBody(tr *trace, who string, after func(ctx *Context) (bool, error)) BodyFunc {
	started := false
	return func(ctx *Context) (bool, error) {
		if !started {
			started = true
			ctx.AllowAll()
			return false, nil
		}
		tr.add(who, ctx.In())
		if after != nil {
			return after(ctx)
		}
		return false, nil
	}
}

func TestFire_self_send(t *testing.T) {
	var got []any
	c := NewContext(rootAddr, BodyFunc(func(ctx *Context) (bool, error) {
		got = append(got, ctx.In())
		require.Equal(t, rootAddr, ctx.Source())
		require.Equal(t, rootAddr, ctx.Destination())
		require.Equal(t, epoch, ctx.Time())
		if ctx.In() == "start" {
			require.NoError(t, ctx.Out(ctx.Self(), "hi"))
		}
		return false, nil
	}), ContextOptions{})

	require.False(t, fire(c, rootAddr, rootAddr, "start"))
	outs := c.DrainOutgoing()
	require.Len(t, outs, 1)
	require.Equal(t, rootAddr, outs[0].Source())
	require.Equal(t, rootAddr, outs[0].Destination())

	require.False(t, fire(c, outs[0].Source(), outs[0].Destination(), outs[0].Payload()))
	require.Equal(t, []any{"start", "hi"}, got)
	require.Equal(t, StateSuspended, c.State())
}

func TestFire_default_rules_admit_only_self(t *testing.T) {
	resumed := 0
	c := NewContext(rootAddr, BodyFunc(func(ctx *Context) (bool, error) {
		resumed++
		return false, nil
	}), ContextOptions{})

	for _, src := range []shuttle.Address{extAddr, childAddr("kid"), rootAddr.Parent()} {
		require.False(t, fire(c, src, rootAddr, "nope"))
	}
	require.Zero(t, resumed)
	require.Equal(t, StateCreated, c.State())
	require.Nil(t, c.In())
	require.True(t, c.Source().IsEmpty())
	require.Empty(t, c.Outgoing())

	require.False(t, fire(c, rootAddr, rootAddr, "yes"))
	require.Equal(t, 1, resumed)
}

func TestFire_outside_tree(t *testing.T) {
	resumed := false
	c := NewContext(rootAddr, BodyFunc(func(*Context) (bool, error) {
		resumed = true
		return false, nil
	}), ContextOptions{})
	require.False(t, fire(c, rootAddr, shuttle.MustParse("runner:other"), "x"))
	require.False(t, resumed)
}

func TestFire_transient_fields_cleared(t *testing.T) {
	c := NewContext(rootAddr, BodyFunc(func(*Context) (bool, error) { return false, nil }), ContextOptions{})
	require.False(t, fire(c, rootAddr, rootAddr, "x"))
	require.Nil(t, c.In())
	require.True(t, c.Source().IsEmpty())
	require.True(t, c.Destination().IsEmpty())
	require.True(t, c.Time().IsZero())
}

func TestContext_child_priming(t *testing.T) {
	tr := &trace{}
	c := NewContext(rootAddr, BodyFunc(func(ctx *Context) (bool, error) {
		return false, ctx.Child("kid", openBody(tr, "kid", nil), "p1", "p2")
	}), ContextOptions{})

	require.False(t, fire(c, rootAddr, rootAddr, "spawn"))
	require.True(t, c.IsChild("kid"))
	require.Equal(t, []string{"kid"}, c.Children())
	require.Equal(t, childAddr("kid"), c.ChildContext("kid").Self())

	outs := c.DrainOutgoing()
	require.Len(t, outs, 2)
	for i, p := range []string{"p1", "p2"} {
		assert.Equal(t, childAddr("kid"), outs[i].Source())
		assert.Equal(t, childAddr("kid"), outs[i].Destination())
		assert.Equal(t, p, outs[i].Payload())
	}

	// priming passes the child's default rules
	for _, m := range outs {
		require.False(t, fire(c, m.Source(), m.Destination(), m.Payload()))
	}
	require.Equal(t, []string{"kid=string:p2"}, tr.entries)
}

func TestContext_child_duplicate(t *testing.T) {
	var errs []error
	c := NewContext(rootAddr, BodyFunc(func(ctx *Context) (bool, error) {
		errs = append(errs,
			ctx.Child("kid", BodyFunc(func(*Context) (bool, error) { return false, nil })),
			ctx.Child("kid", BodyFunc(func(*Context) (bool, error) { return false, nil })),
			ctx.Child("a:b", BodyFunc(func(*Context) (bool, error) { return false, nil })),
		)
		return false, nil
	}), ContextOptions{})

	require.False(t, fire(c, rootAddr, rootAddr, "spawn"))
	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], ErrDuplicateChild)
	require.ErrorIs(t, errs[2], shuttle.ErrMalformedAddress)
	require.Equal(t, []string{"kid"}, c.Children())
}

// newFamily builds an open root with two open children, "a" and "b".
func newFamily(t *testing.T, tr *trace, rootAfter, childAfter func(ctx *Context) (bool, error)) *Context {
	t.Helper()
	c := NewContext(rootAddr, openBody(tr, "root", rootAfter), ContextOptions{})
	require.False(t, fire(c, rootAddr, rootAddr, "open"))
	for _, id := range []string{"a", "b"} {
		require.NoError(t, c.Child(id, openBody(tr, id, childAfter)))
		child := c.ChildContext(id)
		require.False(t, fire(c, child.Self(), child.Self(), "open"))
	}
	c.DrainOutgoing()
	tr.entries = nil
	return c
}

func TestFire_routes_to_child_without_intercept(t *testing.T) {
	tr := &trace{}
	c := newFamily(t, tr, nil, nil)

	require.False(t, fire(c, extAddr, childAddr("a"), "m1"))
	require.False(t, fire(c, extAddr, childAddr("b"), "m2"))
	require.Equal(t, []string{"a=string:m1", "b=string:m2"}, tr.entries)
}

func TestFire_missing_child_dropped(t *testing.T) {
	tr := &trace{}
	c := newFamily(t, tr, nil, nil)
	require.False(t, fire(c, extAddr, childAddr("ghost"), "m"))
	require.False(t, fire(c, extAddr, childAddr("a").AppendSuffix(shuttle.MustParse("deeper")), "m"))
	require.Empty(t, tr.entries)
	require.Equal(t, StateSuspended, c.State())
}

func TestFire_intercept_without_forward_stops(t *testing.T) {
	tr := &trace{}
	c := newFamily(t, tr, nil, nil)
	c.Intercept(true)

	require.False(t, fire(c, extAddr, childAddr("a"), "m"))
	require.Equal(t, []string{"root=string:m"}, tr.entries)
}

func TestFire_intercept_forward(t *testing.T) {
	tr := &trace{}
	c := newFamily(t, tr, func(ctx *Context) (bool, error) {
		require.Equal(t, childAddr("a"), ctx.Destination())
		ctx.Forward(Forward)
		return false, nil
	}, nil)
	c.Intercept(true)

	require.False(t, fire(c, extAddr, childAddr("a"), "m"))
	require.Equal(t, []string{"root=string:m", "a=string:m"}, tr.entries)
}

func TestFire_intercept_flag_is_honoured(t *testing.T) {
	tr := &trace{}
	c := newFamily(t, tr, func(ctx *Context) (bool, error) {
		ctx.Forward(Forward)
		return false, nil
	}, nil)

	c.Intercept(false)
	require.False(t, c.Intercepting())
	require.False(t, fire(c, extAddr, childAddr("a"), "m1"))
	require.Equal(t, []string{"a=string:m1"}, tr.entries)

	tr.entries = nil
	c.Intercept(true)
	require.True(t, c.Intercepting())
	require.False(t, fire(c, extAddr, childAddr("a"), "m2"))
	require.Equal(t, []string{"root=string:m2", "a=string:m2"}, tr.entries)

	tr.entries = nil
	c.Intercept(false)
	require.False(t, c.Intercepting())
	require.False(t, fire(c, extAddr, childAddr("a"), "m3"))
	require.Equal(t, []string{"a=string:m3"}, tr.entries)
}

func TestFire_intercept_rejected_by_rules_stops(t *testing.T) {
	tr := &trace{}
	c := newFamily(t, tr, nil, nil)
	c.Intercept(true)
	c.BlockAll()

	require.False(t, fire(c, extAddr, childAddr("a"), "m"))
	require.Empty(t, tr.entries)
}

func TestFire_forward_and_return(t *testing.T) {
	tr := &trace{}
	rootCalls := 0
	c := newFamily(t, tr, func(ctx *Context) (bool, error) {
		rootCalls++
		if rootCalls == 1 {
			ctx.Forward(ForwardAndReturn)
		}
		return false, nil
	}, nil)
	c.Intercept(true)

	require.False(t, fire(c, extAddr, childAddr("a"), "m"))
	require.Equal(t, []string{"root=string:m", "a=string:m", "root=string:m"}, tr.entries)
	require.Equal(t, StateSuspended, c.State())
}

func TestFire_forward_during_release_discards_tree(t *testing.T) {
	tr := &trace{}
	c := newFamily(t, tr, func(ctx *Context) (bool, error) {
		ctx.Forward(ForwardAndReturn)
		return false, nil
	}, nil)
	c.Intercept(true)

	require.True(t, fire(c, extAddr, childAddr("a"), "m"))
	require.Equal(t, []string{"root=string:m", "a=string:m", "root=string:m"}, tr.entries)
	require.Equal(t, StateDiscarded, c.State())
	require.Equal(t, StateDiscarded, c.ChildContext("a").State())

	tr.entries = nil
	for _, dst := range []shuttle.Address{rootAddr, childAddr("a"), childAddr("b")} {
		require.True(t, fire(c, extAddr, dst, "again"))
	}
	require.Empty(t, tr.entries)
}

func TestFire_child_finish_keeps_root_and_siblings(t *testing.T) {
	tr := &trace{}
	cp := &addrCheckpointer{}
	c := NewContext(rootAddr, openBody(tr, "root", nil), ContextOptions{Checkpointer: cp})
	require.False(t, fire(c, rootAddr, rootAddr, "open"))
	require.NoError(t, c.Child("a", openBody(tr, "a", func(*Context) (bool, error) { return true, nil })))
	require.NoError(t, c.Child("b", openBody(tr, "b", nil)))
	for _, id := range []string{"a", "b"} {
		require.False(t, fire(c, childAddr(id), childAddr(id), "open"))
	}
	require.NoError(t, c.Checkpoint(CheckpointNow))
	require.Len(t, cp.addresses(), 3)
	tr.entries = nil

	child := c.ChildContext("a")
	require.False(t, fire(c, extAddr, childAddr("a"), "bye"))
	require.Equal(t, StateFinished, child.State())
	require.False(t, c.IsChild("a"))
	require.Equal(t, []string{"b"}, c.Children())
	require.Equal(t, StateSuspended, c.State())
	require.Equal(t, []string{rootAddr.String(), childAddr("b").String()}, cp.addresses())

	require.False(t, fire(c, extAddr, childAddr("b"), "still here"))
	require.False(t, fire(c, extAddr, rootAddr, "me too"))
	require.Equal(t, []string{"a=string:bye", "b=string:still here", "root=string:me too"}, tr.entries)
}

func TestFire_root_finish_discards(t *testing.T) {
	c := NewContext(rootAddr, BodyFunc(func(ctx *Context) (bool, error) {
		require.NoError(t, ctx.Out(extAddr, "last words"))
		return true, nil
	}), ContextOptions{})

	require.True(t, fire(c, rootAddr, rootAddr, "x"))
	require.Equal(t, StateFinished, c.State())
	// outgoing messages survive the tree
	require.Len(t, c.DrainOutgoing(), 1)
}

func TestFire_error_discards(t *testing.T) {
	tr := &trace{}
	c := newFamily(t, tr, nil, func(*Context) (bool, error) { return false, errors.New("boom") })

	require.True(t, fire(c, extAddr, childAddr("b"), "x"))
	require.Equal(t, StateDiscarded, c.State())
	require.Equal(t, StateDiscarded, c.ChildContext("a").State())
}

func TestFire_panic_discards(t *testing.T) {
	c := NewContext(rootAddr, BodyFunc(func(*Context) (bool, error) {
		panic("kaboom")
	}), ContextOptions{})

	require.True(t, fire(c, rootAddr, rootAddr, "x"))
	require.Equal(t, StateDiscarded, c.State())
}

func TestContext_out_validation(t *testing.T) {
	c := NewContext(rootAddr, BodyFunc(func(ctx *Context) (bool, error) {
		require.ErrorIs(t, ctx.OutFrom(extAddr, extAddr, "x"), ErrInvalidOut)
		require.ErrorIs(t, ctx.Out(shuttle.Empty(), "x"), ErrInvalidOut)
		require.ErrorIs(t, ctx.Out(extAddr, nil), ErrInvalidOut)
		require.NoError(t, ctx.OutFrom(childAddr("virtual"), extAddr, "x"))
		require.NoError(t, ctx.Reply("pong"))
		return false, nil
	}), ContextOptions{})

	require.False(t, fire(c, rootAddr, rootAddr, "ping"))
	outs := c.DrainOutgoing()
	require.Len(t, outs, 2)
	require.Equal(t, childAddr("virtual"), outs[0].Source())
	require.Equal(t, rootAddr, outs[1].Destination())
	require.Equal(t, "pong", outs[1].Payload())
	require.Empty(t, c.Outgoing())

	require.ErrorIs(t, c.Reply("outside"), ErrInvalidOut)
}

func TestContext_checkpoint_modes(t *testing.T) {
	cp := &countingCheckpointer{}
	mode := CheckpointDeferred
	finish := false
	c := NewContext(rootAddr, BodyFunc(func(ctx *Context) (bool, error) {
		if err := ctx.Checkpoint(mode); err != nil {
			return false, err
		}
		if mode == CheckpointNow {
			// written before the resumption returns
			require.Equal(t, 2, cp.saves)
		} else {
			require.Equal(t, cp.expectBefore, cp.saves)
		}
		return finish, nil
	}), ContextOptions{Checkpointer: cp})

	require.False(t, fire(c, rootAddr, rootAddr, "x"))
	require.Equal(t, 1, cp.saves)

	cp.expectBefore = 1
	mode = CheckpointNow
	require.False(t, fire(c, rootAddr, rootAddr, "x"))
	require.Equal(t, 2, cp.saves)

	// a deferred checkpoint is dropped when the actor finishes
	mode, finish = CheckpointDeferred, true
	cp.expectBefore = 2
	require.True(t, fire(c, rootAddr, rootAddr, "x"))
	require.Equal(t, 2, cp.saves)
	require.Equal(t, 1, cp.deletes)
}

type countingCheckpointer struct {
	nopCheckpointer
	saves        int
	deletes      int
	expectBefore int
}

func (c *countingCheckpointer) Save(*Context) (bool, error) {
	c.saves++
	return true, nil
}

func (c *countingCheckpointer) Delete(shuttle.Address) error {
	c.deletes++
	return nil
}

// addrCheckpointer tracks which addresses hold a checkpoint.
type addrCheckpointer struct {
	nopCheckpointer
	saved map[string]shuttle.Address
}

func (a *addrCheckpointer) Save(c *Context) (bool, error) {
	if a.saved == nil {
		a.saved = map[string]shuttle.Address{}
	}
	c.walk(func(n *Context) { a.saved[n.Self().String()] = n.Self() })
	return true, nil
}

func (a *addrCheckpointer) Delete(addr shuttle.Address) error {
	for k, v := range a.saved {
		if addr.IsPrefixOf(v) {
			delete(a.saved, k)
		}
	}
	return nil
}

func (a *addrCheckpointer) addresses() []string {
	out := slices.Collect(maps.Keys(a.saved))
	slices.Sort(out)
	return out
}
