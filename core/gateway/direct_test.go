package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmehali/actors/core/shuttle"
)

func newDirect(t *testing.T, prefix string) *Direct {
	t.Helper()
	d, err := NewDirect(DirectOptions{Prefix: prefix, Context: t.Context()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDirect_write_routes_to_outgoing_shuttle(t *testing.T) {
	d := newDirect(t, "")
	require.Equal(t, DefaultPrefix, d.Prefix())

	capture := shuttle.NewCaptureShuttle("runner")
	d.AddOutgoingShuttle(capture)

	dst := shuttle.MustParse("runner:a")
	require.NoError(t, d.WriteTo(dst, "hi"))

	select {
	case <-capture.Sent():
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	msgs := capture.Drain()
	require.Len(t, msgs, 1)
	require.Equal(t, d.Address(), msgs[0].Source())
	require.Equal(t, dst, msgs[0].Destination())
	require.Equal(t, "hi", msgs[0].Payload())
}

func TestDirect_write_validation(t *testing.T) {
	d := newDirect(t, "direct")
	require.ErrorIs(t, d.Write(shuttle.MustParse("other"), shuttle.MustParse("runner:a"), "x"), ErrInvalidMessage)
	require.ErrorIs(t, d.WriteTo(shuttle.Empty(), "x"), ErrInvalidMessage)
	require.ErrorIs(t, d.WriteTo(shuttle.MustParse("runner:a"), nil), ErrInvalidMessage)
	require.NoError(t, d.Write(shuttle.MustParse("direct:sub"), shuttle.MustParse("runner:a"), "x"))
}

func TestDirect_read(t *testing.T) {
	a := newDirect(t, "a")
	b := newDirect(t, "b")
	a.AddOutgoingShuttle(b.IncomingShuttle())

	for _, p := range []string{"one", "two", "three"} {
		require.NoError(t, a.WriteTo(b.Address(), p))
	}

	m, err := b.ReadMessage(t.Context())
	require.NoError(t, err)
	require.Equal(t, a.Address(), m.Source())
	require.Equal(t, "one", m.Payload())

	s, err := Read[string](t.Context(), b)
	require.NoError(t, err)
	require.Equal(t, "two", s)

	_, err = Read[int](t.Context(), b)
	require.ErrorIs(t, err, ErrUnexpectedPayload)

	require.NoError(t, a.WriteTo(b.Address(), 4))
	require.NoError(t, a.WriteTo(b.Address(), 5))
	require.Eventually(t, func() bool { return b.inbox.Len() == 2 }, time.Second, time.Millisecond)
	msgs, err := b.ReadMessages(t.Context())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
}

func TestDirect_read_to_self(t *testing.T) {
	d := newDirect(t, "direct")
	require.NoError(t, d.WriteTo(d.Address(), "loop"))
	p, err := d.ReadPayload(t.Context())
	require.NoError(t, err)
	require.Equal(t, "loop", p)
}

func TestDirect_read_timeout(t *testing.T) {
	d := newDirect(t, "direct")
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err := d.ReadMessage(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDirect_close(t *testing.T) {
	d := newDirect(t, "direct")

	errCh := make(chan error, 1)
	go func() {
		_, err := d.ReadMessage(context.Background())
		errCh <- err
	}()

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("reader not released")
	}
	require.ErrorIs(t, d.WriteTo(shuttle.MustParse("runner:a"), "x"), ErrClosed)
	<-d.Done()
}

func TestDirect_unrouted_dropped(t *testing.T) {
	d := newDirect(t, "direct")
	capture := shuttle.NewCaptureShuttle("runner")
	d.AddOutgoingShuttle(capture)

	require.NoError(t, d.WriteTo(shuttle.MustParse("nowhere:a"), "lost"))
	require.NoError(t, d.WriteTo(shuttle.MustParse("runner:a"), "found"))

	select {
	case <-capture.Sent():
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	msgs := capture.Drain()
	require.Len(t, msgs, 1)
	require.Equal(t, "found", msgs[0].Payload())
}
