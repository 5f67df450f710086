package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/mpc/pkg/pc"
)

func pipeConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	ca := newConn(a, "b", func(error) {})
	cb := newConn(b, "a", func(error) {})
	t.Cleanup(func() {
		_ = ca.Close()
		_ = cb.Close()
	})
	return ca, cb
}

func TestSendRecvDeliversPayload(t *testing.T) {
	ca, cb := pipeConns(t)

	tag := pc.Tag("1.2")
	go func() { require.NoError(t, ca.Send(tag, []byte("hi"))) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	payload, err := cb.RecvContext(ctx, tag)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), payload)
}

func TestRecvRegisteredBeforeArrivalStillDelivers(t *testing.T) {
	ca, cb := pipeConns(t)

	tag := pc.Tag("3")
	ch := cb.Recv(tag)

	go func() { require.NoError(t, ca.Send(tag, []byte("late"))) }()

	select {
	case payload := <-ch:
		require.Equal(t, []byte("late"), payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
	}
}

func TestEarlyArrivalQueuesUntilAwaited(t *testing.T) {
	ca, cb := pipeConns(t)

	tag := pc.Tag("4")
	done := make(chan struct{})
	go func() {
		_ = ca.Send(tag, []byte("early"))
		close(done)
	}()
	<-done
	time.Sleep(20 * time.Millisecond) // let dispatch land in earlyArrivals

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	payload, err := cb.RecvContext(ctx, tag)
	require.NoError(t, err)
	require.Equal(t, []byte("early"), payload)
}

func TestCloseUnblocksPendingRecv(t *testing.T) {
	_, cb := pipeConns(t)

	tag := pc.Tag("9")
	ch := cb.Recv(tag)
	require.NoError(t, cb.Close())

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close to unblock Recv")
	}
}

func TestTagToUint32sRoundTrip(t *testing.T) {
	tag := pc.Tag("1.2.3")
	vals, err := tagToUint32s(tag)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, vals)
	require.Equal(t, tag, uint32sToTag(vals))
}
