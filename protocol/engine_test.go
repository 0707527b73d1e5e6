package protocol_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easywave/rx22gw/codec"
	"github.com/easywave/rx22gw/protocol"
	"github.com/easywave/rx22gw/transport"
	"github.com/easywave/rx22gw/wire"
)

func newEngine(t *testing.T) (*protocol.Engine, *transport.SimulatedPort, *transport.Transport) {
	t.Helper()
	tr, port := transport.NewSimulated(context.Background())
	t.Cleanup(func() { _ = tr.Close() })
	return protocol.NewEngine(context.Background(), tr), port, tr
}

func respondSync(port *transport.SimulatedPort, status wire.Status, trailing ...byte) {
	icp := append([]byte{0x00, 0x00, byte(status)}, trailing...)
	port.Feed(codec.Encode(icp))
}

func TestClearFilterSynchronousSuccess(t *testing.T) {
	e, port, _ := newEngine(t)

	done := make(chan error, 1)
	go func() { done <- e.ClearFilter(context.Background()) }()

	waitSent(t, port, 1)
	respondSync(port, wire.StatusSuccess)

	require.NoError(t, <-done)
}

func TestClearFilterSynchronousFailureStatus(t *testing.T) {
	e, port, _ := newEngine(t)

	done := make(chan error, 1)
	go func() { done <- e.ClearFilter(context.Background()) }()

	waitSent(t, port, 1)
	respondSync(port, wire.StatusMemory)

	err := <-done
	require.Error(t, err)
	var statusErr *protocol.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, wire.StatusMemory, statusErr.Status)
	assert.ErrorIs(t, err, protocol.ErrProtocolStatus)
}

func TestGetSerialAsyncHandleCorrelation(t *testing.T) {
	e, port, _ := newEngine(t)

	type result struct {
		serial protocol.Serial
		err    error
	}
	done := make(chan result, 1)
	go func() {
		s, err := e.GetSerial(context.Background(), 3)
		done <- result{s, err}
	}()

	waitSent(t, port, 1)

	var want protocol.Serial
	for i := range want {
		want[i] = byte(i + 1)
	}
	icp := append([]byte{0x12, 0x34, byte(wire.StatusSuccess)}, want[:]...)
	port.Feed(codec.Encode([]byte{0x12, 0x34})) // IPP
	port.Feed(codec.Encode(icp))

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, want, r.serial)
}

func TestInterleavedRequestsCorrelateIndependently(t *testing.T) {
	e, port, _ := newEngine(t)

	s1, err1 := protocol.NewSerial(make([]byte, 16))
	require.NoError(t, err1)

	done1 := make(chan error, 1)
	done2 := make(chan error, 1)

	go func() { done1 <- e.AddFilter(context.Background(), s1) }()
	waitSent(t, port, 1)
	go func() { done2 <- e.ClearFilter(context.Background()) }()
	waitSent(t, port, 2)

	// Issue IPPs for both requests before either completes, the higher
	// handle first, then complete them in the same order: each must
	// resolve its own request regardless of interleaving.
	port.Feed(codec.Encode([]byte{0x00, 0x02})) // handle 2
	port.Feed(codec.Encode([]byte{0x00, 0x01})) // handle 1

	// Complete handle 2 first. The engine hands IPP handles to requests
	// in the order they were sent, so handle 2 is AddFilter's and
	// handle 1 is ClearFilter's.
	port.Feed(codec.Encode([]byte{0x00, 0x02, byte(wire.StatusSuccess)}))
	port.Feed(codec.Encode([]byte{0x00, 0x01, byte(wire.StatusSuccess)}))

	require.NoError(t, <-done1)
	require.NoError(t, <-done2)
}

func TestReceiveNotificationDecodesFullPayload(t *testing.T) {
	e, port, _ := newEngine(t)

	done := make(chan struct {
		n   wire.Notification
		err error
	}, 1)
	go func() {
		n, err := e.ReceiveNotification(context.Background())
		done <- struct {
			n   wire.Notification
			err error
		}{n, err}
	}()

	waitSent(t, port, 1)

	want := wire.Notification{
		Handle: 0x0007,
		Status: wire.StatusSuccess,
		Info:   wire.InfoPushAndHold,
	}
	for i := range want.Serial {
		want.Serial[i] = byte(i)
	}
	for i := range want.Additional {
		want.Additional[i] = byte(0xA0 + i)
	}
	// An IPP assigns the handle before the completion carries it.
	port.Feed(codec.Encode([]byte{byte(want.Handle >> 8), byte(want.Handle)}))
	transport.InjectNotification(port, codec.Encode, want)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, want, r.n)
}

func TestReceiveNotificationSupersedesPrevious(t *testing.T) {
	e, port, _ := newEngine(t)

	first := make(chan struct {
		n   wire.Notification
		err error
	}, 1)
	go func() {
		n, err := e.ReceiveNotification(context.Background())
		first <- struct {
			n   wire.Notification
			err error
		}{n, err}
	}()
	waitSent(t, port, 1)

	second := make(chan struct {
		n   wire.Notification
		err error
	}, 1)
	go func() {
		n, err := e.ReceiveNotification(context.Background())
		second <- struct {
			n   wire.Notification
			err error
		}{n, err}
	}()
	waitSent(t, port, 2)

	r1 := <-first
	require.NoError(t, r1.err)
	assert.Equal(t, wire.StatusSuperseded, r1.n.Status)

	want := wire.Notification{Handle: 0x0009, Status: wire.StatusSuccess, Info: wire.InfoSensor}
	port.Feed(codec.Encode([]byte{byte(want.Handle >> 8), byte(want.Handle)}))
	transport.InjectNotification(port, codec.Encode, want)

	r2 := <-second
	require.NoError(t, r2.err)
	assert.Equal(t, want, r2.n)
}

func TestNewSerialRejectsWrongLength(t *testing.T) {
	_, err := protocol.NewSerial(make([]byte, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrInvalidArgument)
}

func TestExecuteHonoursContextCancellation(t *testing.T) {
	e, port, _ := newEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.ClearFilter(ctx) }()

	waitSent(t, port, 1)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func waitSent(t *testing.T, port *transport.SimulatedPort, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(port.Sent()) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.FailNow(t, "timed out waiting for sent frames")
}
