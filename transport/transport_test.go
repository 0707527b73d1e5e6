package transport_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easywave/rx22gw/codec"
	"github.com/easywave/rx22gw/transport"
)

func collect(t *testing.T, tr *transport.Transport) (get func() [][]byte, unsubscribe func()) {
	t.Helper()
	var mu sync.Mutex
	var got [][]byte
	unsubscribe = tr.Subscribe(func(payload []byte) {
		mu.Lock()
		got = append(got, append([]byte(nil), payload...))
		mu.Unlock()
	})
	get = func() [][]byte {
		mu.Lock()
		defer mu.Unlock()
		out := make([][]byte, len(got))
		copy(out, got)
		return out
	}
	return get, unsubscribe
}

func waitFor(t *testing.T, n int, get func() [][]byte) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(get()) >= n {
			return get()
		}
		time.Sleep(time.Millisecond)
	}
	require.FailNow(t, "timed out waiting for payloads")
	return nil
}

func TestArbitraryChunkingDeliversEachPayloadOnce(t *testing.T) {
	payloads := [][]byte{{0x01, 0x02, 0x03}, {0x04}, {0x81, 0x82, 0x80}}
	var wire []byte
	for _, p := range payloads {
		wire = append(wire, codec.Encode(p)...)
	}

	tr, port := transport.NewSimulated(context.Background())
	defer tr.Close()

	get, unsubscribe := collect(t, tr)
	defer unsubscribe()

	// Feed one byte at a time to prove partial frames produce no
	// listener calls until complete.
	for _, b := range wire {
		port.Feed([]byte{b})
	}

	got := waitFor(t, len(payloads), get)
	require.Len(t, got, len(payloads))
	for i, p := range payloads {
		assert.Equal(t, p, got[i])
	}
}

func TestLeadingGarbageIsDiscarded(t *testing.T) {
	tr, port := transport.NewSimulated(context.Background())
	defer tr.Close()

	get, unsubscribe := collect(t, tr)
	defer unsubscribe()

	garbage := []byte{0x00, 0xFF, 0xFE}
	frame := codec.Encode([]byte{0x21, 0x00, 0x00})
	port.Feed(append(append([]byte(nil), garbage...), frame...))

	got := waitFor(t, 1, get)
	assert.Equal(t, []byte{0x21, 0x00, 0x00}, got[0])
}

func TestMalformedFrameIsSkippedAndFramingContinues(t *testing.T) {
	tr, port := transport.NewSimulated(context.Background())
	defer tr.Close()

	get, unsubscribe := collect(t, tr)
	defer unsubscribe()

	bad := []byte{0x81, 0x80, 0x09, 0x82} // escape value 0x09 is invalid
	good := codec.Encode([]byte{0x01})
	port.Feed(append(append([]byte(nil), bad...), good...))

	got := waitFor(t, 1, get)
	assert.Equal(t, []byte{0x01}, got[0])
}

func TestEmptyPayloadDeliveredAsEmpty(t *testing.T) {
	tr, port := transport.NewSimulated(context.Background())
	defer tr.Close()

	get, unsubscribe := collect(t, tr)
	defer unsubscribe()

	port.Feed(codec.Encode(nil))

	got := waitFor(t, 1, get)
	assert.Len(t, got[0], 0)
}

func TestSendSerializesFrames(t *testing.T) {
	tr, port := transport.NewSimulated(context.Background())
	defer tr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = tr.Send(context.Background(), []byte{byte(i)})
		}(i)
	}
	wg.Wait()

	sent := port.Sent()
	require.Len(t, sent, 10)
	for _, frame := range sent {
		assert.Equal(t, byte(0x81), frame[0])
		assert.Equal(t, byte(0x82), frame[len(frame)-1])
	}
}

func TestSendFailsAfterClose(t *testing.T) {
	tr, _ := transport.NewSimulated(context.Background())
	require.NoError(t, tr.Close())

	err := tr.Send(context.Background(), []byte{0x01})
	assert.ErrorIs(t, err, transport.ErrTransportClosed)
}

func TestSendHonoursCancellation(t *testing.T) {
	tr, _ := transport.NewSimulated(context.Background())
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Send(ctx, []byte{0x01})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tr, port := transport.NewSimulated(context.Background())
	defer tr.Close()

	get, unsubscribe := collect(t, tr)
	port.Feed(codec.Encode([]byte{0x01}))
	waitFor(t, 1, get)

	unsubscribe()
	port.Feed(codec.Encode([]byte{0x02}))
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, get(), 1)
}
