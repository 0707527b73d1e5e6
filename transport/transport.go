// Package transport owns the serial byte stream for the EasyWave RX22
// gateway: it accumulates incoming bytes, extracts complete framed
// payloads, fans them out to subscribed listeners, and serializes
// outgoing writes so two encoded frames never interleave on the wire.
package transport

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/easywave/rx22gw/codec"
	"github.com/easywave/rx22gw/trace"
	"github.com/easywave/rx22gw/wire"
)

// ErrTransportClosed is returned by Send, and delivered to any blocked
// caller, once the underlying stream has failed or been closed.
var ErrTransportClosed = errors.New("transport: closed")

// Listener receives one fully decoded payload per call. Listener must
// not block for long: it is invoked from the transport's single reader
// goroutine, and a slow listener delays delivery to every other
// subscriber.
type Listener func(payload []byte)

// ByteStream is the external collaborator the core depends on: a duplex
// byte stream with no structure assumed beyond ordered delivery (§6).
// *tarm/serial.Port and the simulation fake port both satisfy it.
type ByteStream interface {
	io.ReadWriteCloser
}

// Transport is the Frame Transport component (§4.2). It is created once
// per serial device and lives for the process.
type Transport struct {
	name   string
	stream ByteStream
	trace  *trace.ClientTrace

	writeMu sync.Mutex

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int

	closeOnce sync.Once
	done      chan struct{}

	closedMu  sync.Mutex
	closedErr error
}

// New wraps stream as a Transport, identified by name for tracing, and
// starts the background reader immediately. The caller retains no
// responsibility for stream beyond supplying it: Close on the Transport
// closes stream too.
func New(ctx context.Context, name string, stream ByteStream) *Transport {
	begin := time.Now()
	tr := trace.ContextClientTrace(ctx)
	tr.ConnectStart(name)

	t := &Transport{
		name:      name,
		stream:    stream,
		trace:     tr,
		done:      make(chan struct{}),
		listeners: make(map[int]Listener),
	}

	tr.ConnectDone(name, nil, time.Since(begin))

	go t.readLoop()

	return t
}

// Send writes payload as a single encoded frame. Writes are serialized
// by writeMu so that no two encoded frames interleave on the wire.
// Cancellation of ctx before the write lock is acquired aborts cleanly
// without writing anything.
func (t *Transport) Send(ctx context.Context, payload []byte) error {
	if err := t.closedError(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.closedError(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	frame := codec.Encode(payload)

	begin := time.Now()
	t.trace.WriteStart(frame)
	_, err := t.stream.Write(frame)
	t.trace.WriteDone(frame, err, time.Since(begin))
	if err != nil {
		return errors.Wrap(err, "transport: write")
	}
	return nil
}

// Subscribe registers listener to receive every payload decoded from
// here on. The returned function unsubscribes it; calling it more than
// once is safe. Multiple listeners may be subscribed concurrently; each
// payload is delivered to every listener in registration order.
func (t *Transport) Subscribe(l Listener) (unsubscribe func()) {
	t.listenersMu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	t.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.listenersMu.Lock()
			delete(t.listeners, id)
			t.listenersMu.Unlock()
		})
	}
}

func (t *Transport) deliver(payload []byte) {
	t.listenersMu.Lock()
	ids := make([]int, 0, len(t.listeners))
	for id := range t.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	snapshot := make([]Listener, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, t.listeners[id])
	}
	t.listenersMu.Unlock()

	t.trace.FrameReceived(payload)
	for _, l := range snapshot {
		l(payload)
	}
}

func (t *Transport) readLoop() {
	var finalErr error
	defer func() {
		t.setClosedError(finalErr)
		t.trace.ConnectionClosed(t.name, finalErr)
		close(t.done)
	}()

	const scratchSize = 4096
	scratch := make([]byte, scratchSize)
	var acc []byte
	// offset into acc: bytes before offset have already been consumed
	// (delivered or discarded as framing resynchronisation noise).
	offset := 0

	for {
		t.trace.ReadStart()
		begin := time.Now()
		n, err := t.stream.Read(scratch)
		t.trace.ReadDone(n, err, time.Since(begin))
		if n > 0 {
			acc = append(acc, scratch[:n]...)
			offset = t.extractFrames(acc, offset)
			acc = append([]byte(nil), acc[offset:]...)
			offset = 0
		}
		if err != nil {
			if err == io.EOF {
				finalErr = ErrTransportClosed
			} else {
				finalErr = errors.Wrapf(ErrTransportClosed, "read: %v", err)
			}
			return
		}
	}
}

// extractFrames walks acc from offset, delivering every complete frame
// it finds, and returns the offset of the first byte not yet consumed
// (the unconsumed tail the caller should retain).
func (t *Transport) extractFrames(acc []byte, offset int) int {
	for {
		sop := indexByte(acc, wire.SOP, offset)
		if sop < 0 {
			// No SOP at or after offset: retain from offset onward (§4.2
			// step 1). Bytes strictly before offset, if any, were
			// already consumed by an earlier frame extraction.
			return offset
		}
		eop := indexByte(acc, wire.EOP, sop+1)
		if eop < 0 {
			return sop
		}

		inner := acc[sop+1 : eop]
		payload, err := codec.Decode(inner)
		if err != nil {
			t.trace.FrameDiscarded(err)
		} else {
			t.deliver(payload)
		}
		offset = eop + 1
	}
}

func indexByte(b []byte, c byte, from int) int {
	if from >= len(b) {
		return -1
	}
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

func (t *Transport) closedError() error {
	t.closedMu.Lock()
	defer t.closedMu.Unlock()
	return t.closedErr
}

func (t *Transport) setClosedError(err error) {
	t.closedMu.Lock()
	defer t.closedMu.Unlock()
	if t.closedErr == nil {
		if err == nil {
			err = ErrTransportClosed
		}
		t.closedErr = err
	}
}

// Close closes the underlying stream and waits for the reader loop to
// finish. Subsequent Send calls fail with ErrTransportClosed.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.stream.Close()
		<-t.done
	})
	return err
}

// Done returns a channel closed once the reader loop has exited, for
// callers that want to observe transport failure without calling Send.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}
