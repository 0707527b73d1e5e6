package transport

import (
	"context"
	"io"
	"sync"

	"github.com/easywave/rx22gw/wire"
)

// SimulatedPort is a fake ByteStream for tests and for running the
// protocol stack without a physical device attached. Feed injects a raw
// byte chunk as if it had just arrived on the wire; Sent returns the
// frames written by the transport, in order.
//
// It plays the role the teacher's netconf/testserver package plays for
// NETCONF: a hand-built collaborator a test can drive directly, rather
// than a generated mock of the Transport boundary.
type SimulatedPort struct {
	mu     sync.Mutex
	chunks chan []byte
	sent   [][]byte
	closed bool
}

// NewSimulatedPort creates an unopened simulated port.
func NewSimulatedPort() *SimulatedPort {
	return &SimulatedPort{
		chunks: make(chan []byte, 64),
	}
}

// Feed injects chunk as the next bytes the reader will see. Feed may be
// split across multiple calls to exercise partial-frame behaviour.
func (p *SimulatedPort) Feed(chunk []byte) {
	cp := append([]byte(nil), chunk...)
	p.chunks <- cp
}

// FeedFrame is a convenience that encodes payload with codec.Encode
// before feeding it, so callers can inject at the payload level.
func (p *SimulatedPort) FeedFrame(encode func([]byte) []byte, payload []byte) {
	p.Feed(encode(payload))
}

// Read blocks until a chunk is available or the port is closed.
func (p *SimulatedPort) Read(b []byte) (int, error) {
	chunk, ok := <-p.chunks
	if !ok {
		return 0, io.EOF
	}
	n := copy(b, chunk)
	if n < len(chunk) {
		// Caller's buffer was smaller than the chunk; requeue the
		// remainder so nothing is lost.
		p.chunks <- chunk[n:]
	}
	return n, nil
}

// Write records the frame for later inspection by Sent.
func (p *SimulatedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.sent = append(p.sent, append([]byte(nil), b...))
	p.mu.Unlock()
	return len(b), nil
}

// Sent returns every frame written so far, in order.
func (p *SimulatedPort) Sent() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.sent))
	copy(out, p.sent)
	return out
}

// Close unblocks any pending Read, which then returns io.EOF.
func (p *SimulatedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.chunks)
	return nil
}

// NewSimulated creates a Transport backed by a SimulatedPort, for tests
// and for exercising the protocol stack without a physical device.
func NewSimulated(ctx context.Context) (*Transport, *SimulatedPort) {
	port := NewSimulatedPort()
	return New(ctx, "simulation", port), port
}

// InjectNotification is a small convenience used by the protocol tests:
// it feeds a complete Receive-Notification ICP frame.
func InjectNotification(p *SimulatedPort, encode func([]byte) []byte, n wire.Notification) {
	payload := make([]byte, 0, wire.NotificationLen)
	payload = append(payload, byte(n.Handle>>8), byte(n.Handle))
	payload = append(payload, byte(n.Status))
	payload = append(payload, byte(n.Info))
	payload = append(payload, n.Serial[:]...)
	payload = append(payload, n.Additional[:]...)
	p.Feed(encode(payload))
}
