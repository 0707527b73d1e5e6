// Package trace provides an optional, context-carried set of hook
// functions that the transport and protocol packages call into
// at well-defined points, the same pattern the teacher library uses for
// its own ClientTrace: a caller wires whatever logging/metrics it wants
// without the core ever importing a logging package itself.
package trace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/imdario/mergo"

	"github.com/easywave/rx22gw/wire"
)

type clientEventContextKey struct{}

// ContextClientTrace returns the ClientTrace associated with ctx, merged
// over NoOpHooks so that every field is always callable.
func ContextClientTrace(ctx context.Context) *ClientTrace {
	t, _ := ctx.Value(clientEventContextKey{}).(*ClientTrace)
	if t == nil {
		return NoOpHooks
	}
	merged := *t
	_ = mergo.Merge(&merged, NoOpHooks)
	return &merged
}

// WithClientTrace returns a context carrying trace, for consumption by
// ContextClientTrace.
func WithClientTrace(ctx context.Context, t *ClientTrace) context.Context {
	return context.WithValue(ctx, clientEventContextKey{}, t)
}

// ClientTrace is a set of optional hooks into the transport and protocol
// layers. A nil field is never called.
type ClientTrace struct {
	// ConnectStart/ConnectDone bracket opening the underlying byte stream.
	ConnectStart func(device string)
	ConnectDone  func(device string, err error, d time.Duration)

	// ConnectionClosed fires once, when the transport's receive loop exits.
	ConnectionClosed func(device string, err error)

	// ReadStart/ReadDone bracket each read from the underlying stream.
	ReadStart func()
	ReadDone  func(n int, err error, d time.Duration)

	// WriteStart/WriteDone bracket each encoded frame write.
	WriteStart func(frame []byte)
	WriteDone  func(frame []byte, err error, d time.Duration)

	// FrameReceived fires once per fully decoded payload delivered to
	// listeners.
	FrameReceived func(payload []byte)

	// FrameDiscarded fires when a malformed frame is skipped during
	// framing resynchronisation.
	FrameDiscarded func(err error)

	// Error reports an error condition with a short context string. No
	// package of this module calls it.
	Error func(context string, err error)

	// ExecuteStart/ExecuteDone bracket a single protocol-engine request.
	// id correlates the pair independent of the wire handle, which is
	// reused across requests and always zero for synchronous commands.
	ExecuteStart func(id uuid.UUID, cmd wire.Command, async bool)
	ExecuteDone  func(id uuid.UUID, cmd wire.Command, async bool, status wire.Status, err error, d time.Duration)

	// NotificationReceived fires when the protocol engine has decoded a
	// Receive-Notification completion for its caller. NotificationDropped
	// is not called by any package of this module.
	NotificationReceived func(n wire.Notification)
	NotificationDropped  func(n wire.Notification)
}

// DefaultHooks returns a ClientTrace whose only hook is Error, which
// logs through the supplied sink.
func DefaultHooks(logf func(format string, args ...interface{})) *ClientTrace {
	return &ClientTrace{
		Error: func(context string, err error) {
			logf("rx22gw: %s: %v", context, err)
		},
	}
}

// NoOpHooks is a ClientTrace whose every field is a callable no-op, used
// as the merge base for ContextClientTrace.
var NoOpHooks = &ClientTrace{
	ConnectStart:         func(string) {},
	ConnectDone:          func(string, error, time.Duration) {},
	ConnectionClosed:     func(string, error) {},
	ReadStart:            func() {},
	ReadDone:             func(int, error, time.Duration) {},
	WriteStart:           func([]byte) {},
	WriteDone:            func([]byte, error, time.Duration) {},
	FrameReceived:        func([]byte) {},
	FrameDiscarded:       func(error) {},
	Error:                func(string, error) {},
	ExecuteStart:         func(uuid.UUID, wire.Command, bool) {},
	ExecuteDone:          func(uuid.UUID, wire.Command, bool, wire.Status, error, time.Duration) {},
	NotificationReceived: func(wire.Notification) {},
	NotificationDropped:  func(wire.Notification) {},
}
