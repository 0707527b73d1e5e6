// Package gateway is the Command Surface (§4.4): thin wrappers over the
// Protocol Engine that marshal inputs, invoke a command, and decode
// results into typed records, plus the burst/continuous senders built on
// top of SendCommand.
package gateway

import (
	"context"
	"errors"

	"github.com/easywave/rx22gw/protocol"
	"github.com/easywave/rx22gw/resetctl"
	"github.com/easywave/rx22gw/transport"
	"github.com/easywave/rx22gw/wire"
)

// ErrNoResetLine is returned by Recover when the Gateway was built
// without a reset line.
var ErrNoResetLine = errors.New("gateway: no reset line configured")

// Gateway is a running connection to one EasyWave RX22 module.
type Gateway struct {
	transport *transport.Transport
	engine    *protocol.Engine
	resetLine resetctl.ResetLine
}

// Option configures optional Gateway collaborators.
type Option func(*Gateway)

// WithResetLine attaches a GPIO reset line Recover can pulse to recover
// a module that has stopped responding (§6, §3 supplemented features).
// It is entirely opt-in: nothing in this package decides on its own
// when a reset is warranted.
func WithResetLine(line resetctl.ResetLine) Option {
	return func(g *Gateway) { g.resetLine = line }
}

// NewWithTransport builds a Gateway on top of an already-open Transport,
// for tests and for callers that manage their own transport lifecycle
// (e.g. transport.NewSimulated).
func NewWithTransport(ctx context.Context, t *transport.Transport, opts ...Option) *Gateway {
	g := &Gateway{transport: t, engine: protocol.NewEngine(ctx, t)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Recover pulses the configured reset line for pulse, asserting it then
// releasing it back to high-impedance input. Callers decide when a
// reset is warranted (e.g. after repeated TransportClosed errors); this
// module does not make that judgement itself.
func (g *Gateway) Recover(ctx context.Context, pulse resetctl.Duration) error {
	if g.resetLine == nil {
		return ErrNoResetLine
	}
	if err := g.resetLine.AssertReset(ctx, pulse); err != nil {
		return err
	}
	return g.resetLine.Release(ctx)
}

// Close stops the gateway's engine and closes its transport.
func (g *Gateway) Close() error {
	g.engine.Close()
	return g.transport.Close()
}

// BuildFunctionByte packs button and function into the single octet
// SendCommand expects, re-exported here so callers of the command
// surface never need to import wire directly for it.
func BuildFunctionByte(button wire.Button, function wire.Function) byte {
	return wire.BuildFunctionByte(button, function)
}

// GetSerial issues GetFdSerial/GetTxSerial for the device at index.
func (g *Gateway) GetSerial(ctx context.Context, index uint32) (protocol.Serial, error) {
	return g.engine.GetSerial(ctx, index)
}

// AddFilter admits serial through the module's receive filter.
func (g *Gateway) AddFilter(ctx context.Context, serial protocol.Serial) error {
	return g.engine.AddFilter(ctx, serial)
}

// ClearFilter removes every serial from the module's receive filter.
func (g *Gateway) ClearFilter(ctx context.Context) error {
	return g.engine.ClearFilter(ctx)
}

// JoinDevice pairs a remote device with the gateway identified by
// gatewaySerial.
func (g *Gateway) JoinDevice(ctx context.Context, gatewaySerial protocol.Serial) (protocol.JoinResult, error) {
	return g.engine.JoinDevice(ctx, gatewaySerial)
}

// RemoveDevice unpairs joined from initial.
func (g *Gateway) RemoveDevice(ctx context.Context, initial, joined protocol.Serial) error {
	return g.engine.RemoveDevice(ctx, initial, joined)
}

// ChangeState writes state to joined's mode-indexed state vector.
func (g *Gateway) ChangeState(ctx context.Context, initial, joined protocol.Serial, mode byte, state protocol.State) error {
	return g.engine.ChangeState(ctx, initial, joined, mode, state)
}

// LearnControl drives the module's transmitter-learn state machine.
func (g *Gateway) LearnControl(ctx context.Context, initial, joined protocol.Serial, function, mode byte, state protocol.State) error {
	return g.engine.LearnControl(ctx, initial, joined, function, mode, state)
}

// QueryState reads joined's mode-indexed state vector.
func (g *Gateway) QueryState(ctx context.Context, initial, joined protocol.Serial, mode byte) (protocol.QueryStateResult, error) {
	return g.engine.QueryState(ctx, initial, joined, mode)
}

// SendCommand transmits a single button/function frame for serial.
func (g *Gateway) SendCommand(ctx context.Context, serial protocol.Serial, functionByte byte) error {
	return g.engine.SendCommand(ctx, serial, functionByte)
}

// ReceiveNotification issues a Receive-Notification request (§4.3), with
// supersedure of any call already pending on this Gateway.
func (g *Gateway) ReceiveNotification(ctx context.Context) (wire.Notification, error) {
	return g.engine.ReceiveNotification(ctx)
}
