// Package protocol implements the three-phase EasyWave RX22 command
// exchange: an Initial Request Packet, an optional Intermediate Pending
// Packet carrying a correlation handle, and an Intermediate Completion
// Packet carrying a status and any command-specific result. It is the
// hardest subsystem in the driver (§4.3).
package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/easywave/rx22gw/trace"
	"github.com/easywave/rx22gw/transport"
	"github.com/easywave/rx22gw/wire"
)

// Sender is the subset of *transport.Transport the engine depends on,
// kept narrow so tests can supply a fake transport.Listener-driven
// double without a real byte stream behind it.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Subscribe(l transport.Listener) (unsubscribe func())
}

// Engine is the Protocol Engine component (§4.3). One Engine owns one
// Transport. It registers a single listener at construction time and
// correlates every Intermediate Pending/Completion Packet centrally,
// then hands the result to the waiting request's own channel (Design
// note §9: "a channel-per-request the reader writes to after
// correlation").
type Engine struct {
	t     Sender
	trace *trace.ClientTrace

	unsubscribe func()

	mu       sync.Mutex
	queue    []*pendingCall          // requests sent, awaiting handle assignment via an IPP
	byHandle map[wire.Handle]*pendingCall // requests whose handle is known

	notifMu      sync.Mutex
	notifPending *pendingCall
}

// NewEngine creates a Protocol Engine driving t. ctx is used only to
// resolve a trace from context.Context, mirroring
// netconf/v2/netconf/client's NewSession(ctx, ...) pattern.
func NewEngine(ctx context.Context, t Sender) *Engine {
	e := &Engine{
		t:        t,
		trace:    trace.ContextClientTrace(ctx),
		byHandle: make(map[wire.Handle]*pendingCall),
	}
	e.unsubscribe = t.Subscribe(e.onFrame)
	return e
}

// Close stops the engine from listening to its transport. It does not
// close the transport itself.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// pendingCall tracks one in-flight request's correlation state.
type pendingCall struct {
	resultCh chan []byte
	once     sync.Once
}

func newPendingCall() *pendingCall {
	return &pendingCall{resultCh: make(chan []byte, 1)}
}

func (p *pendingCall) complete(icp []byte) {
	p.once.Do(func() {
		p.resultCh <- icp
	})
}

// onFrame is the Engine's single transport listener. It classifies every
// decoded payload as an Intermediate Pending Packet (length 2) or an
// Intermediate Completion Packet (length >= 3) and routes it to the
// request it belongs to (§4.3 Correlation).
//
// An IPP assigns its handle to the oldest request still awaiting one, in
// request order: the module is assumed to emit handles for outstanding
// requests in the order it accepted them. An ICP completes the request
// registered under its handle; a handle-0 ICP with no such registration
// completes the oldest request still awaiting a handle, which covers a
// synchronous command (one that never receives an IPP). A request that
// has already been assigned a non-zero handle by an IPP is completed only
// by an ICP carrying that handle, never by a handle-0 ICP (§9 Open
// Questions).
func (e *Engine) onFrame(payload []byte) {
	switch {
	case len(payload) == 2:
		handle := decodeHandle(payload)
		e.mu.Lock()
		if len(e.queue) > 0 {
			pc := e.queue[0]
			e.queue = e.queue[1:]
			e.byHandle[handle] = pc
		}
		e.mu.Unlock()
	case len(payload) >= 3:
		handle := decodeHandle(payload)
		e.mu.Lock()
		pc, ok := e.byHandle[handle]
		if ok {
			delete(e.byHandle, handle)
		} else if handle == wire.SyncHandle && len(e.queue) > 0 {
			pc = e.queue[0]
			e.queue = e.queue[1:]
			ok = true
		}
		e.mu.Unlock()
		if ok {
			pc.complete(payload)
		}
		// Otherwise this ICP cannot be matched to any known request;
		// there is nothing useful to do but drop it.
	default:
		// Too short to be an IPP or ICP; not meaningful traffic for
		// correlation purposes.
	}
}

func decodeHandle(payload []byte) wire.Handle {
	return wire.Handle(uint16(payload[0])<<8 | uint16(payload[1]))
}

// removePending removes pc from whichever correlation slot still holds
// it (queue or byHandle), used when a request is abandoned via context
// cancellation or a send failure so it does not linger forever.
func (e *Engine) removePending(pc *pendingCall) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for h, q := range e.byHandle {
		if q == pc {
			delete(e.byHandle, h)
		}
	}
	for i, q := range e.queue {
		if q == pc {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			break
		}
	}
}

// sendAndAwait sends cmd‖payload as an Initial Request Packet and waits
// for its Intermediate Completion Packet, returning the raw ICP bytes.
func (e *Engine) sendAndAwait(ctx context.Context, cmd wire.Command, payload []byte) ([]byte, error) {
	begin := time.Now()
	id := uuid.New()
	e.trace.ExecuteStart(id, cmd, false)

	pc := newPendingCall()
	e.mu.Lock()
	e.queue = append(e.queue, pc)
	e.mu.Unlock()

	req := make([]byte, 0, 1+len(payload))
	req = append(req, byte(cmd))
	req = append(req, payload...)

	if err := e.t.Send(ctx, req); err != nil {
		e.removePending(pc)
		e.trace.ExecuteDone(id, cmd, false, 0, err, time.Since(begin))
		return nil, err
	}

	select {
	case icp := <-pc.resultCh:
		status := wire.Status(0)
		if len(icp) >= 3 {
			status = wire.Status(icp[2])
		}
		e.trace.ExecuteDone(id, cmd, true, status, nil, time.Since(begin))
		return icp, nil
	case <-ctx.Done():
		e.removePending(pc)
		e.trace.ExecuteDone(id, cmd, true, 0, ctx.Err(), time.Since(begin))
		return nil, ctx.Err()
	}
}

// executeChecked is sendAndAwait plus status decoding: any non-success
// status surfaces as a *StatusError.
func (e *Engine) executeChecked(ctx context.Context, cmd wire.Command, payload []byte) ([]byte, error) {
	icp, err := e.sendAndAwait(ctx, cmd, payload)
	if err != nil {
		return nil, err
	}
	if len(icp) < 3 {
		return nil, ErrMalformedResponse
	}
	status := wire.Status(icp[2])
	if !status.OK() {
		return nil, &StatusError{Command: cmd, Status: status}
	}
	return icp, nil
}

// GetSerial issues GetFdSerial/GetTxSerial for the device at index.
func (e *Engine) GetSerial(ctx context.Context, index uint32) (Serial, error) {
	payload, err := payloadGetSerial(index)
	if err != nil {
		return Serial{}, err
	}
	icp, err := e.executeChecked(ctx, wire.CmdGetSerial, payload)
	if err != nil {
		return Serial{}, err
	}
	return decodeSerialAtOffset3(icp)
}

// AddFilter admits serial through the module's receive filter.
func (e *Engine) AddFilter(ctx context.Context, serial Serial) error {
	_, err := e.executeChecked(ctx, wire.CmdAddFilter, payloadAddFilter(serial))
	return err
}

// ClearFilter removes every serial from the module's receive filter.
func (e *Engine) ClearFilter(ctx context.Context) error {
	_, err := e.executeChecked(ctx, wire.CmdClearFilter, payloadClearFilter())
	return err
}

// JoinDevice pairs a remote device with the gateway identified by
// gatewaySerial.
func (e *Engine) JoinDevice(ctx context.Context, gatewaySerial Serial) (JoinResult, error) {
	icp, err := e.executeChecked(ctx, wire.CmdJoinDevice, payloadJoinDevice(gatewaySerial))
	if err != nil {
		return JoinResult{}, err
	}
	return decodeJoinResult(icp)
}

// RemoveDevice unpairs joined from initial.
func (e *Engine) RemoveDevice(ctx context.Context, initial, joined Serial) error {
	_, err := e.executeChecked(ctx, wire.CmdRemoveDevice, payloadRemoveDevice(initial, joined))
	return err
}

// ChangeState writes state to joined's mode-indexed state vector.
func (e *Engine) ChangeState(ctx context.Context, initial, joined Serial, mode byte, state State) error {
	_, err := e.executeChecked(ctx, wire.CmdChangeState, payloadChangeState(initial, joined, mode, state))
	return err
}

// LearnControl drives the module's transmitter-learn state machine.
func (e *Engine) LearnControl(ctx context.Context, initial, joined Serial, function, mode byte, state State) error {
	_, err := e.executeChecked(ctx, wire.CmdLearnControl, payloadLearnControl(initial, joined, function, mode, state))
	return err
}

// QueryState reads joined's mode-indexed state vector.
func (e *Engine) QueryState(ctx context.Context, initial, joined Serial, mode byte) (QueryStateResult, error) {
	icp, err := e.executeChecked(ctx, wire.CmdQueryState, payloadQueryState(initial, joined, mode))
	if err != nil {
		return QueryStateResult{}, err
	}
	return decodeQueryStateResult(icp)
}

// SendCommand transmits a button/command frame for serial.
func (e *Engine) SendCommand(ctx context.Context, serial Serial, functionByte byte) error {
	_, err := e.executeChecked(ctx, wire.CmdSendCommand, payloadSendCommand(serial, functionByte))
	return err
}

// ReceiveNotification issues a Receive-Notification request, implementing
// supersedure of any previously outstanding one (§4.3). If another
// ReceiveNotification call is already pending on this Engine, it is
// completed locally first with a synthetic Superseded result before this
// call's request is sent.
func (e *Engine) ReceiveNotification(ctx context.Context) (wire.Notification, error) {
	begin := time.Now()
	id := uuid.New()
	e.trace.ExecuteStart(id, wire.CmdReceiveNotification, true)

	pc := newPendingCall()

	e.notifMu.Lock()
	prev := e.notifPending
	e.notifPending = pc
	e.notifMu.Unlock()

	if prev != nil {
		e.removePending(prev)
		prev.complete(syntheticSupersededICP())
	}

	e.mu.Lock()
	e.queue = append(e.queue, pc)
	e.mu.Unlock()

	defer e.clearNotifSlotIfCurrent(pc)

	req := append([]byte{byte(wire.CmdReceiveNotification)}, payloadReceiveNotification()...)
	if err := e.t.Send(ctx, req); err != nil {
		e.removePending(pc)
		e.trace.ExecuteDone(id, wire.CmdReceiveNotification, true, 0, err, time.Since(begin))
		return wire.Notification{}, err
	}

	select {
	case icp := <-pc.resultCh:
		n, err := decodeNotification(icp)
		e.trace.ExecuteDone(id, wire.CmdReceiveNotification, true, n.Status, err, time.Since(begin))
		if err != nil {
			return wire.Notification{}, err
		}
		e.trace.NotificationReceived(n)
		return n, nil
	case <-ctx.Done():
		e.removePending(pc)
		e.trace.ExecuteDone(id, wire.CmdReceiveNotification, true, 0, ctx.Err(), time.Since(begin))
		return wire.Notification{}, ctx.Err()
	}
}

// clearNotifSlotIfCurrent removes pc from the supersedure slot if it is
// still the current occupant, so a completed or canceled request does
// not linger there blocking nothing.
func (e *Engine) clearNotifSlotIfCurrent(pc *pendingCall) {
	e.notifMu.Lock()
	if e.notifPending == pc {
		e.notifPending = nil
	}
	e.notifMu.Unlock()
}

// syntheticSupersededICP builds the 3-byte ICP the engine manufactures
// locally to unblock a displaced Receive-Notification waiter:
// {handle=0, status=Superseded}.
func syntheticSupersededICP() []byte {
	return []byte{0x00, 0x00, byte(wire.StatusSuperseded)}
}
