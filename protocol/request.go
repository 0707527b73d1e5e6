package protocol

import (
	"encoding/binary"

	"github.com/easywave/rx22gw/wire"
)

// Serial is a fixed 16-byte opaque device identifier.
type Serial [wire.SerialLen]byte

// NewSerial validates that b is exactly 16 bytes and returns it as a
// Serial, satisfying the invariant that every serial-carrying operation
// requires exactly 16 octets.
func NewSerial(b []byte) (Serial, error) {
	var s Serial
	if len(b) != wire.SerialLen {
		return s, invalidArgf("serial must be %d bytes, got %d", wire.SerialLen, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// State is a fixed 4-byte state vector.
type State [wire.StateLen]byte

// NewState validates that b is exactly 4 bytes and returns it as a State.
func NewState(b []byte) (State, error) {
	var s State
	if len(b) != wire.StateLen {
		return s, invalidArgf("state must be %d bytes, got %d", wire.StateLen, len(b))
	}
	copy(s[:], b)
	return s, nil
}

func encodeU16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// --- outbound payload builders (§4.3 per-command payload table) ---

func payloadGetSerial(index uint32) ([]byte, error) {
	if index > 0xFFFF {
		return nil, invalidArgf("index %d does not fit in 16 bits", index)
	}
	return encodeU16(uint16(index)), nil
}

func payloadAddFilter(serial Serial) []byte {
	return append([]byte(nil), serial[:]...)
}

func payloadClearFilter() []byte {
	return nil
}

func payloadJoinDevice(gatewaySerial Serial) []byte {
	return append([]byte(nil), gatewaySerial[:]...)
}

func payloadRemoveDevice(initial, joined Serial) []byte {
	out := make([]byte, 0, 2*wire.SerialLen)
	out = append(out, initial[:]...)
	out = append(out, joined[:]...)
	return out
}

func payloadChangeState(initial, joined Serial, mode byte, state State) []byte {
	out := make([]byte, 0, 2*wire.SerialLen+1+wire.StateLen)
	out = append(out, initial[:]...)
	out = append(out, joined[:]...)
	out = append(out, mode)
	out = append(out, state[:]...)
	return out
}

func payloadLearnControl(initial, joined Serial, function, mode byte, state State) []byte {
	out := make([]byte, 0, 2*wire.SerialLen+2+wire.StateLen)
	out = append(out, initial[:]...)
	out = append(out, joined[:]...)
	out = append(out, function, mode)
	out = append(out, state[:]...)
	return out
}

func payloadQueryState(initial, joined Serial, mode byte) []byte {
	out := make([]byte, 0, 2*wire.SerialLen+1)
	out = append(out, initial[:]...)
	out = append(out, joined[:]...)
	out = append(out, mode)
	return out
}

func payloadReceiveNotification() []byte {
	return nil
}

func payloadSendCommand(serial Serial, functionByte byte) []byte {
	out := make([]byte, 0, wire.SerialLen+1)
	out = append(out, serial[:]...)
	out = append(out, functionByte)
	return out
}

// --- ICP trailing-data decoders ---

// JoinResult is the decoded result of a successful JoinDevice command.
type JoinResult struct {
	Serial     Serial
	DeviceType byte
}

// QueryStateResult is the decoded result of a successful QueryState
// command.
type QueryStateResult struct {
	Mode  byte
	State State
}

func decodeSerialAtOffset3(icp []byte) (Serial, error) {
	if len(icp) < 3+wire.SerialLen {
		return Serial{}, ErrMalformedResponse
	}
	var s Serial
	copy(s[:], icp[3:3+wire.SerialLen])
	return s, nil
}

func decodeJoinResult(icp []byte) (JoinResult, error) {
	if len(icp) < 3+wire.SerialLen+1 {
		return JoinResult{}, ErrMalformedResponse
	}
	var r JoinResult
	copy(r.Serial[:], icp[3:3+wire.SerialLen])
	r.DeviceType = icp[3+wire.SerialLen]
	return r, nil
}

func decodeQueryStateResult(icp []byte) (QueryStateResult, error) {
	if len(icp) < 3+1+wire.StateLen {
		return QueryStateResult{}, ErrMalformedResponse
	}
	var r QueryStateResult
	r.Mode = icp[3]
	copy(r.State[:], icp[4:4+wire.StateLen])
	return r, nil
}

func decodeNotification(icp []byte) (wire.Notification, error) {
	var n wire.Notification
	if len(icp) < 3 {
		return n, ErrMalformedResponse
	}
	n.Handle = wire.Handle(uint16(icp[0])<<8 | uint16(icp[1]))
	n.Status = wire.Status(icp[2])

	// A 3-byte ICP is the documented canceled/superseded exception: no
	// info-type, serial or additional data follows (§4.3).
	if len(icp) == 3 {
		return n, nil
	}
	if len(icp) < wire.NotificationLen {
		return n, ErrMalformedResponse
	}
	n.Info = wire.InfoType(icp[3])
	copy(n.Serial[:], icp[4:4+wire.SerialLen])
	copy(n.Additional[:], icp[4+wire.SerialLen:4+wire.SerialLen+8])
	return n, nil
}
