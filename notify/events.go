package notify

import (
	"time"

	"github.com/easywave/rx22gw/wire"
)

// EventKind classifies a dispatched Event.
type EventKind int

// The closed set of event kinds the dispatcher emits (§4.5).
const (
	EventButtonPressed EventKind = iota
	EventButtonReleased
	EventLowBattery
	EventSensor
	EventStateChange
	EventLearn
	EventUnhandled
)

func (k EventKind) String() string {
	switch k {
	case EventButtonPressed:
		return "ButtonPressed"
	case EventButtonReleased:
		return "ButtonReleased"
	case EventLowBattery:
		return "LowBattery"
	case EventSensor:
		return "Sensor"
	case EventStateChange:
		return "StateChange"
	case EventLearn:
		return "Learn"
	case EventUnhandled:
		return "Unhandled"
	default:
		return "Unknown"
	}
}

// Event is a structured decoding of one Receive-Notification completion.
// Sequence and ReceivedAt are not named in the wire format; they are
// metadata the dispatcher attaches so a consumer can order and age
// events without re-deriving them from the raw notification.
type Event struct {
	Kind   EventKind
	Serial [wire.SerialLen]byte

	Button   wire.Button
	Function wire.Function

	Mode  byte
	State [wire.StateLen]byte

	Info wire.InfoType // set for Learn and Unhandled events

	Additional [8]byte

	Sequence   uint64
	ReceivedAt time.Time
}
