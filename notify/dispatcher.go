// Package notify is the Notification Dispatcher (§4.5): a consumer loop
// that repeatedly awaits one Receive-Notification completion and emits a
// structured Event classified by info-type.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/easywave/rx22gw/protocol"
	"github.com/easywave/rx22gw/wire"
)

// Receiver is the one method the dispatcher needs from a Gateway or bare
// Engine, kept narrow so tests can drive it with a fake.
type Receiver interface {
	ReceiveNotification(ctx context.Context) (wire.Notification, error)
}

// Run drains Receiver.ReceiveNotification in a loop, calling emit for
// every classified Event and reportErr for every non-fatal problem
// (a non-success status on the completion, or a malformed payload whose
// length mismatch prevented decoding). Run returns nil on clean
// cancellation of ctx, or the first fatal transport error otherwise
// (§4.5, §7 propagation policy): a decode failure is reported and the
// loop continues, but a transport error is not recoverable and ends it.
func Run(ctx context.Context, recv Receiver, emit func(Event), reportErr func(error)) error {
	var seq uint64
	for {
		n, err := recv.ReceiveNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, protocol.ErrMalformedResponse) {
				reportErr(err)
				continue
			}
			return err
		}
		if n.Status != wire.StatusSuccess {
			reportErr(&nonSuccessNotificationError{Status: n.Status})
			continue
		}
		seq++
		emit(classify(n, seq, time.Now()))
	}
}

func classify(n wire.Notification, seq uint64, at time.Time) Event {
	base := Event{
		Serial:     n.Serial,
		Additional: n.Additional,
		Sequence:   seq,
		ReceivedAt: at,
	}

	switch n.Info {
	case wire.InfoPushAndHold:
		button, function := wire.SplitFunctionByte(n.Additional[0])
		base.Button, base.Function = button, function
		if function == wire.FuncLowBattery {
			base.Kind = EventLowBattery
		} else {
			base.Kind = EventButtonPressed
		}
	case wire.InfoRelease:
		base.Button = wire.Button(n.Additional[0] & 0x03)
		base.Kind = EventButtonReleased
	case wire.InfoSensor:
		base.Kind = EventSensor
	case wire.InfoStateChange:
		base.Kind = EventStateChange
		base.Mode = n.Additional[0]
		copy(base.State[:], n.Additional[1:1+wire.StateLen])
	case wire.InfoLearnStart, wire.InfoLearnComplete, wire.InfoLearnFail:
		base.Kind = EventLearn
		base.Info = n.Info
	default:
		base.Kind = EventUnhandled
		base.Info = n.Info
	}
	return base
}
