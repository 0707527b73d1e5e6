package gateway

import (
	"context"
	"time"

	"github.com/easywave/rx22gw/protocol"
)

// SendBurst sends count SendCommand frames for serial using functionByte,
// separated by delay, honouring cancellation between frames: a canceled
// ctx stops the burst early without sending the remaining frames (§4.4).
func (g *Gateway) SendBurst(ctx context.Context, serial protocol.Serial, functionByte byte, count int, delay time.Duration) error {
	for i := 0; i < count; i++ {
		if err := g.SendCommand(ctx, serial, functionByte); err != nil {
			return err
		}
		if i == count-1 {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// ContinuousEmit sends SendCommand frames for serial using functionByte
// every interval until ctx is canceled, then returns nil: cancellation is
// the loop's only exit and is never surfaced as an error (§4.4).
func (g *Gateway) ContinuousEmit(ctx context.Context, serial protocol.Serial, functionByte byte, interval time.Duration) error {
	for {
		if err := g.SendCommand(ctx, serial, functionByte); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

// SendForDuration runs ContinuousEmit bounded by duration, linked to
// ctx's own cancellation (§4.4).
func (g *Gateway) SendForDuration(ctx context.Context, serial protocol.Serial, functionByte byte, duration time.Duration, interval time.Duration) error {
	bounded, cancel := context.WithTimeout(ctx, duration)
	defer cancel()
	return g.ContinuousEmit(bounded, serial, functionByte, interval)
}

// sleep waits for d or ctx cancellation, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
