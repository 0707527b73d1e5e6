package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// NewSerial opens the physical serial device named by cfg.Device and
// returns a Transport reading/writing it. Following
// amken3d-gopper/host/serial's native port wrapper, the tarm/serial
// library is kept behind this one constructor so the rest of the module
// only ever depends on the Transport/ByteStream abstractions.
func NewSerial(ctx context.Context, cfg *SerialConfig) (*Transport, error) {
	resolved := resolveSerialConfig(cfg)
	if resolved.Device == "" {
		return nil, errors.New("transport: serial device path is required")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        resolved.Device,
		Baud:        resolved.Baud,
		ReadTimeout: time.Duration(resolved.ReadTimeoutMillis) * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "transport: open %s", resolved.Device)
	}

	return New(ctx, resolved.Device, port), nil
}
