package gateway

import (
	"context"

	"github.com/easywave/rx22gw/transport"
)

// New opens the serial device named in cfg and returns a Gateway driving
// it, mirroring damianoneill-net/v2/snmp's NewFactory/NewSession split:
// config resolution happens once, here, before any I/O is attempted.
func New(ctx context.Context, cfg Config, opts ...Option) (*Gateway, error) {
	resolved := resolveConfig(cfg)
	t, err := transport.NewSerial(ctx, &resolved.Serial)
	if err != nil {
		return nil, err
	}
	return NewWithTransport(ctx, t, opts...), nil
}
