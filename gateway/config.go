package gateway

import (
	"github.com/imdario/mergo"

	"github.com/easywave/rx22gw/transport"
)

// Config controls how New opens and drives the gateway module.
type Config struct {
	// Serial describes the physical line. Zero fields fall back to
	// transport.DefaultSerialConfig.
	Serial transport.SerialConfig
}

// DefaultConfig is transport.DefaultSerialConfig with no device path set;
// a caller must always supply Serial.Device.
var DefaultConfig = Config{
	Serial: *transport.DefaultSerialConfig,
}

func resolveConfig(cfg Config) Config {
	resolved := cfg
	_ = mergo.Merge(&resolved.Serial, DefaultConfig.Serial)
	return resolved
}
