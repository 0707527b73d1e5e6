package transport

import "github.com/imdario/mergo"

// SerialConfig describes the physical line configuration used to reach
// the gateway module. 115200 baud, 8 data bits, no parity, one stop bit
// is the configuration used against the EasyWave RX22 (§6); other values
// are accepted for compatible modules.
type SerialConfig struct {
	// Device is the OS path to the serial device, e.g. "/dev/ttyUSB0".
	Device string
	// Baud is the line speed in bits per second.
	Baud int
	// ReadTimeoutMillis bounds a single underlying read; it is a
	// transport-level timeout (§5), not a command timeout.
	ReadTimeoutMillis int
}

// DefaultSerialConfig is 115200 8-N-1 with a 250ms read timeout.
var DefaultSerialConfig = &SerialConfig{
	Baud:              115200,
	ReadTimeoutMillis: 250,
}

// resolveSerialConfig merges cfg over DefaultSerialConfig, leaving any zero-valued
// field in cfg to fall back to the default. cfg itself is not mutated.
func resolveSerialConfig(cfg *SerialConfig) *SerialConfig {
	if cfg == nil {
		resolved := *DefaultSerialConfig
		return &resolved
	}
	resolved := *cfg
	_ = mergo.Merge(&resolved, DefaultSerialConfig)
	return &resolved
}
