// Package resetctl declares the GPIO collaborator shape the driver
// depends on for optional reset recovery (§6). Nothing in this module
// implements these interfaces; a caller supplies a concrete GPIO binding
// (e.g. a periph.io or sysfs-backed implementation) appropriate to its
// own hardware.
package resetctl

import "context"

// ResetLine is an open-drain, active-low reset line. AssertReset drives
// it low for pulse before releasing it back to high-impedance input.
type ResetLine interface {
	AssertReset(ctx context.Context, pulse Duration) error
	Release(ctx context.Context) error
}

// Duration is a pulse width in milliseconds, kept as its own type so a
// caller's GPIO binding is not forced to depend on time.Duration's
// nanosecond resolution for a value that is always expressed in whole
// milliseconds on this hardware.
type Duration int

// OutputPin is a single general-purpose digital output.
type OutputPin interface {
	Set(ctx context.Context) error
	Clear(ctx context.Context) error
}
