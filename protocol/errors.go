package protocol

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/easywave/rx22gw/wire"
)

// ErrInvalidArgument is returned when a caller-supplied value violates a
// fixed-length or range invariant (serial not 16 bytes, state not 4
// bytes, an index too large for 16 bits).
var ErrInvalidArgument = errors.New("protocol: invalid argument")

// ErrMalformedResponse is returned when an Intermediate Completion
// Packet is too short or otherwise structurally wrong for the command
// that produced it.
var ErrMalformedResponse = errors.New("protocol: malformed response")

// StatusError reports a non-success status byte from an Intermediate
// Completion Packet. It is the taxonomy's ProtocolStatus(code) kind.
type StatusError struct {
	Command wire.Command
	Status  wire.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("protocol: %s failed: %s", e.Command, e.Status)
}

// Is allows errors.Is(err, protocol.ErrProtocolStatus) to match any
// StatusError, regardless of which command or status code it carries.
func (e *StatusError) Is(target error) bool {
	return target == ErrProtocolStatus
}

// ErrProtocolStatus is a sentinel usable with errors.Is to detect any
// StatusError without inspecting its fields.
var ErrProtocolStatus = errors.New("protocol: non-success status")

// invalidArgf wraps ErrInvalidArgument with a formatted detail message.
func invalidArgf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
