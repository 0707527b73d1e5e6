// Package codec implements the EasyWave RX22 byte-stuffing framing: the
// pure Encode/Decode pair described in the protocol's framing layer.
// Both functions are stateless and safe for concurrent use.
package codec

import (
	"github.com/pkg/errors"

	"github.com/easywave/rx22gw/wire"
)

// ErrInvalidEscape is returned by Decode when an escape octet (0x80) is
// followed by a byte greater than 0x02, or is the last byte of the input.
var ErrInvalidEscape = errors.New("codec: invalid escape sequence")

// needsEscape reports whether b must be stuffed when it appears in a
// payload: SOP, EOP and ESC itself.
func needsEscape(b byte) bool {
	return b == wire.ESC || b == wire.SOP || b == wire.EOP
}

// Encode frames payload as SOP, stuffed(payload), EOP. Each occurrence of
// 0x80/0x81/0x82 in payload is replaced by 0x80 followed by the original
// value minus 0x80. An empty payload encodes to just SOP, EOP.
func Encode(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2)
	out = append(out, wire.SOP)
	for _, b := range payload {
		if needsEscape(b) {
			out = append(out, wire.ESC, b-wire.ESC)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, wire.EOP)
	return out
}

// Decode reverses the stuffing applied by Encode. stuffed must be exactly
// the bytes strictly between a frame's SOP and EOP delimiters — Decode
// does not look for delimiters itself. Decode fails with ErrInvalidEscape
// if an escape octet is not followed by a value in [0x00, 0x02], or is
// the final byte of stuffed.
func Decode(stuffed []byte) ([]byte, error) {
	out := make([]byte, 0, len(stuffed))
	for i := 0; i < len(stuffed); i++ {
		b := stuffed[i]
		if b != wire.ESC {
			out = append(out, b)
			continue
		}
		if i+1 >= len(stuffed) {
			return nil, errors.WithStack(ErrInvalidEscape)
		}
		i++
		s := stuffed[i]
		if s > 0x02 {
			return nil, errors.WithStack(ErrInvalidEscape)
		}
		out = append(out, wire.ESC+s)
	}
	return out, nil
}
