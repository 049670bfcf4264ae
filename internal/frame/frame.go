// Package frame defines the wire envelope for one video frame: a 4-byte
// big-endian length field followed by exactly that many payload bytes.
//
// There is no magic number, version tag, checksum, or sequence number. The
// envelope assumes the underlying byte stream is error-free and
// order-preserving (serial/USB links are, in practice). If the stream ever
// loses or duplicates a byte, the reader has no way to resynchronize: the
// next length field is read from the middle of a payload and the stream is
// permanently desynchronized. The length bound is the only guard against
// that failure mode turning into an unbounded allocation.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of the length field in bytes.
const HeaderSize = 4

// DefaultMaxFrameSize bounds how large a declared payload may be before the
// reader treats the header as stream corruption. A 1280x720 JPEG at typical
// quality is around 100KB; 16MB covers any plausible resolution while
// rejecting nearly all garbage headers.
const DefaultMaxFrameSize = 16 << 20

// ErrOversized is returned when a header declares a payload larger than the
// configured maximum. It indicates stream corruption or desync, not a bad
// frame, and is fatal to the session.
var ErrOversized = errors.New("declared frame length exceeds maximum")

// PutHeader writes the length field for a payload of n bytes into b.
// b must be at least HeaderSize bytes long.
func PutHeader(b []byte, n uint32) {
	binary.BigEndian.PutUint32(b, n)
}

// AppendHeader appends the length field for a payload of n bytes to dst.
func AppendHeader(dst []byte, n uint32) []byte {
	return binary.BigEndian.AppendUint32(dst, n)
}

// ParseHeader interprets the first HeaderSize bytes of b as a payload length.
// b must be at least HeaderSize bytes long.
func ParseHeader(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// Envelope returns the complete wire form of payload: header followed by the
// payload bytes in a single buffer, so the transport can emit it in one write.
func Envelope(payload []byte) []byte {
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = AppendHeader(buf, uint32(len(payload)))
	return append(buf, payload...)
}

// CheckLength validates a declared payload length against max. max == 0
// means DefaultMaxFrameSize.
func CheckLength(n, max uint32) error {
	if max == 0 {
		max = DefaultMaxFrameSize
	}
	if n > max {
		return fmt.Errorf("%w: %d > %d", ErrOversized, n, max)
	}
	return nil
}
