package transport

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/bryanchriswhite/wirecast/internal/frame"
)

// payloadChunkSize caps how many payload bytes a single Read may ask for.
// Serial drivers deliver data in small bursts; reading in bounded chunks
// keeps the accumulation loop responsive to stop requests.
const payloadChunkSize = 4096

// Reader reassembles framed payloads from a Conn. It owns the inbound side
// of the handle; one Reader per session, Receive called from a single
// goroutine.
//
// The reader is a two-state byte-accumulation machine: it needs exactly 4
// header bytes, then exactly the declared number of payload bytes. A single
// underlying Read is never assumed to return a full logical unit, and a
// zero-byte read with no error (the Conn's timeout expiring) is a retry, not
// a failure.
type Reader struct {
	conn    Conn
	max     uint32
	stopped atomic.Bool

	header [frame.HeaderSize]byte
}

// NewReader creates a Reader over conn. maxFrameSize bounds the declared
// payload length; 0 means frame.DefaultMaxFrameSize.
func NewReader(conn Conn, maxFrameSize uint32) *Reader {
	return &Reader{conn: conn, max: maxFrameSize}
}

// Receive blocks until one complete frame payload has been read, the stream
// fails, or Stop is called. Partial frames are never returned.
//
// Error contract:
//   - ErrStopped after Stop, at the next timeout boundary.
//   - frame.ErrOversized (wrapped) when a header declares more than the
//     configured maximum; likely stream desync, fatal, and reported before
//     any payload allocation.
//   - io.EOF (wrapped) when the stream ends cleanly between frames.
//   - io.ErrUnexpectedEOF (wrapped) when the stream ends mid-envelope.
//   - any other read error, wrapped, fatal to the session.
func (r *Reader) Receive() ([]byte, error) {
	// AwaitingHeader: exactly 4 bytes. A partial header is meaningless, so
	// nothing is interpreted until all 4 have accumulated.
	if err := r.readFull(r.header[:], true); err != nil {
		return nil, err
	}

	length := frame.ParseHeader(r.header[:])
	if err := frame.CheckLength(length, r.max); err != nil {
		return nil, fmt.Errorf("frame header: %w", err)
	}

	// AwaitingPayload: exactly length bytes, however many reads that takes.
	payload := make([]byte, length)
	if err := r.readFull(payload, false); err != nil {
		return nil, err
	}
	return payload, nil
}

// Stop makes the current and any future Receive return ErrStopped. The
// in-flight call observes the flag the next time the underlying read
// returns, so the Conn's read timeout bounds the stop latency.
func (r *Reader) Stop() {
	r.stopped.Store(true)
}

// readFull accumulates exactly len(buf) bytes. atStart is true when no bytes
// of the current envelope have been consumed yet, which is the only point
// where EOF is a clean end of stream rather than a truncated envelope.
func (r *Reader) readFull(buf []byte, atStart bool) error {
	got := 0
	for got < len(buf) {
		if r.stopped.Load() {
			return ErrStopped
		}

		limit := got + payloadChunkSize
		if limit > len(buf) {
			limit = len(buf)
		}

		n, err := r.conn.Read(buf[got:limit])
		got += n
		if err != nil {
			if err == io.EOF {
				if atStart && got == 0 {
					return fmt.Errorf("stream closed: %w", io.EOF)
				}
				return fmt.Errorf("stream closed mid-frame after %d of %d bytes: %w",
					got, len(buf), io.ErrUnexpectedEOF)
			}
			return fmt.Errorf("frame read failed after %d of %d bytes: %w", got, len(buf), err)
		}
		// n == 0 with no error is the read timeout expiring; loop and retry.
	}
	return nil
}
