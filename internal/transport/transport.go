// Package transport turns a boundary-less byte stream into a sequence of
// length-delimited frames. The Writer emits one envelope per Send; the
// Reader reassembles envelopes across arbitrarily fragmented reads.
package transport

import (
	"errors"
	"io"
)

// Conn is a byte-stream endpoint the frame transport runs over. Reads must
// have bounded latency: a Read that has nothing to deliver returns (0, nil)
// after the configured timeout rather than blocking forever, so that a stop
// request is never starved. Drain blocks until buffered output has been
// handed to the device.
//
// go.bug.st/serial.Port satisfies Conn directly; tests use in-memory fakes.
type Conn interface {
	io.ReadWriteCloser
	Drain() error
}

// ErrStopped is returned by Reader.Receive after Stop has been requested.
// It marks a clean shutdown, not a transport failure.
var ErrStopped = errors.New("transport: reader stopped")
