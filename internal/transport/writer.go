package transport

import (
	"fmt"

	"github.com/bryanchriswhite/wirecast/internal/frame"
)

// Writer sends framed payloads over a Conn. It owns the outbound side of the
// handle; one Writer per session, used from a single goroutine.
type Writer struct {
	conn Conn
}

// NewWriter creates a Writer over conn.
func NewWriter(conn Conn) *Writer {
	return &Writer{conn: conn}
}

// Send writes one envelope (length header plus payload) and drains the OS
// write buffer, so the peer is never left waiting on bytes that sit in a
// kernel queue. It returns the number of envelope bytes written.
//
// Any error is fatal to the session: a failure after the header has gone out
// would leave the peer blocked on a phantom payload, so the caller must close
// the connection rather than retry.
func (w *Writer) Send(payload []byte) (int, error) {
	env := frame.Envelope(payload)

	n, err := w.conn.Write(env)
	if err != nil {
		return n, fmt.Errorf("frame write failed after %d of %d bytes: %w", n, len(env), err)
	}
	if n != len(env) {
		return n, fmt.Errorf("short frame write: %d of %d bytes", n, len(env))
	}

	if err := w.conn.Drain(); err != nil {
		return n, fmt.Errorf("frame drain failed: %w", err)
	}
	return n, nil
}
