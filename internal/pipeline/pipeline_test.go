package pipeline

import (
	"sync"
	"testing"
	"time"
)

// collectUntilEnded drains ev until EventSessionEnded arrives or the timeout
// expires, returning everything seen before the terminal event.
func collectUntilEnded(t *testing.T, ev <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(timeout)
	for {
		select {
		case e := <-ev:
			if e.Kind == EventSessionEnded {
				return got
			}
			got = append(got, e)
		case <-deadline:
			t.Fatal("no EventSessionEnded within timeout")
		}
	}
}

// memConn is an in-memory Conn. Writes accumulate into a buffer; reads
// replay a script of chunks, then time out (or fail with tailErr).
type memConn struct {
	mu      sync.Mutex
	written []byte
	steps   [][]byte
	pos     int
	tailErr error
	closed  bool
}

func (c *memConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	if c.pos >= len(c.steps) {
		err := c.tailErr
		c.mu.Unlock()
		if err != nil {
			return 0, err
		}
		// Simulated read timeout.
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	defer c.mu.Unlock()
	step := c.steps[c.pos]
	n := copy(p, step)
	if n < len(step) {
		c.steps[c.pos] = step[n:]
	} else {
		c.pos++
	}
	return n, nil
}

func (c *memConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *memConn) Drain() error { return nil }

func (c *memConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *memConn) bytesWritten() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.written))
	copy(out, c.written)
	return out
}

func (c *memConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
