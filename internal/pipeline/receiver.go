package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/wirecast/internal/config"
	"github.com/bryanchriswhite/wirecast/internal/decoder"
	"github.com/bryanchriswhite/wirecast/internal/logger"
	"github.com/bryanchriswhite/wirecast/internal/transport"
)

// rateSampleInterval is the minimum wall-clock spacing between receiver
// rate samples.
const rateSampleInterval = time.Second

// Receiver runs the read -> decode -> deliver loop on a dedicated goroutine.
// It owns the inbound transport handle for the lifetime of the session and
// closes it when the loop exits.
type Receiver struct {
	dec    decoder.Decoder
	sink   FrameSink
	conn   transport.Conn
	reader *transport.Reader

	mu      sync.Mutex
	running bool
	done    chan struct{}

	framesReceived atomic.Uint64
	decodeFailures atomic.Uint64

	events chan Event
}

// NewReceiver creates a receiver pipeline over an already-open conn.
func NewReceiver(cfg *config.Config, dec decoder.Decoder, sink FrameSink, conn transport.Conn) *Receiver {
	return &Receiver{
		dec:    dec,
		sink:   sink,
		conn:   conn,
		reader: transport.NewReader(conn, cfg.MaxFrameBytes),
		events: make(chan Event, 16),
	}
}

// Events returns the telemetry channel. Delivery is best-effort.
func (r *Receiver) Events() <-chan Event {
	return r.events
}

// Done returns a channel closed when the receive loop has fully exited and
// the transport handle is released.
func (r *Receiver) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// IsRunning reports whether the loop is active.
func (r *Receiver) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// FramesReceived returns the number of frames decoded and delivered so far.
func (r *Receiver) FramesReceived() uint64 {
	return r.framesReceived.Load()
}

// DecodeFailures returns the number of well-framed payloads the decoder
// rejected.
func (r *Receiver) DecodeFailures() uint64 {
	return r.decodeFailures.Load()
}

// Start launches the receive loop.
func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("receiver already running")
	}
	r.done = make(chan struct{})
	r.running = true
	go r.loop(r.done)
	return nil
}

// Stop flags the reader and waits for the loop to exit. The transport read
// timeout bounds how long an idle receiver takes to notice the request. On
// return the handle is closed.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	done := r.done
	r.mu.Unlock()

	r.reader.Stop()
	<-done
}

func (r *Receiver) loop(done chan<- struct{}) {
	log := logger.WithComponent("receiver")

	defer func() {
		r.conn.Close()
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		emit(r.events, Event{Kind: EventSessionEnded})
		close(done)
	}()

	windowStart := time.Now()
	windowFrames := 0

	log.Info().Msg("receiver loop started")

	for {
		payload, err := r.reader.Receive()
		if err != nil {
			if errors.Is(err, transport.ErrStopped) {
				log.Info().Uint64("frames_received", r.framesReceived.Load()).
					Msg("receiver loop stopping")
				return
			}
			// Any other receive error is fatal to the session: a dead link,
			// a truncated stream, or a desynchronized header.
			log.Error().Err(err).Msg("frame receive failed")
			emit(r.events, Event{Kind: EventError, Err: err})
			return
		}

		img, err := r.dec.Decode(payload)
		if err != nil {
			// Non-fatal: the framing already consumed exactly the declared
			// byte count, so the next envelope starts at the right offset.
			r.decodeFailures.Add(1)
			log.Warn().Err(err).Int("payload_bytes", len(payload)).
				Msg("dropping undecodable frame")
			emit(r.events, Event{Kind: EventError, Err: err})
			continue
		}

		if err := r.sink.HandleFrame(img); err != nil {
			log.Warn().Err(err).Msg("frame sink rejected frame")
		}

		r.framesReceived.Add(1)
		windowFrames++

		if elapsed := time.Since(windowStart); elapsed >= rateSampleInterval {
			fps := float64(windowFrames) / elapsed.Seconds()
			emit(r.events, Event{Kind: EventRateSample, FPS: fps})
			log.Debug().Float64("fps", fps).Msg("rate sample")
			windowStart = time.Now()
			windowFrames = 0
		}
	}
}
