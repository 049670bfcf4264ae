package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/bryanchriswhite/wirecast/internal/capture"
	"github.com/bryanchriswhite/wirecast/internal/config"
	"github.com/bryanchriswhite/wirecast/internal/encoder"
	"github.com/bryanchriswhite/wirecast/internal/logger"
	"github.com/bryanchriswhite/wirecast/internal/pacer"
	"github.com/bryanchriswhite/wirecast/internal/transport"
)

// rateReportFrames is how many frames pass between sender throughput
// reports.
const rateReportFrames = 30

// Dialer opens the outbound transport handle for a sender session.
type Dialer func() (transport.Conn, error)

// Sender runs the capture -> encode -> pace -> write loop on a dedicated
// goroutine. The loop body is strictly sequential; the only concurrency is
// between the loop and the controller issuing Start/Stop and reading events.
type Sender struct {
	cfg  *config.Config
	cap  capture.Capturer
	enc  encoder.Encoder
	dial Dialer

	mu            sync.Mutex
	running       bool
	stopRequested bool
	stop          chan struct{}
	done          chan struct{}

	events chan Event
}

// NewSender creates a sender pipeline. Nothing is opened until Start.
func NewSender(cfg *config.Config, cap capture.Capturer, enc encoder.Encoder, dial Dialer) *Sender {
	return &Sender{
		cfg:    cfg,
		cap:    cap,
		enc:    enc,
		dial:   dial,
		events: make(chan Event, 16),
	}
}

// Events returns the telemetry channel. Events are dropped rather than
// delivered late if the controller does not keep up.
func (s *Sender) Events() <-chan Event {
	return s.events
}

// Done returns a channel closed when the sender loop has fully exited and
// the transport handle is released.
func (s *Sender) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// IsRunning reports whether the loop is active.
func (s *Sender) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start opens the transport and launches the send loop. An open failure is
// returned directly and the sender stays stopped.
func (s *Sender) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sender already running")
	}

	conn, err := s.dial()
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	if err := s.cap.Start(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to start capture: %w", err)
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	s.stopRequested = false
	go s.loop(conn, s.stop, s.done)
	return nil
}

// Stop requests the loop to end and waits for it to exit. On return the
// transport handle is closed and the port can be reopened.
func (s *Sender) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	if !s.stopRequested {
		s.stopRequested = true
		close(s.stop)
	}
	done := s.done
	s.mu.Unlock()

	<-done
}

func (s *Sender) loop(conn transport.Conn, stop <-chan struct{}, done chan<- struct{}) {
	log := logger.WithComponent("sender")

	defer func() {
		conn.Close()
		s.cap.Stop()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		emit(s.events, Event{Kind: EventSessionEnded})
		close(done)
	}()

	writer := transport.NewWriter(conn)
	pace := pacer.New(s.cfg.TargetFPS)

	framesSent := 0
	start := time.Now()

	log.Info().
		Int("target_fps", s.cfg.TargetFPS).
		Int("quality", s.cfg.Quality).
		Msg("sender loop started")

	for {
		select {
		case <-stop:
			log.Info().Int("frames_sent", framesSent).Msg("sender loop stopping")
			return
		default:
		}

		cycleStart := time.Now()

		img, err := s.cap.CaptureScreen()
		if err != nil {
			log.Error().Err(err).Msg("capture failed")
			emit(s.events, Event{Kind: EventError, Err: err})
			return
		}

		data, err := s.enc.Encode(img)
		if err != nil {
			log.Error().Err(err).Msg("encode failed")
			emit(s.events, Event{Kind: EventError, Err: err})
			return
		}

		if _, err := writer.Send(data); err != nil {
			log.Error().Err(err).Msg("frame send failed")
			emit(s.events, Event{Kind: EventError, Err: err})
			return
		}

		framesSent++
		if framesSent%rateReportFrames == 0 {
			elapsed := time.Since(start).Seconds()
			fps := float64(framesSent) / elapsed
			log.Info().
				Int("frames_sent", framesSent).
				Float64("fps", fps).
				Int("last_frame_bytes", len(data)).
				Msg("throughput")
			emit(s.events, Event{Kind: EventRateSample, FPS: fps})
		}

		// Sleep off the rest of the frame budget, but stay responsive to a
		// stop request during the wait.
		if d := pace.SleepFor(time.Since(cycleStart)); d > 0 {
			select {
			case <-stop:
				log.Info().Int("frames_sent", framesSent).Msg("sender loop stopping")
				return
			case <-time.After(d):
			}
		}
	}
}
