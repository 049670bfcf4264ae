// Package output provides receiver-side frame sinks: a local MJPEG preview
// stream and PNG screenshots of the most recent frame.
package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/wirecast/internal/logger"
)

// previewQuality is the JPEG quality of the re-encoded preview stream. The
// preview is a local convenience; it does not need to match the wire
// quality.
const previewQuality = 80

// MJPEGOutput exposes received frames as a Motion JPEG stream over HTTP so
// the feed can be watched in a browser. It keeps only the most recent frame:
// slow clients skip frames, they are never queued.
type MJPEGOutput struct {
	mu      sync.RWMutex
	running bool

	frameMu      sync.RWMutex
	currentFrame *image.RGBA
	lastUpdate   time.Time

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	frameCount uint64
	startTime  time.Time
}

// NewMJPEGOutput creates an MJPEG preview sink.
func NewMJPEGOutput() *MJPEGOutput {
	return &MJPEGOutput{
		clients: make(map[chan []byte]struct{}),
	}
}

// Start marks the output active.
func (m *MJPEGOutput) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("MJPEG output already running")
	}
	m.running = true
	m.startTime = time.Now()
	m.frameCount = 0

	logger.WithComponent("mjpeg").Info().Msg("preview output started")
	return nil
}

// Stop disconnects all preview clients.
func (m *MJPEGOutput) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	m.clientsMu.Lock()
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})
	m.clientsMu.Unlock()

	logger.WithComponent("mjpeg").Info().Uint64("frames", m.frameCount).Msg("preview output stopped")
	return nil
}

// IsRunning returns true if the output is active
func (m *MJPEGOutput) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// HandleFrame implements pipeline.FrameSink: it retains the frame for
// screenshots and broadcasts a re-encoded JPEG to connected clients.
func (m *MJPEGOutput) HandleFrame(frame *image.RGBA) error {
	if !m.IsRunning() {
		return fmt.Errorf("MJPEG output not running")
	}

	m.frameMu.Lock()
	m.currentFrame = frame
	m.lastUpdate = time.Now()
	m.frameMu.Unlock()

	m.mu.Lock()
	m.frameCount++
	m.mu.Unlock()

	m.clientsMu.RLock()
	hasClients := len(m.clients) > 0
	m.clientsMu.RUnlock()
	if !hasClients {
		return nil
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: previewQuality}); err != nil {
		return fmt.Errorf("failed to encode preview JPEG: %w", err)
	}
	jpegData := buf.Bytes()

	m.clientsMu.RLock()
	for ch := range m.clients {
		select {
		case ch <- jpegData:
		default:
			// Client is slow, skip this frame
		}
	}
	m.clientsMu.RUnlock()
	return nil
}

// Stats reports preview throughput counters.
func (m *MJPEGOutput) Stats() (frames uint64, fps float64, clients int) {
	m.mu.RLock()
	frames = m.frameCount
	start := m.startTime
	running := m.running
	m.mu.RUnlock()

	if running && !start.IsZero() {
		if elapsed := time.Since(start).Seconds(); elapsed > 0 {
			fps = float64(frames) / elapsed
		}
	}

	m.clientsMu.RLock()
	clients = len(m.clients)
	m.clientsMu.RUnlock()
	return frames, fps, clients
}

// StreamHandler returns an http.HandlerFunc serving the multipart MJPEG
// stream. Mount it at /stream.
func (m *MJPEGOutput) StreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Connection", "close")

		frameChan := make(chan []byte, 2)

		m.clientsMu.Lock()
		m.clients[frameChan] = struct{}{}
		clientCount := len(m.clients)
		m.clientsMu.Unlock()

		log := logger.WithComponent("mjpeg")
		log.Info().Int("clients", clientCount).Msg("preview client connected")

		defer func() {
			m.clientsMu.Lock()
			delete(m.clients, frameChan)
			remaining := len(m.clients)
			m.clientsMu.Unlock()
			log.Info().Int("clients", remaining).Msg("preview client disconnected")
		}()

		for jpegData := range frameChan {
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
				return
			}
			if _, err := w.Write(jpegData); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}
