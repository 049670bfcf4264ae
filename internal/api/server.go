// Package api exposes the receiver's status, telemetry, and preview stream
// over HTTP for local tooling. It never touches the transport: everything it
// reports is fed to it by the controlling command.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/wirecast/internal/config"
	"github.com/bryanchriswhite/wirecast/internal/logger"
	"github.com/bryanchriswhite/wirecast/internal/output"
	"github.com/bryanchriswhite/wirecast/internal/pipeline"
)

// TelemetryMessage is the JSON shape pushed to websocket subscribers.
type TelemetryMessage struct {
	Type  string  `json:"type"` // "rate", "error", "session_ended"
	FPS   float64 `json:"fps,omitempty"`
	Error string  `json:"error,omitempty"`
}

// Server represents the receiver's HTTP status server
type Server struct {
	router   *mux.Router
	receiver *pipeline.Receiver
	preview  *output.MJPEGOutput
	cfg      *config.Config
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	lastFPS float64

	subsMu sync.RWMutex
	subs   map[chan TelemetryMessage]struct{}
}

// NewServer creates the status server for a receiver session.
func NewServer(receiver *pipeline.Receiver, preview *output.MJPEGOutput, cfg *config.Config) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		receiver: receiver,
		preview:  preview,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[chan TelemetryMessage]struct{}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/screenshot", s.handleScreenshot).Methods("POST")
	api.HandleFunc("/telemetry", s.handleTelemetry)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/stream", s.preview.StreamHandler())
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("status server listening")
	return http.ListenAndServe(addr, s.enableCORS(s.router))
}

// Publish forwards a pipeline event to websocket subscribers and records
// the latest rate sample. Delivery to subscribers is non-blocking.
func (s *Server) Publish(ev pipeline.Event) {
	msg := TelemetryMessage{}
	switch ev.Kind {
	case pipeline.EventRateSample:
		msg.Type = "rate"
		msg.FPS = ev.FPS
		s.mu.Lock()
		s.lastFPS = ev.FPS
		s.mu.Unlock()
	case pipeline.EventError:
		msg.Type = "error"
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
	case pipeline.EventSessionEnded:
		msg.Type = "session_ended"
		s.mu.Lock()
		s.lastFPS = 0
		s.mu.Unlock()
	}

	s.subsMu.RLock()
	for ch := range s.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	s.subsMu.RUnlock()
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	fps := s.lastFPS
	s.mu.RUnlock()

	writeJSON(w, map[string]interface{}{
		"running":         s.receiver.IsRunning(),
		"port":            s.cfg.Port,
		"baud_rate":       s.cfg.BaudRate,
		"frames_received": s.receiver.FramesReceived(),
		"decode_failures": s.receiver.DecodeFailures(),
		"fps":             fps,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	frames, fps, clients := s.preview.Stats()
	writeJSON(w, map[string]interface{}{
		"preview_frames":  frames,
		"preview_fps":     fps,
		"preview_clients": clients,
	})
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	path, err := s.preview.SaveScreenshot(s.cfg.ScreenshotDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]string{"path": path})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan TelemetryMessage, 8)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()
	defer func() {
		s.subsMu.Lock()
		delete(s.subs, ch)
		s.subsMu.Unlock()
	}()

	// Drain client reads so close frames are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-ch:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("response encode failed")
	}
}
