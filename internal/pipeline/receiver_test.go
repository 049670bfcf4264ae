package pipeline

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/wirecast/internal/config"
	"github.com/bryanchriswhite/wirecast/internal/decoder"
	"github.com/bryanchriswhite/wirecast/internal/frame"
)

type countingSink struct {
	mu     sync.Mutex
	frames []*image.RGBA
}

func (s *countingSink) HandleFrame(img *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, img)
	return nil
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func receiverConfig() *config.Config {
	return &config.Config{
		Port:          "mem",
		BaudRate:      config.DefaultBaudRate,
		TargetFPS:     15,
		Quality:       60,
		Width:         8,
		Height:        8,
		ReadTimeout:   10 * time.Millisecond,
		MaxFrameBytes: frame.DefaultMaxFrameSize,
	}
}

func validJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestReceiverDeliversFrames(t *testing.T) {
	jpg := validJPEG(t)
	var wire []byte
	for i := 0; i < 3; i++ {
		wire = append(wire, frame.Envelope(jpg)...)
	}
	conn := &memConn{steps: [][]byte{wire}, tailErr: io.EOF}
	sink := &countingSink{}

	r := NewReceiver(receiverConfig(), decoder.NewJPEGDecoder(), sink, conn)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	collectUntilEnded(t, r.Events(), time.Second)
	<-r.Done()

	if got := sink.count(); got != 3 {
		t.Fatalf("sink received %d frames, want 3", got)
	}
	if got := r.FramesReceived(); got != 3 {
		t.Fatalf("FramesReceived = %d, want 3", got)
	}
	if !conn.isClosed() {
		t.Fatal("transport handle not closed after session end")
	}
}

func TestReceiverRecoversFromDecodeFailure(t *testing.T) {
	// A well-framed envelope full of garbage, then a well-formed frame. The
	// garbage must produce one error report and the good frame must still
	// be decoded, because the framing consumed exactly the declared bytes.
	jpg := validJPEG(t)
	garbage := bytes.Repeat([]byte{0x5a}, 512)

	var wire []byte
	wire = append(wire, frame.Envelope(garbage)...)
	wire = append(wire, frame.Envelope(jpg)...)

	conn := &memConn{steps: [][]byte{wire}, tailErr: io.EOF}
	sink := &countingSink{}

	r := NewReceiver(receiverConfig(), decoder.NewJPEGDecoder(), sink, conn)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	events := collectUntilEnded(t, r.Events(), time.Second)
	<-r.Done()

	if got := sink.count(); got != 1 {
		t.Fatalf("sink received %d frames, want 1", got)
	}
	if got := r.DecodeFailures(); got != 1 {
		t.Fatalf("DecodeFailures = %d, want 1", got)
	}

	errEvents := 0
	for _, e := range events {
		if e.Kind == EventError {
			errEvents++
		}
	}
	// One for the garbage payload, one for the final EOF.
	if errEvents != 2 {
		t.Fatalf("error events = %d, want 2", errEvents)
	}
}

func TestReceiverOversizedHeaderIsFatal(t *testing.T) {
	var hdr [frame.HeaderSize]byte
	frame.PutHeader(hdr[:], 1<<30)

	cfg := receiverConfig()
	cfg.MaxFrameBytes = 1 << 20
	conn := &memConn{steps: [][]byte{hdr[:]}}
	sink := &countingSink{}

	r := NewReceiver(cfg, decoder.NewJPEGDecoder(), sink, conn)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	collectUntilEnded(t, r.Events(), time.Second)
	<-r.Done()

	if sink.count() != 0 {
		t.Fatal("sink received a frame from a poisoned stream")
	}
	if r.IsRunning() {
		t.Fatal("receiver still running after integrity error")
	}
}

func TestReceiverStopOnIdleStream(t *testing.T) {
	// Idle stream: only timeouts. Stop must win within roughly one read
	// timeout.
	conn := &memConn{}
	sink := &countingSink{}

	r := NewReceiver(receiverConfig(), decoder.NewJPEGDecoder(), sink, conn)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return on an idle stream")
	}
	if r.IsRunning() {
		t.Fatal("receiver still running after Stop")
	}
	if !conn.isClosed() {
		t.Fatal("transport handle not closed after Stop")
	}
}

func TestReceiverDoubleStartRejected(t *testing.T) {
	conn := &memConn{}
	r := NewReceiver(receiverConfig(), decoder.NewJPEGDecoder(), &countingSink{}, conn)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	if err := r.Start(); err == nil {
		t.Fatal("second Start succeeded")
	}
}
