package output

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleFrameRequiresRunning(t *testing.T) {
	m := NewMJPEGOutput()

	if err := m.HandleFrame(image.NewRGBA(image.Rect(0, 0, 4, 4))); err == nil {
		t.Fatal("HandleFrame accepted a frame before Start")
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	if err := m.HandleFrame(image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	frames, _, clients := m.Stats()
	if frames != 1 {
		t.Fatalf("frames = %d, want 1", frames)
	}
	if clients != 0 {
		t.Fatalf("clients = %d, want 0", clients)
	}
}

func TestDoubleStartRejected(t *testing.T) {
	m := NewMJPEGOutput()
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()
	if err := m.Start(); err == nil {
		t.Fatal("second Start succeeded")
	}
}

func TestSaveScreenshot(t *testing.T) {
	m := NewMJPEGOutput()
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	dir := t.TempDir()
	if _, err := m.SaveScreenshot(dir); err == nil {
		t.Fatal("SaveScreenshot succeeded with no frame")
	}

	if err := m.HandleFrame(image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	path, err := m.SaveScreenshot(dir)
	if err != nil {
		t.Fatalf("SaveScreenshot: %v", err)
	}
	if filepath.Dir(path) != dir || !strings.HasSuffix(path, ".png") {
		t.Fatalf("unexpected screenshot path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("screenshot not written: %v", err)
	}
}
