package output

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// SaveScreenshot writes the most recent frame to dir as a timestamped PNG
// and returns the file path. It fails if no frame has arrived yet.
func (m *MJPEGOutput) SaveScreenshot(dir string) (string, error) {
	m.frameMu.RLock()
	frame := m.currentFrame
	m.frameMu.RUnlock()

	if frame == nil {
		return "", fmt.Errorf("no frame received yet")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("wirecast-%s.png", time.Now().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, frame); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return path, nil
}
