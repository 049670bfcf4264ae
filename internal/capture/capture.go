package capture

import "image"

// Capturer defines the interface for screen capture backends
type Capturer interface {
	// Start initializes the capturer and any required resources
	Start() error

	// Stop releases resources
	Stop() error

	// CaptureScreen grabs the current content of the screen as RGBA
	CaptureScreen() (*image.RGBA, error)

	// Name returns a human-readable name for this capturer
	Name() string
}
