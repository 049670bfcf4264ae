package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/wirecast/internal/logger"
)

// X11Capturer grabs the root window contents over X11/XWayland.
type X11Capturer struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
	mu     sync.Mutex
}

// NewX11Capturer connects to the X server and targets its default screen.
func NewX11Capturer() (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Capturer{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}, nil
}

// Start logs the capture geometry; the X connection is already live.
func (c *X11Capturer) Start() error {
	logger.WithComponent("x11-capture").Info().
		Uint16("width", c.screen.WidthInPixels).
		Uint16("height", c.screen.HeightInPixels).
		Msg("screen capture ready")
	return nil
}

// Stop closes the X11 connection
func (c *X11Capturer) Stop() error {
	c.conn.Close()
	return nil
}

// Name returns the capturer name
func (c *X11Capturer) Name() string {
	return "X11"
}

// CaptureScreen grabs the full root window.
func (c *X11Capturer) CaptureScreen() (*image.RGBA, error) {
	return c.captureRegion(0, 0, int(c.screen.WidthInPixels), int(c.screen.HeightInPixels))
}

func (c *X11Capturer) captureRegion(x, y, width, height int) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(c.root),
		int16(x), int16(y),
		uint16(width), uint16(height),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return c.convertImageData(reply.Data, width, height), nil
}

// convertImageData converts X11 ZPixmap data (BGRA) to RGBA
func (c *X11Capturer) convertImageData(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	depth := int(c.screen.RootDepth)

	if depth == 24 || depth == 32 {
		n := width * height * 4
		if n > len(data) {
			n = len(data) &^ 3
		}
		for i := 0; i+3 < n; i += 4 {
			img.Pix[i] = data[i+2]
			img.Pix[i+1] = data[i+1]
			img.Pix[i+2] = data[i]
			img.Pix[i+3] = 255
		}
	}
	return img
}
