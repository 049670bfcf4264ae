package encoder

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// JPEGEncoder encodes frames as JPEG, scaling them to a fixed output
// resolution first when one is configured.
type JPEGEncoder struct {
	quality int
	width   int
	height  int
}

// NewJPEGEncoder creates a JPEG encoder with the given quality (1-100).
// width/height set the output resolution; zero means encode at the captured
// size.
func NewJPEGEncoder(quality, width, height int) *JPEGEncoder {
	e := &JPEGEncoder{width: width, height: height}
	e.SetQuality(quality)
	return e
}

// SetQuality clamps and applies a new JPEG quality.
func (e *JPEGEncoder) SetQuality(quality int) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	e.quality = quality
}

func (e *JPEGEncoder) Encode(img *image.RGBA) ([]byte, error) {
	img = e.resize(img)

	var buf bytes.Buffer
	buf.Grow(256 * 1024)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *JPEGEncoder) resize(img *image.RGBA) *image.RGBA {
	if e.width <= 0 || e.height <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == e.width && b.Dy() == e.height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
