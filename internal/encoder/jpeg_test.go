package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = byte(x)
			img.Pix[i+1] = byte(y)
			img.Pix[i+2] = byte(x ^ y)
			img.Pix[i+3] = 255
		}
	}
	return img
}

func TestEncodeProducesJPEG(t *testing.T) {
	enc := NewJPEGEncoder(60, 0, 0)

	data, err := enc.Encode(testImage(64, 48))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Fatalf("encoded size = %dx%d, want 64x48", cfg.Width, cfg.Height)
	}
}

func TestEncodeResizesToTarget(t *testing.T) {
	enc := NewJPEGEncoder(60, 32, 24)

	data, err := enc.Encode(testImage(64, 48))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 24 {
		t.Fatalf("encoded size = %dx%d, want 32x24", cfg.Width, cfg.Height)
	}
}

func TestQualityClamped(t *testing.T) {
	enc := NewJPEGEncoder(-5, 0, 0)
	if enc.quality != 1 {
		t.Fatalf("quality = %d, want 1", enc.quality)
	}
	enc.SetQuality(500)
	if enc.quality != 100 {
		t.Fatalf("quality = %d, want 100", enc.quality)
	}
}
