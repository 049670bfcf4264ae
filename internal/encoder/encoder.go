package encoder

import "image"

// Encoder compresses a captured image into frame payload bytes.
type Encoder interface {
	Encode(img *image.RGBA) ([]byte, error)
	SetQuality(quality int)
}
