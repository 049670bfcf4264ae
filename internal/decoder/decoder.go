package decoder

import "image"

// Decoder turns frame payload bytes back into an image.
type Decoder interface {
	Decode(data []byte) (*image.RGBA, error)
}
