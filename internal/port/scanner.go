package port

import (
	"context"
	"image"
)

type FrameSource interface {
	// Next blocks until the camera delivers the next frame
	Next(ctx context.Context) (image.Image, error)

	// Close releases the underlying stream
	Close() error
}

type Decoder interface {
	// Decode returns candidate barcode values found in the frame, possibly none
	Decode(img image.Image) ([]string, error)
}

type Chime interface {
	// Play emits the detection cue
	Play(ctx context.Context) error
}
