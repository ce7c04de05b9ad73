package scanner

import (
	"context"
	"io"
	"sync"
)

// BellChime sounds the detection cue by writing the terminal bell character.
// It is deliberately tiny: the cue is best effort and the caller discards
// everything but the error.
type BellChime struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBellChime(w io.Writer) *BellChime {
	return &BellChime{w: w}
}

func (b *BellChime) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.w.Write([]byte{0x07})
	return err
}
