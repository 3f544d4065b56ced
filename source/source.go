// Package source provides synthetic frame producers for a camquad
// StreamingTexture.
//
// Real camera capture is platform specific and lives outside this module.
// The producers here stand in for it: Pattern renders an animated test
// card, Slideshow cycles through image files and Still delivers a single
// image. Every producer writes frames to a camquad.FrameWriter from its own
// goroutine and stops when its context is cancelled.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/gogpu/camquad"
)

// Errors returned by producers.
var (
	// ErrNoImages is returned by Slideshow.Run when no image could be loaded.
	ErrNoImages = errors.New("source: no images")

	// ErrInvalidRate is returned for a non-positive frame rate or interval.
	ErrInvalidRate = errors.New("source: invalid frame rate")
)

// Producer delivers frames to dst until ctx is done or the producer runs
// out of frames. Run returns nil on normal completion and ctx.Err() on
// cancellation.
type Producer interface {
	Run(ctx context.Context, dst camquad.FrameWriter) error
}

// tick calls fn every interval until fn returns false, fn fails or ctx is
// done. The first call happens immediately.
func tick(ctx context.Context, interval time.Duration, fn func(n int) (bool, error)) error {
	if interval <= 0 {
		return ErrInvalidRate
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := fn(n)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// frameSize picks the consumer's preferred size when set, else the
// fallback.
func frameSize(dst camquad.FrameWriter, w, h int) (int, int) {
	if bw, bh := dst.DefaultBufferSize(); bw > 0 && bh > 0 {
		return bw, bh
	}
	return w, h
}
