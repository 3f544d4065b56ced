package source

import (
	"context"
	"image"
	"time"

	"github.com/gogpu/camquad"
)

// DefaultInterval is the Slideshow frame interval when none is set.
const DefaultInterval = 2 * time.Second

// Slideshow writes each image in Paths in turn, one per Interval. Images
// are decoded once, on first use; files that fail to decode are logged and
// skipped.
type Slideshow struct {
	Paths    []string
	Interval time.Duration
	// Loop restarts from the first image after the last one.
	Loop bool
}

var _ Producer = (*Slideshow)(nil)

// Run implements Producer. It returns ErrNoImages when none of the paths
// could be decoded.
func (s *Slideshow) Run(ctx context.Context, dst camquad.FrameWriter) error {
	interval := s.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	if len(s.Paths) == 0 {
		return ErrNoImages
	}

	cache := make([]image.Image, len(s.Paths))
	failed := make([]bool, len(s.Paths))
	shown, i := 0, 0
	load := func(i int) image.Image {
		if cache[i] == nil && !failed[i] {
			img, err := LoadImage(s.Paths[i])
			if err != nil {
				camquad.Logger().Warn("source: skipping image", "path", s.Paths[i], "err", err)
				failed[i] = true
				return nil
			}
			cache[i] = img
		}
		return cache[i]
	}

	return tick(ctx, interval, func(int) (bool, error) {
		for range len(s.Paths) {
			if img := load(i); img != nil {
				if err := dst.Write(img); err != nil {
					return false, err
				}
				shown++
				return s.next(&i), nil
			}
			if !s.next(&i) {
				break
			}
		}
		if shown == 0 {
			return false, ErrNoImages
		}
		return false, nil
	})
}

// next advances i, wrapping when Loop is set. It reports false at the end
// of a non-looping show.
func (s *Slideshow) next(i *int) bool {
	*i++
	if *i < len(s.Paths) {
		return true
	}
	if !s.Loop {
		return false
	}
	*i = 0
	return true
}
