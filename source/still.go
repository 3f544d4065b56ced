package source

import (
	"context"
	"image"

	"github.com/gogpu/camquad"
)

// Still writes a single image once and returns. Image takes precedence
// over Path.
type Still struct {
	Path  string
	Image image.Image
}

var _ Producer = (*Still)(nil)

// Run implements Producer.
func (s *Still) Run(ctx context.Context, dst camquad.FrameWriter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img := s.Image
	if img == nil {
		if s.Path == "" {
			return ErrNoImages
		}
		var err error
		if img, err = LoadImage(s.Path); err != nil {
			return err
		}
	}
	return dst.Write(img)
}
