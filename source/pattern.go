package source

import (
	"context"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/colornames"

	"github.com/gogpu/camquad"
)

// Default test card geometry and rate.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)

// bars are the seven colour bars of the test card, left to right.
var bars = []color.RGBA{
	colornames.White,
	colornames.Yellow,
	colornames.Cyan,
	colornames.Lime,
	colornames.Magenta,
	colornames.Red,
	colornames.Blue,
}

// Pattern renders colour bars with a sweeping marker so every frame
// differs from the last. It sizes frames to the consumer's buffer size hint
// when one is set.
type Pattern struct {
	Width, Height int
	FPS           int
	// Frames stops the producer after that many frames. Zero runs until
	// the context is cancelled.
	Frames int
}

var _ Producer = (*Pattern)(nil)

// Run implements Producer.
func (p *Pattern) Run(ctx context.Context, dst camquad.FrameWriter) error {
	fps := p.FPS
	if fps == 0 {
		fps = DefaultFPS
	}
	if fps < 0 {
		return ErrInvalidRate
	}
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}

	var pix []byte
	return tick(ctx, time.Second/time.Duration(fps), func(n int) (bool, error) {
		fw, fh := frameSize(dst, w, h)
		if len(pix) != fw*fh*4 {
			pix = make([]byte, fw*fh*4)
		}
		PatternFrame(pix, fw, fh, n)
		// The mailbox keeps its own copy, so pix can be reused.
		if err := dst.WriteRGBA(fw, fh, pix); err != nil {
			return false, err
		}
		return p.Frames == 0 || n+1 < p.Frames, nil
	})
}

// PatternFrame fills pix, a w x h RGBA buffer, with test card frame n:
// colour bars over the top two thirds, a grey ramp below and a black
// marker column that advances one step per frame.
func PatternFrame(pix []byte, w, h, n int) {
	barsH := h * 2 / 3
	marker := (n * 4) % max(w, 1)
	for y := range h {
		row := pix[y*w*4 : (y+1)*w*4]
		for x := range w {
			var c color.RGBA
			switch {
			case x >= marker && x < marker+4:
				c = color.RGBA{A: 255}
			case y < barsH:
				c = bars[x*len(bars)/w]
			default:
				v := uint8(x * 255 / max(w-1, 1))
				c = color.RGBA{R: v, G: v, B: v, A: 255}
			}
			row[x*4+0] = c.R
			row[x*4+1] = c.G
			row[x*4+2] = c.B
			row[x*4+3] = c.A
		}
	}
}

// PatternImage returns test card frame n as a new w x h image.
func PatternImage(w, h, n int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	PatternFrame(img.Pix, w, h, n)
	return img
}
