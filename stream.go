package camquad

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

// Streaming texture errors.
var (
	// ErrStreamClosed is returned by writes after Close.
	ErrStreamClosed = errors.New("camquad: streaming texture closed")

	// ErrFrameSize is returned when pixel data does not match its dimensions.
	ErrFrameSize = errors.New("camquad: frame size mismatch")
)

// FrameWriter is the producer side of a StreamingTexture.
// Implementations must be safe to call from any goroutine.
type FrameWriter interface {
	// Write queues img as the latest frame.
	Write(img image.Image) error

	// WriteRGBA queues tightly packed RGBA8 pixels as the latest frame.
	WriteRGBA(width, height int, pix []byte) error

	// DefaultBufferSize returns the preferred frame size, or zeros when the
	// consumer has no preference.
	DefaultBufferSize() (width, height int)
}

// frame is one producer image waiting to be latched.
type frame struct {
	img  *image.RGBA
	time time.Time
}

// StreamingTexture wraps a backend texture that an external producer fills
// asynchronously.
//
// Producers call Write or WriteRGBA from any goroutine. Only the most recent
// unlatched frame is kept. The render goroutine calls UpdateToLatest once per
// frame to upload it; when nothing new arrived the texture keeps its previous
// contents. The mutex guarding the mailbox is the only synchronization.
//
// The texture handle is owned by the caller that created it and is not
// deleted by Close.
type StreamingTexture struct {
	backend Backend
	tex     Texture

	mu          sync.Mutex
	pending     *frame
	bufW, bufH  int
	closed      bool
	onAvailable func()
	dropped     uint64

	// Render goroutine state.
	latched   uint64
	timestamp time.Time
	w, h      int
}

var _ FrameWriter = (*StreamingTexture)(nil)

// NewStreamingTexture wraps tex, which must have been created on b.
func NewStreamingTexture(b Backend, tex Texture) *StreamingTexture {
	return &StreamingTexture{backend: b, tex: tex}
}

// Texture returns the wrapped texture handle.
func (s *StreamingTexture) Texture() Texture { return s.tex }

// SetDefaultBufferSize sets the frame size producers should deliver.
// Frames written with other dimensions are scaled to it. Zero or negative
// values clear the hint.
func (s *StreamingTexture) SetDefaultBufferSize(width, height int) {
	if width <= 0 || height <= 0 {
		width, height = 0, 0
	}
	s.mu.Lock()
	s.bufW, s.bufH = width, height
	s.mu.Unlock()
}

// DefaultBufferSize returns the size set by SetDefaultBufferSize.
func (s *StreamingTexture) DefaultBufferSize() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufW, s.bufH
}

// SetOnFrameAvailable registers fn to be called, on the producer's
// goroutine, after each successful write. Pass nil to remove it.
func (s *StreamingTexture) SetOnFrameAvailable(fn func()) {
	s.mu.Lock()
	s.onAvailable = fn
	s.mu.Unlock()
}

// Write queues img as the latest frame, replacing any frame not yet latched.
func (s *StreamingTexture) Write(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrFrameSize)
	}
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("%w: empty bounds %v", ErrFrameSize, b)
	}

	w, h := s.DefaultBufferSize()
	var dst *image.RGBA
	if w > 0 && (b.Dx() != w || b.Dy() != h) {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}
	return s.push(dst)
}

// WriteRGBA queues tightly packed RGBA8 pixels as the latest frame.
// pix is copied.
func (s *StreamingTexture) WriteRGBA(width, height int, pix []byte) error {
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrFrameSize, width, height, len(pix))
	}
	img := &image.RGBA{
		Pix:    append([]byte(nil), pix...),
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	if w, h := s.DefaultBufferSize(); w > 0 && (w != width || h != height) {
		return s.Write(img)
	}
	return s.push(img)
}

func (s *StreamingTexture) push(img *image.RGBA) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	if s.pending != nil {
		s.dropped++
	}
	s.pending = &frame{img: img, time: time.Now()}
	fn := s.onAvailable
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// UpdateToLatest uploads the most recent unlatched frame to the texture and
// reports whether one was uploaded. It never blocks on the producer.
// Must be called on the render goroutine.
func (s *StreamingTexture) UpdateToLatest() bool {
	s.mu.Lock()
	f := s.pending
	s.pending = nil
	closed := s.closed
	s.mu.Unlock()

	if f == nil || closed {
		return false
	}
	w, h := f.img.Rect.Dx(), f.img.Rect.Dy()
	s.backend.TexImage2D(s.tex, w, h, f.img.Pix)
	s.latched++
	s.timestamp = f.time
	s.w, s.h = w, h
	return true
}

// FrameNumber returns how many frames have been latched by UpdateToLatest.
func (s *StreamingTexture) FrameNumber() uint64 { return s.latched }

// Timestamp returns the write time of the latched frame, or the zero time
// before the first latch.
func (s *StreamingTexture) Timestamp() time.Time { return s.timestamp }

// Size returns the dimensions of the latched frame.
func (s *StreamingTexture) Size() (width, height int) { return s.w, s.h }

// Dropped returns how many written frames were replaced before being
// latched.
func (s *StreamingTexture) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops accepting frames and discards any pending one.
// Safe to call more than once.
func (s *StreamingTexture) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.onAvailable = nil
	s.mu.Unlock()
}

// Closed reports whether Close has been called.
func (s *StreamingTexture) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
