package camquad_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/internal/fakegpu"
)

func newStream(t *testing.T) (*fakegpu.Backend, *camquad.StreamingTexture) {
	t.Helper()
	b := fakegpu.New()
	tex := b.CreateTexture()
	return b, camquad.NewStreamingTexture(b, tex)
}

func solidRGBA(w, h int, c byte) []byte {
	return bytes.Repeat([]byte{c, c, c, 255}, w*h)
}

func TestStreamingTextureUpdateToLatestIdempotent(t *testing.T) {
	b, s := newStream(t)

	if s.UpdateToLatest() {
		t.Fatal("UpdateToLatest() = true before any write")
	}
	if err := s.WriteRGBA(2, 2, solidRGBA(2, 2, 10)); err != nil {
		t.Fatal(err)
	}
	if !s.UpdateToLatest() {
		t.Fatal("UpdateToLatest() = false after write")
	}
	first, _ := b.Texture(s.Texture())

	for i := range 3 {
		if s.UpdateToLatest() {
			t.Fatalf("UpdateToLatest() #%d = true without a new frame", i)
		}
	}
	again, _ := b.Texture(s.Texture())
	if again.Uploads != 1 || !bytes.Equal(again.Pix, first.Pix) {
		t.Errorf("texture changed without a new frame: uploads=%d", again.Uploads)
	}
	if s.FrameNumber() != 1 {
		t.Errorf("FrameNumber() = %d, want 1", s.FrameNumber())
	}
}

func TestStreamingTextureLatestWins(t *testing.T) {
	b, s := newStream(t)
	for i := range 5 {
		if err := s.WriteRGBA(1, 1, solidRGBA(1, 1, byte(i))); err != nil {
			t.Fatal(err)
		}
	}
	if !s.UpdateToLatest() {
		t.Fatal("UpdateToLatest() = false")
	}
	ts, _ := b.Texture(s.Texture())
	if ts.Pix[0] != 4 {
		t.Errorf("latched pixel = %d, want 4 (last write)", ts.Pix[0])
	}
	if s.Dropped() != 4 {
		t.Errorf("Dropped() = %d, want 4", s.Dropped())
	}
	if ts.Uploads != 1 {
		t.Errorf("uploads = %d, want 1", ts.Uploads)
	}
}

func TestStreamingTextureWriteImage(t *testing.T) {
	b, s := newStream(t)
	img := image.NewNRGBA(image.Rect(10, 10, 14, 13))
	for y := 10; y < 13; y++ {
		for x := 10; x < 14; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	if err := s.Write(img); err != nil {
		t.Fatal(err)
	}
	s.UpdateToLatest()

	if w, h := s.Size(); w != 4 || h != 3 {
		t.Errorf("Size() = %dx%d, want 4x3", w, h)
	}
	ts, _ := b.Texture(s.Texture())
	if len(ts.Pix) != 4*3*4 || ts.Pix[0] != 200 || ts.Pix[3] != 255 {
		t.Errorf("uploaded pixels = %d bytes, first=%v", len(ts.Pix), ts.Pix[:4])
	}
	if s.Timestamp().IsZero() {
		t.Error("Timestamp() is zero after latch")
	}
}

func TestStreamingTextureDefaultBufferSize(t *testing.T) {
	_, s := newStream(t)
	s.SetDefaultBufferSize(8, 6)
	if w, h := s.DefaultBufferSize(); w != 8 || h != 6 {
		t.Fatalf("DefaultBufferSize() = %dx%d", w, h)
	}

	if err := s.WriteRGBA(4, 3, solidRGBA(4, 3, 90)); err != nil {
		t.Fatal(err)
	}
	s.UpdateToLatest()
	if w, h := s.Size(); w != 8 || h != 6 {
		t.Errorf("scaled Size() = %dx%d, want 8x6", w, h)
	}

	s.SetDefaultBufferSize(0, 6)
	if w, h := s.DefaultBufferSize(); w != 0 || h != 0 {
		t.Errorf("cleared DefaultBufferSize() = %dx%d, want 0x0", w, h)
	}
}

func TestStreamingTextureRejectsBadFrames(t *testing.T) {
	_, s := newStream(t)
	tests := []struct {
		name string
		err  error
	}{
		{"short pixels", s.WriteRGBA(2, 2, make([]byte, 15))},
		{"zero width", s.WriteRGBA(0, 2, nil)},
		{"nil image", s.Write(nil)},
		{"empty image", s.Write(image.NewRGBA(image.Rectangle{}))},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, camquad.ErrFrameSize) {
			t.Errorf("%s: error = %v, want ErrFrameSize", tt.name, tt.err)
		}
	}
	if s.UpdateToLatest() {
		t.Error("rejected frames were latched")
	}
}

func TestStreamingTextureClose(t *testing.T) {
	b, s := newStream(t)
	if err := s.WriteRGBA(1, 1, solidRGBA(1, 1, 1)); err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()

	if !s.Closed() {
		t.Error("Closed() = false")
	}
	if err := s.WriteRGBA(1, 1, solidRGBA(1, 1, 1)); !errors.Is(err, camquad.ErrStreamClosed) {
		t.Errorf("write after Close = %v, want ErrStreamClosed", err)
	}
	if s.UpdateToLatest() {
		t.Error("pending frame latched after Close")
	}
	if n := b.CallCount("TexImage2D"); n != 0 {
		t.Errorf("TexImage2D calls = %d, want 0", n)
	}
}

func TestStreamingTextureConcurrentProducers(t *testing.T) {
	_, s := newStream(t)
	var available sync.WaitGroup
	var mu sync.Mutex
	notified := 0
	s.SetOnFrameAvailable(func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	const producers, frames = 4, 50
	for p := range producers {
		available.Add(1)
		go func() {
			defer available.Done()
			for range frames {
				_ = s.WriteRGBA(1, 1, solidRGBA(1, 1, byte(p)))
			}
		}()
	}

	latched := 0
	for range 100 {
		if s.UpdateToLatest() {
			latched++
		}
	}
	available.Wait()
	if s.UpdateToLatest() {
		latched++
	}

	if latched == 0 {
		t.Error("no frame latched")
	}
	if uint64(latched) != s.FrameNumber() {
		t.Errorf("FrameNumber() = %d, latched %d", s.FrameNumber(), latched)
	}
	if notified != producers*frames {
		t.Errorf("frame-available callbacks = %d, want %d", notified, producers*frames)
	}
	if got := uint64(latched) + s.Dropped(); got != producers*frames {
		t.Errorf("latched+dropped = %d, want %d", got, producers*frames)
	}
}
