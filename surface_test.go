package camquad_test

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/internal/fakegpu"
)

func newSurface(t *testing.T, b camquad.Backend, opts ...camquad.SurfaceOption) *camquad.RenderSurface {
	t.Helper()
	rs, err := camquad.NewRenderSurface(b, opts...)
	if err != nil {
		t.Fatalf("NewRenderSurface() = %v", err)
	}
	t.Cleanup(rs.OnSurfaceDestroyed)
	return rs
}

func TestRenderSurfaceEndToEnd(t *testing.T) {
	b := fakegpu.New()
	var callbackStream *camquad.StreamingTexture
	rs := newSurface(t, b, camquad.WithTextureReadyFunc(func(s *camquad.StreamingTexture) {
		callbackStream = s
	}))

	if n := len(b.Calls()); n != 0 {
		t.Fatalf("NewRenderSurface made %d backend calls", n)
	}

	rs.OnSurfaceCreated()
	rs.OnSurfaceChanged(640, 480)

	var stream *camquad.StreamingTexture
	select {
	case stream = <-rs.TextureReady():
	default:
		t.Fatal("texture-ready event did not fire")
	}
	if stream == nil || !stream.Texture().Valid() {
		t.Fatal("texture-ready delivered no texture")
	}
	if callbackStream != stream {
		t.Error("WithTextureReadyFunc callback did not receive the same stream")
	}
	if !rs.Interface().Valid() {
		t.Fatalf("interface invalid: %v", rs.Interface().Err())
	}

	// Producer attaches and writes one frame.
	if err := stream.WriteRGBA(2, 2, solidRGBA(2, 2, 77)); err != nil {
		t.Fatal(err)
	}
	b.Reset()
	rs.OnDrawFrame()

	draws := b.Draws()
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(draws))
	}
	d := draws[0]
	if !d.Indexed || d.Count != 6 {
		t.Errorf("draw = %+v, want indexed with 6 indices", d)
	}
	if d.Program != rs.Interface().Program() {
		t.Errorf("draw program = %v, want %v", d.Program, rs.Interface().Program())
	}
	if d.Textures[0] != stream.Texture() {
		t.Errorf("unit 0 texture = %v, want %v", d.Textures[0], stream.Texture())
	}
	sampler := b.Uniforms[camquad.DefaultSampler]
	if unit, ok := d.Uniforms[sampler]; !ok || unit != 0 {
		t.Errorf("sampler uniform = %d (set=%v), want unit 0", unit, ok)
	}
	if d.DepthTest {
		t.Error("depth test enabled during quad draw")
	}
	if !b.DepthTest() {
		t.Error("depth test not re-enabled after draw")
	}
	if ts, _ := b.Texture(stream.Texture()); ts.Uploads != 1 || ts.Pix[0] != 77 {
		t.Errorf("texture uploads = %d, first byte %d", ts.Uploads, ts.Pix[0])
	}

	st := rs.Stats()
	if st.FramesDrawn != 1 || st.FramesUploaded != 1 || st.SkippedDraws != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestRenderSurfaceCreatedOrder(t *testing.T) {
	b := fakegpu.New()
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()

	methods := b.Methods()
	order := []string{"ClearColor", "ClearDepth", "CreateBuffer", "CreateTexture", "LinkProgram", "ActiveTexture", "BindTexture", "UseProgram", "Uniform1i"}
	last := -1
	for _, m := range order {
		i := slices.Index(methods[last+1:], m)
		if i < 0 {
			t.Fatalf("%s missing or out of order in %v", m, methods)
		}
		last += i + 1
	}

	color, depth := b.ClearState()
	if color != [4]float32{0, 0, 0.3, 0} || depth != 1 {
		t.Errorf("clear state = %v/%v, want (0,0,0.3,0)/1", color, depth)
	}
}

func TestRenderSurfaceFrameOrder(t *testing.T) {
	b := fakegpu.NewDeferred()
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()
	rs.OnDrawFrame() // resolves and caches the attribute location
	b.Reset()

	rs.OnDrawFrame()
	want := []string{"Clear", "SetDepthTest", "UseProgram", "VertexAttribPointer", "DrawElements", "SetDepthTest", "FinishFrame"}
	if got := b.Methods(); !slices.Equal(got, want) {
		t.Errorf("frame calls = %v, want %v", got, want)
	}
	if b.Finished != 2 {
		t.Errorf("FinishFrame calls = %d, want 2", b.Finished)
	}
}

func TestRenderSurfaceFrameWithoutNewImage(t *testing.T) {
	b := fakegpu.New()
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()
	stream := <-rs.TextureReady()
	if err := stream.WriteRGBA(1, 1, solidRGBA(1, 1, 5)); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		rs.OnDrawFrame()
	}
	ts, _ := b.Texture(stream.Texture())
	if ts.Uploads != 1 || ts.Pix[0] != 5 {
		t.Errorf("uploads = %d, pixel = %d; want 1 upload of the single frame", ts.Uploads, ts.Pix[0])
	}
	if st := rs.Stats(); st.FramesDrawn != 3 || st.FramesUploaded != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestRenderSurfaceInvalidShadersDrawNothing(t *testing.T) {
	b := fakegpu.New()
	rs := newSurface(t, b, camquad.WithShaders(badSource, testFragment))
	rs.OnSurfaceCreated()

	if rs.Interface().Valid() {
		t.Fatal("interface valid with rejected vertex shader")
	}
	select {
	case <-rs.TextureReady():
	default:
		t.Error("texture-ready should still fire so the producer can run")
	}

	rs.OnDrawFrame()
	rs.OnDrawFrame()
	if n := len(b.Draws()); n != 0 {
		t.Errorf("draws = %d, want 0", n)
	}
	if st := rs.Stats(); st.SkippedDraws != 2 {
		t.Errorf("SkippedDraws = %d, want 2", st.SkippedDraws)
	}
}

func TestRenderSurfaceTextureFailure(t *testing.T) {
	b := fakegpu.New()
	b.FailTextures = true
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()

	select {
	case <-rs.TextureReady():
		t.Error("texture-ready fired without a texture")
	default:
	}
	if b.CallCount("CreateProgram") != 0 {
		t.Error("program created despite texture failure")
	}
	rs.OnDrawFrame()
	if n := len(b.Draws()); n != 0 {
		t.Errorf("draws = %d, want 0", n)
	}
}

func TestRenderSurfaceCreatedTwice(t *testing.T) {
	b := fakegpu.New()
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()
	b.Reset()
	rs.OnSurfaceCreated()

	if n := len(b.Calls()); n != 0 {
		t.Errorf("second OnSurfaceCreated made %d calls", n)
	}
	<-rs.TextureReady()
	select {
	case <-rs.TextureReady():
		t.Error("texture-ready fired twice")
	default:
	}
}

func TestRenderSurfaceChanged(t *testing.T) {
	b := fakegpu.New()
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()

	rs.OnSurfaceChanged(800, 600)
	rs.OnSurfaceChanged(1024, 768)
	if got := b.ViewportRect(); got != [4]int{0, 0, 1024, 768} {
		t.Errorf("viewport = %v", got)
	}
	if w, h := rs.Size(); w != 1024 || h != 768 {
		t.Errorf("Size() = %dx%d", w, h)
	}
}

func TestRenderSurfaceDestroyed(t *testing.T) {
	b := fakegpu.New()
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()
	stream := <-rs.TextureReady()

	rs.OnSurfaceDestroyed()
	rs.OnSurfaceDestroyed()

	shaders, programs, textures, buffers := b.Live()
	if shaders+programs+textures+buffers != 0 {
		t.Errorf("live objects after destroy: shaders=%d programs=%d textures=%d buffers=%d",
			shaders, programs, textures, buffers)
	}
	if !stream.Closed() {
		t.Error("stream not closed")
	}
	if err := stream.WriteRGBA(1, 1, solidRGBA(1, 1, 0)); !errors.Is(err, camquad.ErrStreamClosed) {
		t.Errorf("write after destroy = %v", err)
	}

	b.Reset()
	rs.OnDrawFrame()
	rs.OnSurfaceChanged(10, 10)
	if n := len(b.Calls()); n != 0 {
		t.Errorf("calls after destroy = %d, want 0", n)
	}
}

func TestRenderSurfaceReloadShaders(t *testing.T) {
	b := fakegpu.New()
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()
	first := rs.Interface().Program()

	rs.ReloadShaders(testVertex, testFragment)
	rs.OnDrawFrame()
	second := rs.Interface().Program()
	if second == first || !second.Valid() {
		t.Fatalf("program after reload = %v (before %v)", second, first)
	}
	if _, programs, _, _ := b.Live(); programs != 1 {
		t.Errorf("live programs = %d, want 1", programs)
	}
	if v, ok := b.Uniform(second, b.Uniforms[camquad.DefaultSampler]); !ok || v != 0 {
		t.Error("sampler uniform not set on reloaded program")
	}

	rs.ReloadShaders(badSource, testFragment)
	rs.OnDrawFrame()
	if rs.Interface().Valid() {
		t.Error("broken reload left a valid interface")
	}
	if !errors.Is(rs.Interface().Err(), camquad.ErrCompile) {
		t.Errorf("Err() = %v, want ErrCompile", rs.Interface().Err())
	}

	rs.ReloadShaders(testVertex, testFragment)
	rs.OnDrawFrame()
	if !rs.Interface().Valid() {
		t.Error("fixed reload did not recover")
	}
}

func TestRenderSurfaceFinishFrameError(t *testing.T) {
	var buf bytes.Buffer
	orig := camquad.Logger()
	t.Cleanup(func() { camquad.SetLogger(orig) })
	camquad.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	b := fakegpu.NewDeferred()
	b.FinishErr = errors.New("device lost")
	rs := newSurface(t, b)
	rs.OnSurfaceCreated()
	rs.OnDrawFrame()

	if !strings.Contains(buf.String(), "device lost") {
		t.Errorf("finish error not logged: %s", buf.String())
	}
	if b.LoggerInUse() == nil {
		t.Error("backend did not receive a logger")
	}
}

func TestRenderSurfaceOptions(t *testing.T) {
	b := fakegpu.New()
	b.Attribs = map[string]camquad.Attrib{"aPosition": 2}
	b.Uniforms = map[string]camquad.Uniform{"uFrame": 5}

	rs := newSurface(t, b,
		camquad.WithAttribute("aPosition"),
		camquad.WithSampler("uFrame"),
		camquad.WithClearColor(1, 0, 0, 1),
		camquad.WithDefaultBufferSize(320, 240),
	)
	rs.OnSurfaceCreated()
	rs.OnDrawFrame()

	draws := b.Draws()
	if len(draws) != 1 || draws[0].Attrib != 2 {
		t.Fatalf("draws = %+v, want one draw on attribute 2", draws)
	}
	if v, ok := draws[0].Uniforms[5]; !ok || v != 0 {
		t.Errorf("uFrame = %d (set=%v), want 0", v, ok)
	}
	if c, _ := b.ClearState(); c != [4]float32{1, 0, 0, 1} {
		t.Errorf("clear color = %v", c)
	}
	if w, h := rs.Stream().DefaultBufferSize(); w != 320 || h != 240 {
		t.Errorf("DefaultBufferSize() = %dx%d", w, h)
	}
}

func TestNewRenderSurfaceNilBackend(t *testing.T) {
	if _, err := camquad.NewRenderSurface(nil); !errors.Is(err, camquad.ErrNilBackend) {
		t.Errorf("NewRenderSurface(nil) = %v, want ErrNilBackend", err)
	}
}
