package camquad

import "sync/atomic"

// surfaceState tracks the host lifecycle.
type surfaceState int

const (
	stateNew surfaceState = iota
	stateCreated
	stateDestroyed
)

func (s surfaceState) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateCreated:
		return "created"
	case stateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Stats counts render-loop activity since the surface was created.
type Stats struct {
	// FramesDrawn is the number of frames that issued the quad draw.
	FramesDrawn uint64
	// FramesUploaded is the number of producer frames latched into the texture.
	FramesUploaded uint64
	// SkippedDraws is the number of frames that could not draw, for example
	// because the shader program is invalid.
	SkippedDraws uint64
}

// shaderPair is a queued shader reload.
type shaderPair struct {
	vertex, fragment string
}

// RenderSurface drives a single full-screen textured quad through the host
// lifecycle: OnSurfaceCreated once, OnSurfaceChanged on every resize,
// OnDrawFrame on every frame tick and OnSurfaceDestroyed on teardown.
//
// All lifecycle methods must be called serially from the goroutine that owns
// the graphics context. Producers interact only with the StreamingTexture
// delivered through TextureReady.
type RenderSurface struct {
	backend Backend
	opts    surfaceOptions
	state   surfaceState

	iface    *GPUInterface
	vertices *VertexBuffer
	indices  *IndexBuffer
	tex      Texture
	stream   *StreamingTexture

	ready      chan *StreamingTexture
	readyFired bool

	width, height int
	reload        atomic.Pointer[shaderPair]
	stats         Stats
}

// NewRenderSurface creates a surface that renders through b.
// No backend calls are made until OnSurfaceCreated.
func NewRenderSurface(b Backend, opts ...SurfaceOption) (*RenderSurface, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	o := defaultSurfaceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.vertexSrc == "" && o.fragmentSrc == "" {
		o.vertexSrc, o.fragmentSrc = DefaultShaders(b.Language())
	}
	attachBackend(b)
	return &RenderSurface{
		backend: b,
		opts:    o,
		tex:     InvalidTexture,
		ready:   make(chan *StreamingTexture, 1),
	}, nil
}

// OnSurfaceCreated allocates every GPU resource: clear state, quad buffers,
// the streaming texture and the shader program. It then binds the texture to
// unit 0, points the sampler at it and fires the texture-ready event.
//
// Only the first call has an effect.
func (rs *RenderSurface) OnSurfaceCreated() {
	if rs.state != stateNew {
		Logger().Warn("camquad: surface already created", "state", rs.state.String())
		return
	}
	rs.state = stateCreated
	b := rs.backend
	log := Logger().With("backend", b.Name())

	c := rs.opts.clear
	b.ClearColor(c[0], c[1], c[2], c[3])
	b.ClearDepth(1)

	var err error
	if rs.vertices, err = NewVertexBuffer(b, QuadVertices); err != nil {
		log.Warn("camquad: vertex buffer", "err", err)
	}
	if rs.indices, err = NewIndexBuffer(b, QuadIndices); err != nil {
		log.Warn("camquad: index buffer", "err", err)
	}

	rs.tex = b.CreateTexture()
	if !rs.tex.Valid() {
		log.Warn("camquad: texture creation failed, surface will stay blank")
		return
	}
	rs.stream = NewStreamingTexture(b, rs.tex)
	if rs.opts.bufW > 0 && rs.opts.bufH > 0 {
		rs.stream.SetDefaultBufferSize(rs.opts.bufW, rs.opts.bufH)
	}

	rs.installInterface(NewGPUInterface(b, rs.opts.vertexSrc, rs.opts.fragmentSrc))
	log.Info("camquad: surface created",
		"texture", int(rs.tex), "program", int(rs.iface.Program()))

	rs.fireReady()
}

// installInterface makes g the active interface and wires it to texture
// unit 0.
func (rs *RenderSurface) installInterface(g *GPUInterface) {
	rs.iface = g
	BindForSampling(rs.backend, 0, rs.tex)
	g.Select()
	g.SetUniform1i(rs.opts.sampler, 0)
}

func (rs *RenderSurface) fireReady() {
	if rs.readyFired {
		return
	}
	rs.readyFired = true
	rs.ready <- rs.stream
	if rs.opts.onReady != nil {
		rs.opts.onReady(rs.stream)
	}
}

// OnSurfaceChanged sets the viewport to the new surface size.
func (rs *RenderSurface) OnSurfaceChanged(width, height int) {
	if rs.state == stateDestroyed {
		return
	}
	width, height = max(width, 0), max(height, 0)
	rs.width, rs.height = width, height
	rs.backend.Viewport(0, 0, width, height)
	Logger().Debug("camquad: surface changed", "width", width, "height", height)
}

// OnDrawFrame renders one frame: clear, latch the newest producer frame if
// any, then draw the quad with depth testing disabled.
func (rs *RenderSurface) OnDrawFrame() {
	if rs.state != stateCreated {
		return
	}
	rs.applyReload()

	b := rs.backend
	b.Clear(true, true)
	if rs.stream != nil && rs.stream.UpdateToLatest() {
		rs.stats.FramesUploaded++
	}

	b.SetDepthTest(false)
	rs.iface.Select()
	if rs.drawable() {
		rs.iface.DrawIndexedBufferedData(rs.vertices, rs.indices, 0, rs.opts.attribute)
		rs.stats.FramesDrawn++
	} else {
		rs.stats.SkippedDraws++
	}
	b.SetDepthTest(true)

	if ff, ok := b.(FrameFinisher); ok {
		if err := ff.FinishFrame(); err != nil {
			Logger().Warn("camquad: finish frame", "err", err)
		}
	}
}

// drawable reports whether both buffers exist and the program can consume
// them.
func (rs *RenderSurface) drawable() bool {
	return rs.vertices != nil && rs.indices != nil &&
		rs.iface.Valid() && rs.iface.AttribLocation(rs.opts.attribute).Valid()
}

// ReloadShaders queues a new shader pair. It is applied at the start of the
// next OnDrawFrame by building a new GPUInterface; the old program is
// released. A pair that fails to compile or link leaves the surface blank
// until a working pair is loaded.
//
// Safe to call from any goroutine.
func (rs *RenderSurface) ReloadShaders(vertex, fragment string) {
	rs.reload.Store(&shaderPair{vertex: vertex, fragment: fragment})
}

func (rs *RenderSurface) applyReload() {
	p := rs.reload.Swap(nil)
	if p == nil || !rs.tex.Valid() {
		return
	}
	next := NewGPUInterface(rs.backend, p.vertex, p.fragment)
	rs.iface.Destroy()
	rs.opts.vertexSrc, rs.opts.fragmentSrc = p.vertex, p.fragment
	rs.installInterface(next)
	if next.Valid() {
		Logger().Info("camquad: shaders reloaded", "program", int(next.Program()))
	}
}

// OnSurfaceDestroyed releases the program, buffers and texture and closes
// the streaming texture. Safe to call more than once.
func (rs *RenderSurface) OnSurfaceDestroyed() {
	if rs.state == stateDestroyed {
		return
	}
	rs.state = stateDestroyed

	rs.iface.Destroy()
	rs.vertices.Release()
	rs.indices.Release()
	if rs.stream != nil {
		rs.stream.Close()
	}
	if rs.tex.Valid() {
		rs.backend.DeleteTexture(rs.tex)
		rs.tex = InvalidTexture
	}
	detachBackend(rs.backend)
	Logger().Info("camquad: surface destroyed", "backend", rs.backend.Name())
}

// TextureReady returns a channel that receives the streaming texture once,
// when OnSurfaceCreated has set it up. It never receives if texture creation
// failed.
func (rs *RenderSurface) TextureReady() <-chan *StreamingTexture { return rs.ready }

// Stream returns the streaming texture, or nil before it exists.
func (rs *RenderSurface) Stream() *StreamingTexture { return rs.stream }

// Interface returns the active GPUInterface, or nil before creation.
func (rs *RenderSurface) Interface() *GPUInterface { return rs.iface }

// Texture returns the texture handle owned by the surface.
func (rs *RenderSurface) Texture() Texture { return rs.tex }

// Size returns the last size passed to OnSurfaceChanged.
func (rs *RenderSurface) Size() (width, height int) { return rs.width, rs.height }

// Stats returns a snapshot of the render counters.
func (rs *RenderSurface) Stats() Stats { return rs.stats }
