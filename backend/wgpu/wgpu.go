package wgpu

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/backend"
)

// Name is the registry name of this backend.
const Name = backend.BackendWGPU

type shaderObject struct {
	stage    camquad.Stage
	source   string
	compiled bool
	log      string
	module   hal.ShaderModule
	refl     *reflection

	refs    int
	deleted bool
}

type programObject struct {
	shaders []*shaderObject
	linked  bool
	log     string

	vertex   *shaderObject
	fragment *shaderObject
	attribs  map[string]uint32
	bindings map[string]binding
	samplers map[uint32]uint32 // texture slot -> sampler slot
	units    map[uint32]int    // texture slot -> texture unit

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  map[string]hal.RenderPipeline
}

type bufferObject struct {
	buf  hal.Buffer
	kind camquad.BufferKind
}

type textureObject struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height int
}

type vertexSource struct {
	buf          camquad.Buffer
	size, stride int
}

// Backend records camquad draw calls into wgpu render passes.
//
// Resources are owned by the backend and addressed by integer handles.
// Draws between Clear and FinishFrame share one render pass; FinishFrame
// submits it and waits for the GPU. A Backend must only be used from the
// render goroutine.
type Backend struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	logger atomic.Pointer[slog.Logger]

	// owned is non-nil when the backend opened its own device.
	owned *ownedDevice

	nextHandle int
	shaders    map[camquad.Shader]*shaderObject
	programs   map[camquad.Program]*programObject
	buffers    map[camquad.Buffer]*bufferObject
	textures   map[camquad.Texture]*textureObject
	sampler    hal.Sampler

	current    camquad.Program
	activeUnit int
	units      map[int]camquad.Texture
	vertex     map[camquad.Attrib]vertexSource

	clearColor gputypes.Color
	clearDepth float32
	depthTest  bool
	viewport   [4]int

	target    renderTarget
	offscreen *offscreenTarget
	frame     frameState
}

var (
	_ camquad.Backend       = (*Backend)(nil)
	_ camquad.FrameFinisher = (*Backend)(nil)
)

// New returns a backend that renders with device and queue into views of
// the given format.
func New(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) *Backend {
	b := &Backend{
		device:     device,
		queue:      queue,
		format:     format,
		shaders:    make(map[camquad.Shader]*shaderObject),
		programs:   make(map[camquad.Program]*programObject),
		buffers:    make(map[camquad.Buffer]*bufferObject),
		textures:   make(map[camquad.Texture]*textureObject),
		current:    camquad.InvalidProgram,
		units:      make(map[int]camquad.Texture),
		vertex:     make(map[camquad.Attrib]vertexSource),
		clearDepth: 1,
	}
	b.logger.Store(camquad.Logger())
	return b
}

// SetLogger sets the logger for backend diagnostics.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = camquad.Logger()
	}
	b.logger.Store(l)
}

func (b *Backend) log() *slog.Logger { return b.logger.Load() }

// Device returns the HAL device the backend renders with.
func (b *Backend) Device() hal.Device { return b.device }

// Format returns the color target format pipelines are built for.
func (b *Backend) Format() gputypes.TextureFormat { return b.format }

// Name returns "wgpu".
func (b *Backend) Name() string { return Name }

// Language returns camquad.LanguageWGSL.
func (b *Backend) Language() camquad.ShaderLanguage { return camquad.LanguageWGSL }

func (b *Backend) handle() int {
	h := b.nextHandle
	b.nextHandle++
	return h
}

// Release destroys every resource the backend still owns and, for
// backends created by NewOffscreen, the device itself.
func (b *Backend) Release() {
	b.discardFrame()
	for p := range b.programs {
		b.DeleteProgram(p)
	}
	for s := range b.shaders {
		b.DeleteShader(s)
	}
	for buf := range b.buffers {
		b.DeleteBuffer(buf)
	}
	for t := range b.textures {
		b.DeleteTexture(t)
	}
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	b.destroyOffscreen()
	if b.owned != nil {
		b.owned.destroy()
		b.owned = nil
	}
}

// Shaders.

func (b *Backend) CreateShader(stage camquad.Stage) camquad.Shader {
	if stage != camquad.StageVertex && stage != camquad.StageFragment {
		return camquad.InvalidShader
	}
	s := camquad.Shader(b.handle())
	b.shaders[s] = &shaderObject{stage: stage}
	return s
}

func (b *Backend) ShaderSource(s camquad.Shader, src string) {
	if obj := b.shaders[s]; obj != nil {
		obj.source = src
	}
}

// CompileShader compiles the WGSL source with naga and creates a shader
// module from the SPIR-V. Syntax, validation and interface errors all end
// up in the info log.
func (b *Backend) CompileShader(s camquad.Shader) {
	obj := b.shaders[s]
	if obj == nil {
		return
	}
	obj.compiled = false
	obj.log = ""
	b.destroyModule(obj)

	code, err := compileWGSL(obj.source)
	if err != nil {
		obj.log = err.Error()
		return
	}
	refl, err := reflectStage(obj.stage, obj.source)
	if err != nil {
		obj.log = err.Error()
		return
	}
	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("camquad_%s_%d", obj.stage, s),
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		obj.log = fmt.Sprintf("create shader module: %v", err)
		return
	}
	obj.module = module
	obj.refl = refl
	obj.compiled = true
}

func (b *Backend) ShaderCompiled(s camquad.Shader) bool {
	obj := b.shaders[s]
	return obj != nil && obj.compiled
}

func (b *Backend) ShaderInfoLog(s camquad.Shader) string {
	if obj := b.shaders[s]; obj != nil {
		return obj.log
	}
	return ""
}

// DeleteShader releases the handle. The module stays alive while a program
// still references it.
func (b *Backend) DeleteShader(s camquad.Shader) {
	obj := b.shaders[s]
	if obj == nil {
		return
	}
	delete(b.shaders, s)
	obj.deleted = true
	if obj.refs == 0 {
		b.destroyModule(obj)
	}
}

func (b *Backend) destroyModule(obj *shaderObject) {
	if obj.module != nil {
		b.device.DestroyShaderModule(obj.module)
		obj.module = nil
	}
}

// Programs.

func (b *Backend) CreateProgram() camquad.Program {
	p := camquad.Program(b.handle())
	b.programs[p] = &programObject{}
	return p
}

func (b *Backend) AttachShader(p camquad.Program, s camquad.Shader) {
	prog, obj := b.programs[p], b.shaders[s]
	if prog == nil || obj == nil {
		return
	}
	for _, attached := range prog.shaders {
		if attached == obj {
			return
		}
	}
	obj.refs++
	prog.shaders = append(prog.shaders, obj)
}

func (b *Backend) ProgramLinked(p camquad.Program) bool {
	prog := b.programs[p]
	return prog != nil && prog.linked
}

func (b *Backend) ProgramInfoLog(p camquad.Program) string {
	if prog := b.programs[p]; prog != nil {
		return prog.log
	}
	return ""
}

func (b *Backend) DeleteProgram(p camquad.Program) {
	prog := b.programs[p]
	if prog == nil {
		return
	}
	delete(b.programs, p)
	if b.current == p {
		b.current = camquad.InvalidProgram
	}
	b.destroyLinkState(prog)
	for _, obj := range prog.shaders {
		obj.refs--
		if obj.deleted && obj.refs == 0 {
			b.destroyModule(obj)
		}
	}
	prog.shaders = nil
}

func (b *Backend) UseProgram(p camquad.Program) {
	if _, ok := b.programs[p]; ok {
		b.current = p
	}
}

func (b *Backend) AttribLocation(p camquad.Program, name string) camquad.Attrib {
	prog := b.programs[p]
	if prog == nil || !prog.linked {
		return camquad.InvalidAttrib
	}
	loc, ok := prog.attribs[name]
	if !ok {
		return camquad.InvalidAttrib
	}
	return camquad.Attrib(loc)
}

// UniformLocation resolves a texture binding by variable name. Only
// texture_2d bindings are addressable; samplers pair with their texture
// implicitly.
func (b *Backend) UniformLocation(p camquad.Program, name string) camquad.Uniform {
	prog := b.programs[p]
	if prog == nil || !prog.linked {
		return camquad.InvalidUniform
	}
	bind, ok := prog.bindings[name]
	if !ok || bind.kind != bindingTexture {
		return camquad.InvalidUniform
	}
	return camquad.Uniform(bind.slot)
}

// Uniform1i selects the texture unit sampled through texture binding u of
// the current program.
func (b *Backend) Uniform1i(u camquad.Uniform, v int) {
	prog := b.programs[b.current]
	if prog == nil || !prog.linked || !u.Valid() || v < 0 {
		return
	}
	if _, ok := prog.samplers[uint32(u)]; !ok {
		return
	}
	prog.units[uint32(u)] = v
}

// Buffers.

func (b *Backend) CreateBuffer(kind camquad.BufferKind, data []byte) camquad.Buffer {
	usage := gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	if kind == camquad.BufferIndex {
		usage = gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	}
	// Queue writes must be a multiple of four bytes.
	padded := data
	if rem := len(data) % 4; rem != 0 {
		padded = make([]byte, len(data)+4-rem)
		copy(padded, data)
	}
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "camquad_" + kind.String(),
		Size:  uint64(len(padded)),
		Usage: usage,
	})
	if err != nil {
		b.log().Warn("wgpu: create buffer failed", "kind", kind.String(), "err", err)
		return camquad.InvalidBuffer
	}
	if len(padded) > 0 {
		b.queue.WriteBuffer(buf, 0, padded)
	}
	h := camquad.Buffer(b.handle())
	b.buffers[h] = &bufferObject{buf: buf, kind: kind}
	return h
}

func (b *Backend) DeleteBuffer(buf camquad.Buffer) {
	obj := b.buffers[buf]
	if obj == nil {
		return
	}
	delete(b.buffers, buf)
	b.frame.retainBuffer(b.device, obj.buf)
	for a, src := range b.vertex {
		if src.buf == buf {
			delete(b.vertex, a)
		}
	}
}

func (b *Backend) VertexAttribPointer(a camquad.Attrib, buf camquad.Buffer, size, stride int) {
	if !a.Valid() || b.buffers[buf] == nil || size < 1 || size > 4 {
		return
	}
	b.vertex[a] = vertexSource{buf: buf, size: size, stride: stride}
}

// Textures.

// CreateTexture allocates a 1x1 placeholder so the texture can be bound
// before the first upload.
func (b *Backend) CreateTexture() camquad.Texture {
	obj, err := b.newTexture(1, 1)
	if err != nil {
		b.log().Warn("wgpu: create texture failed", "err", err)
		return camquad.InvalidTexture
	}
	t := camquad.Texture(b.handle())
	b.textures[t] = obj
	b.units[b.activeUnit] = t
	return t
}

func (b *Backend) newTexture(width, height int) (*textureObject, error) {
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "camquad_texture",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "camquad_texture_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view: %w", err)
	}
	return &textureObject{tex: tex, view: view, width: width, height: height}, nil
}

func (b *Backend) DeleteTexture(t camquad.Texture) {
	obj := b.textures[t]
	if obj == nil {
		return
	}
	delete(b.textures, t)
	b.frame.retainTexture(b.device, obj)
	for unit, bound := range b.units {
		if bound == t {
			delete(b.units, unit)
		}
	}
}

func (b *Backend) ActiveTexture(unit int) {
	if unit >= 0 {
		b.activeUnit = unit
	}
}

func (b *Backend) BindTexture(t camquad.Texture) {
	if _, ok := b.textures[t]; ok {
		b.units[b.activeUnit] = t
	}
}

// TexImage2D uploads tightly packed RGBA pixels. A size change replaces the
// GPU texture; the old one lives until the current frame is submitted.
func (b *Backend) TexImage2D(t camquad.Texture, width, height int, pix []byte) {
	obj := b.textures[t]
	if obj == nil || width <= 0 || height <= 0 || len(pix) < width*height*4 {
		return
	}
	if obj.width != width || obj.height != height {
		next, err := b.newTexture(width, height)
		if err != nil {
			b.log().Warn("wgpu: resize texture failed", "width", width, "height", height, "err", err)
			return
		}
		b.frame.retainTexture(b.device, &textureObject{tex: obj.tex, view: obj.view})
		*obj = *next
	}
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: obj.tex, MipLevel: 0},
		pix[:width*height*4],
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * 4),
			RowsPerImage: uint32(height),
		},
		&hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)
}

// ensureSampler returns the shared NEAREST/CLAMP_TO_EDGE sampler.
func (b *Backend) ensureSampler() (hal.Sampler, error) {
	if b.sampler != nil {
		return b.sampler, nil
	}
	sampler, err := b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "camquad_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	b.sampler = sampler
	return sampler, nil
}

// Fixed-function state.

func (b *Backend) ClearColor(r, g, bl, a float32) {
	b.clearColor = gputypes.Color{R: float64(r), G: float64(g), B: float64(bl), A: float64(a)}
}

// ClearDepth records the depth clear value. Targets carry no depth
// attachment, so it has no visible effect.
func (b *Backend) ClearDepth(d float32) { b.clearDepth = d }

// SetDepthTest records the depth test state. Pipelines have no depth
// attachment and never test depth.
func (b *Backend) SetDepthTest(enabled bool) { b.depthTest = enabled }

// DepthTest reports the last value passed to SetDepthTest.
func (b *Backend) DepthTest() bool { return b.depthTest }

func (b *Backend) Viewport(x, y, width, height int) {
	b.viewport = [4]int{x, y, width, height}
	if b.offscreen != nil && !b.target.external() {
		if err := b.resizeOffscreen(width, height); err != nil {
			b.log().Warn("wgpu: resize offscreen target failed", "err", err)
		}
	}
	if b.frame.pass != nil {
		b.applyViewport(b.frame.pass)
	}
}

func (b *Backend) applyViewport(rp hal.RenderPassEncoder) {
	v := b.viewport
	if v[2] <= 0 || v[3] <= 0 {
		return
	}
	rp.SetViewport(float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3]), 0, 1)
}
