// Package fakegpu provides a recording camquad.Backend for tests.
//
// The backend keeps every object in memory, records each call by method
// name and each draw together with the state it was issued under. Compile
// and link failures are scripted through exported fields.
package fakegpu

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/gogpu/camquad"
)

// Call is one recorded backend method invocation.
type Call struct {
	Method string
	Args   []any
}

func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Method
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Method + "(" + strings.Join(parts, ", ") + ")"
}

// Draw is one recorded draw together with the state it ran under.
type Draw struct {
	Indexed bool
	Program camquad.Program
	Attrib  camquad.Attrib
	Vertex  camquad.Buffer
	Index   camquad.Buffer
	Stride  int
	Size    int
	First   int
	Count   int

	// DepthTest is the depth-test state at draw time.
	DepthTest bool
	// Textures maps texture units to the texture bound on them.
	Textures map[int]camquad.Texture
	// Uniforms holds the integer uniforms of Program.
	Uniforms map[camquad.Uniform]int
}

type shader struct {
	stage    camquad.Stage
	src      string
	compiled bool
	log      string
}

type program struct {
	attached []camquad.Shader
	linked   bool
	log      string
	uniforms map[camquad.Uniform]int
}

// TextureState is the content of a fake texture.
type TextureState struct {
	Width, Height int
	Pix           []byte
	Uploads       int
}

type attribBinding struct {
	buf          camquad.Buffer
	size, stride int
}

// Backend is an in-memory camquad.Backend.
//
// Not safe for concurrent use, like the real backends.
type Backend struct {
	// Lang is reported by Language. Defaults to LanguageGLSLES.
	Lang camquad.ShaderLanguage

	// RejectSource, when set, is consulted by CompileShader. A non-empty
	// result fails the compile with that info log. Sources containing
	// "#error" are always rejected.
	RejectSource func(stage camquad.Stage, src string) string

	// LinkLog, when non-empty, fails every link with this info log.
	LinkLog string

	// Attribs and Uniforms are the names every linked program exposes.
	Attribs  map[string]camquad.Attrib
	Uniforms map[string]camquad.Uniform

	// FailTextures and FailBuffers make object creation return sentinels.
	FailTextures bool
	FailBuffers  bool

	calls []Call
	draws []Draw
	next  int

	shaders  map[camquad.Shader]*shader
	programs map[camquad.Program]*program
	textures map[camquad.Texture]*TextureState
	buffers  map[camquad.Buffer][]byte
	attribs  map[camquad.Attrib]attribBinding

	current    camquad.Program
	activeUnit int
	units      map[int]camquad.Texture
	depthTest  bool
	clearColor [4]float32
	clearDepth float32
	viewport   [4]int

	logger *slog.Logger
}

var _ camquad.Backend = (*Backend)(nil)

// New returns a backend whose programs expose the default attribute at
// location 0 and the default sampler at location 0.
func New() *Backend {
	return &Backend{
		Lang:     camquad.LanguageGLSLES,
		Attribs:  map[string]camquad.Attrib{camquad.DefaultAttribute: 0},
		Uniforms: map[string]camquad.Uniform{camquad.DefaultSampler: 0},
		shaders:  make(map[camquad.Shader]*shader),
		programs: make(map[camquad.Program]*program),
		textures: make(map[camquad.Texture]*TextureState),
		buffers:  make(map[camquad.Buffer][]byte),
		attribs:  make(map[camquad.Attrib]attribBinding),
		units:    make(map[int]camquad.Texture),
		current:  camquad.InvalidProgram,
		logger:   slog.New(slog.DiscardHandler),
	}
}

func (b *Backend) record(method string, args ...any) {
	b.calls = append(b.calls, Call{Method: method, Args: args})
}

func (b *Backend) id() int {
	b.next++
	return b.next
}

// SetLogger implements the logger propagation hook.
func (b *Backend) SetLogger(l *slog.Logger) { b.logger = l }

// LoggerInUse returns the logger last handed to SetLogger.
func (b *Backend) LoggerInUse() *slog.Logger { return b.logger }

func (b *Backend) Name() string                     { return "fake" }
func (b *Backend) Language() camquad.ShaderLanguage { return b.Lang }

func (b *Backend) CreateShader(stage camquad.Stage) camquad.Shader {
	b.record("CreateShader", stage)
	s := camquad.Shader(b.id())
	b.shaders[s] = &shader{stage: stage}
	return s
}

func (b *Backend) ShaderSource(s camquad.Shader, src string) {
	b.record("ShaderSource", s)
	if sh, ok := b.shaders[s]; ok {
		sh.src = src
	}
}

func (b *Backend) CompileShader(s camquad.Shader) {
	b.record("CompileShader", s)
	sh, ok := b.shaders[s]
	if !ok {
		return
	}
	switch {
	case strings.Contains(sh.src, "#error"):
		sh.log = "ERROR: 0:1: '#error' : user directive"
	case b.RejectSource != nil:
		sh.log = b.RejectSource(sh.stage, sh.src)
	}
	sh.compiled = sh.log == ""
}

func (b *Backend) ShaderCompiled(s camquad.Shader) bool {
	b.record("ShaderCompiled", s)
	sh, ok := b.shaders[s]
	return ok && sh.compiled
}

func (b *Backend) ShaderInfoLog(s camquad.Shader) string {
	b.record("ShaderInfoLog", s)
	if sh, ok := b.shaders[s]; ok {
		return sh.log
	}
	return ""
}

func (b *Backend) DeleteShader(s camquad.Shader) {
	b.record("DeleteShader", s)
	delete(b.shaders, s)
}

func (b *Backend) CreateProgram() camquad.Program {
	b.record("CreateProgram")
	p := camquad.Program(b.id())
	b.programs[p] = &program{uniforms: make(map[camquad.Uniform]int)}
	return p
}

func (b *Backend) AttachShader(p camquad.Program, s camquad.Shader) {
	b.record("AttachShader", p, s)
	if pr, ok := b.programs[p]; ok {
		pr.attached = append(pr.attached, s)
	}
}

func (b *Backend) LinkProgram(p camquad.Program) {
	b.record("LinkProgram", p)
	pr, ok := b.programs[p]
	if !ok {
		return
	}
	var stages [2]bool
	for _, s := range pr.attached {
		if sh, ok := b.shaders[s]; ok && sh.compiled {
			stages[sh.stage] = true
		}
	}
	switch {
	case b.LinkLog != "":
		pr.log = b.LinkLog
	case !stages[camquad.StageVertex] || !stages[camquad.StageFragment]:
		pr.log = "error: program needs a compiled vertex and fragment shader"
	}
	pr.linked = pr.log == ""
}

func (b *Backend) ProgramLinked(p camquad.Program) bool {
	b.record("ProgramLinked", p)
	pr, ok := b.programs[p]
	return ok && pr.linked
}

func (b *Backend) ProgramInfoLog(p camquad.Program) string {
	b.record("ProgramInfoLog", p)
	if pr, ok := b.programs[p]; ok {
		return pr.log
	}
	return ""
}

func (b *Backend) DeleteProgram(p camquad.Program) {
	b.record("DeleteProgram", p)
	delete(b.programs, p)
	if b.current == p {
		b.current = camquad.InvalidProgram
	}
}

func (b *Backend) UseProgram(p camquad.Program) {
	b.record("UseProgram", p)
	if _, ok := b.programs[p]; ok {
		b.current = p
	}
}

func (b *Backend) AttribLocation(p camquad.Program, name string) camquad.Attrib {
	b.record("AttribLocation", p, name)
	if pr, ok := b.programs[p]; !ok || !pr.linked {
		return camquad.InvalidAttrib
	}
	if a, ok := b.Attribs[name]; ok {
		return a
	}
	return camquad.InvalidAttrib
}

func (b *Backend) UniformLocation(p camquad.Program, name string) camquad.Uniform {
	b.record("UniformLocation", p, name)
	if pr, ok := b.programs[p]; !ok || !pr.linked {
		return camquad.InvalidUniform
	}
	if u, ok := b.Uniforms[name]; ok {
		return u
	}
	return camquad.InvalidUniform
}

func (b *Backend) Uniform1i(u camquad.Uniform, v int) {
	b.record("Uniform1i", u, v)
	if !u.Valid() {
		return
	}
	if pr, ok := b.programs[b.current]; ok {
		pr.uniforms[u] = v
	}
}

func (b *Backend) CreateBuffer(kind camquad.BufferKind, data []byte) camquad.Buffer {
	b.record("CreateBuffer", kind, len(data))
	if b.FailBuffers {
		return camquad.InvalidBuffer
	}
	buf := camquad.Buffer(b.id())
	b.buffers[buf] = append([]byte(nil), data...)
	return buf
}

func (b *Backend) DeleteBuffer(buf camquad.Buffer) {
	b.record("DeleteBuffer", buf)
	delete(b.buffers, buf)
}

func (b *Backend) VertexAttribPointer(a camquad.Attrib, buf camquad.Buffer, size, stride int) {
	b.record("VertexAttribPointer", a, buf, size, stride)
	b.attribs[a] = attribBinding{buf: buf, size: size, stride: stride}
}

func (b *Backend) DrawArrays(first, count int) {
	b.record("DrawArrays", first, count)
	b.draws = append(b.draws, b.snapshot(Draw{First: first, Count: count}))
}

func (b *Backend) DrawElements(buf camquad.Buffer, count int) {
	b.record("DrawElements", buf, count)
	b.draws = append(b.draws, b.snapshot(Draw{Indexed: true, Index: buf, Count: count}))
}

func (b *Backend) snapshot(d Draw) Draw {
	d.Program = b.current
	d.Attrib = camquad.InvalidAttrib
	for a, bind := range b.attribs {
		d.Attrib, d.Vertex, d.Size, d.Stride = a, bind.buf, bind.size, bind.stride
	}
	d.DepthTest = b.depthTest
	d.Textures = maps.Clone(b.units)
	d.Uniforms = map[camquad.Uniform]int{}
	if pr, ok := b.programs[b.current]; ok {
		d.Uniforms = maps.Clone(pr.uniforms)
	}
	return d
}

func (b *Backend) CreateTexture() camquad.Texture {
	b.record("CreateTexture")
	if b.FailTextures {
		return camquad.InvalidTexture
	}
	t := camquad.Texture(b.id())
	b.textures[t] = &TextureState{}
	return t
}

func (b *Backend) DeleteTexture(t camquad.Texture) {
	b.record("DeleteTexture", t)
	delete(b.textures, t)
	for unit, bound := range b.units {
		if bound == t {
			delete(b.units, unit)
		}
	}
}

func (b *Backend) ActiveTexture(unit int) {
	b.record("ActiveTexture", unit)
	b.activeUnit = unit
}

func (b *Backend) BindTexture(t camquad.Texture) {
	b.record("BindTexture", t)
	b.units[b.activeUnit] = t
}

func (b *Backend) TexImage2D(t camquad.Texture, width, height int, pix []byte) {
	b.record("TexImage2D", t, width, height)
	ts, ok := b.textures[t]
	if !ok {
		return
	}
	ts.Width, ts.Height = width, height
	ts.Pix = append(ts.Pix[:0], pix...)
	ts.Uploads++
}

func (b *Backend) ClearColor(r, g, bl, a float32) {
	b.record("ClearColor", r, g, bl, a)
	b.clearColor = [4]float32{r, g, bl, a}
}

func (b *Backend) ClearDepth(d float32) {
	b.record("ClearDepth", d)
	b.clearDepth = d
}

func (b *Backend) Clear(color, depth bool) { b.record("Clear", color, depth) }

func (b *Backend) SetDepthTest(enabled bool) {
	b.record("SetDepthTest", enabled)
	b.depthTest = enabled
}

func (b *Backend) Viewport(x, y, width, height int) {
	b.record("Viewport", x, y, width, height)
	b.viewport = [4]int{x, y, width, height}
}

// Calls returns the recorded calls in order.
func (b *Backend) Calls() []Call { return append([]Call(nil), b.calls...) }

// Methods returns the method names of the recorded calls in order.
func (b *Backend) Methods() []string {
	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.Method
	}
	return out
}

// CallCount returns how many times method was called.
func (b *Backend) CallCount(method string) int {
	n := 0
	for _, c := range b.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Draws returns the recorded draws in order.
func (b *Backend) Draws() []Draw { return append([]Draw(nil), b.draws...) }

// Reset forgets recorded calls and draws but keeps every object alive.
func (b *Backend) Reset() {
	b.calls = nil
	b.draws = nil
}

// Current returns the program made current by UseProgram.
func (b *Backend) Current() camquad.Program { return b.current }

// BoundTexture returns the texture bound on unit.
func (b *Backend) BoundTexture(unit int) camquad.Texture {
	if t, ok := b.units[unit]; ok {
		return t
	}
	return camquad.InvalidTexture
}

// Texture returns the state of t and whether it exists.
func (b *Backend) Texture(t camquad.Texture) (TextureState, bool) {
	ts, ok := b.textures[t]
	if !ok {
		return TextureState{}, false
	}
	return *ts, true
}

// BufferData returns the bytes of buf and whether it exists.
func (b *Backend) BufferData(buf camquad.Buffer) ([]byte, bool) {
	d, ok := b.buffers[buf]
	return d, ok
}

// Uniform returns the value of u in program p.
func (b *Backend) Uniform(p camquad.Program, u camquad.Uniform) (int, bool) {
	pr, ok := b.programs[p]
	if !ok {
		return 0, false
	}
	v, ok := pr.uniforms[u]
	return v, ok
}

// ClearState returns the clear color and depth.
func (b *Backend) ClearState() (color [4]float32, depth float32) {
	return b.clearColor, b.clearDepth
}

// ViewportRect returns the last viewport.
func (b *Backend) ViewportRect() [4]int { return b.viewport }

// DepthTest returns the current depth-test state.
func (b *Backend) DepthTest() bool { return b.depthTest }

// Live returns how many shaders, programs, textures and buffers exist.
func (b *Backend) Live() (shaders, programs, textures, buffers int) {
	return len(b.shaders), len(b.programs), len(b.textures), len(b.buffers)
}

// Deferred is a Backend that also submits frames explicitly, like the
// WebGPU backend.
type Deferred struct {
	*Backend

	// FinishErr is returned by every FinishFrame call.
	FinishErr error
	Finished  int
}

var _ camquad.FrameFinisher = (*Deferred)(nil)

// NewDeferred returns a Deferred backend.
func NewDeferred() *Deferred { return &Deferred{Backend: New()} }

// FinishFrame records the submission.
func (d *Deferred) FinishFrame() error {
	d.record("FinishFrame")
	d.Finished++
	return d.FinishErr
}
