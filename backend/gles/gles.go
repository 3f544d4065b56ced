// Package gles implements camquad.Backend on OpenGL ES 2.0 through
// golang.org/x/mobile/gl.
//
// Shaders are GLSL ES 1.00. Buffers are STATIC_DRAW vertex buffer objects;
// textures are TEXTURE_2D with NEAREST filtering and CLAMP_TO_EDGE
// addressing, uploaded as RGBA/UNSIGNED_BYTE.
//
// GL object name 0 never names a real object, so it maps to the camquad
// sentinel handles.
package gles

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/mobile/gl"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/backend"
)

// Name is the registry name of this backend.
const Name = backend.BackendGLES

func init() {
	backend.Register(Name, func(host any) (camquad.Backend, error) {
		ctx, ok := host.(gl.Context)
		if !ok {
			return nil, fmt.Errorf("%w: want gl.Context, got %T", backend.ErrUnsupportedHost, host)
		}
		return New(ctx), nil
	})
}

// Backend drives a gl.Context. It must only be used on the goroutine that
// owns the context.
type Backend struct {
	ctx    gl.Context
	logger atomic.Pointer[slog.Logger]

	activeUnit int
	bound      map[int]camquad.Texture
}

var _ camquad.Backend = (*Backend)(nil)

// New returns a backend that issues calls on ctx.
func New(ctx gl.Context) *Backend {
	b := &Backend{
		ctx:   ctx,
		bound: make(map[int]camquad.Texture),
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

// Name returns "gles".
func (b *Backend) Name() string { return Name }

// Language returns camquad.LanguageGLSLES.
func (b *Backend) Language() camquad.ShaderLanguage { return camquad.LanguageGLSLES }

func shaderType(stage camquad.Stage) gl.Enum {
	if stage == camquad.StageFragment {
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

func glShader(s camquad.Shader) gl.Shader    { return gl.Shader{Value: uint32(s)} }
func glProgram(p camquad.Program) gl.Program { return gl.Program{Init: true, Value: uint32(p)} }
func glBuffer(buf camquad.Buffer) gl.Buffer  { return gl.Buffer{Value: uint32(buf)} }
func glTexture(t camquad.Texture) gl.Texture { return gl.Texture{Value: uint32(t)} }

func (b *Backend) CreateShader(stage camquad.Stage) camquad.Shader {
	s := b.ctx.CreateShader(shaderType(stage))
	if s.Value == 0 {
		b.log().Warn("gles: glCreateShader returned 0", "stage", stage.String())
		return camquad.InvalidShader
	}
	return camquad.Shader(s.Value)
}

func (b *Backend) ShaderSource(s camquad.Shader, src string) {
	if s.Valid() {
		b.ctx.ShaderSource(glShader(s), src)
	}
}

func (b *Backend) CompileShader(s camquad.Shader) {
	if s.Valid() {
		b.ctx.CompileShader(glShader(s))
	}
}

func (b *Backend) ShaderCompiled(s camquad.Shader) bool {
	return s.Valid() && b.ctx.GetShaderi(glShader(s), gl.COMPILE_STATUS) != gl.FALSE
}

func (b *Backend) ShaderInfoLog(s camquad.Shader) string {
	if !s.Valid() {
		return ""
	}
	return b.ctx.GetShaderInfoLog(glShader(s))
}

func (b *Backend) DeleteShader(s camquad.Shader) {
	if s.Valid() {
		b.ctx.DeleteShader(glShader(s))
	}
}

func (b *Backend) CreateProgram() camquad.Program {
	p := b.ctx.CreateProgram()
	if p.Value == 0 {
		b.log().Warn("gles: glCreateProgram returned 0")
		return camquad.InvalidProgram
	}
	return camquad.Program(p.Value)
}

func (b *Backend) AttachShader(p camquad.Program, s camquad.Shader) {
	if p.Valid() && s.Valid() {
		b.ctx.AttachShader(glProgram(p), glShader(s))
	}
}

func (b *Backend) LinkProgram(p camquad.Program) {
	if p.Valid() {
		b.ctx.LinkProgram(glProgram(p))
	}
}

func (b *Backend) ProgramLinked(p camquad.Program) bool {
	return p.Valid() && b.ctx.GetProgrami(glProgram(p), gl.LINK_STATUS) != gl.FALSE
}

func (b *Backend) ProgramInfoLog(p camquad.Program) string {
	if !p.Valid() {
		return ""
	}
	return b.ctx.GetProgramInfoLog(glProgram(p))
}

func (b *Backend) DeleteProgram(p camquad.Program) {
	if p.Valid() {
		b.ctx.DeleteProgram(glProgram(p))
	}
}

func (b *Backend) UseProgram(p camquad.Program) {
	if p.Valid() {
		b.ctx.UseProgram(glProgram(p))
	}
}

func (b *Backend) AttribLocation(p camquad.Program, name string) camquad.Attrib {
	if !p.Valid() {
		return camquad.InvalidAttrib
	}
	// glGetAttribLocation reports -1 for unknown names, which arrives here
	// as the two's complement in an unsigned value.
	a := int32(b.ctx.GetAttribLocation(glProgram(p), name).Value)
	if a < 0 {
		return camquad.InvalidAttrib
	}
	return camquad.Attrib(a)
}

func (b *Backend) UniformLocation(p camquad.Program, name string) camquad.Uniform {
	if !p.Valid() {
		return camquad.InvalidUniform
	}
	u := b.ctx.GetUniformLocation(glProgram(p), name)
	if u.Value < 0 {
		return camquad.InvalidUniform
	}
	return camquad.Uniform(u.Value)
}

func (b *Backend) Uniform1i(u camquad.Uniform, v int) {
	if u.Valid() {
		b.ctx.Uniform1i(gl.Uniform{Value: int32(u)}, v)
	}
}

func bufferTarget(kind camquad.BufferKind) gl.Enum {
	if kind == camquad.BufferIndex {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func (b *Backend) CreateBuffer(kind camquad.BufferKind, data []byte) camquad.Buffer {
	buf := b.ctx.CreateBuffer()
	if buf.Value == 0 {
		b.log().Warn("gles: glGenBuffers returned 0", "kind", kind.String())
		return camquad.InvalidBuffer
	}
	target := bufferTarget(kind)
	b.ctx.BindBuffer(target, buf)
	b.ctx.BufferData(target, data, gl.STATIC_DRAW)
	return camquad.Buffer(buf.Value)
}

func (b *Backend) DeleteBuffer(buf camquad.Buffer) {
	if buf.Valid() {
		b.ctx.DeleteBuffer(glBuffer(buf))
	}
}

func (b *Backend) VertexAttribPointer(a camquad.Attrib, buf camquad.Buffer, size, stride int) {
	if !a.Valid() || !buf.Valid() {
		return
	}
	attr := gl.Attrib{Value: uint(a)}
	b.ctx.BindBuffer(gl.ARRAY_BUFFER, glBuffer(buf))
	b.ctx.EnableVertexAttribArray(attr)
	b.ctx.VertexAttribPointer(attr, size, gl.FLOAT, false, stride, 0)
}

func (b *Backend) DrawArrays(first, count int) {
	b.ctx.DrawArrays(gl.TRIANGLES, first, count)
}

func (b *Backend) DrawElements(buf camquad.Buffer, count int) {
	if !buf.Valid() {
		return
	}
	b.ctx.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, glBuffer(buf))
	b.ctx.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_SHORT, 0)
}

func (b *Backend) CreateTexture() camquad.Texture {
	tex := b.ctx.CreateTexture()
	if tex.Value == 0 {
		b.log().Warn("gles: glGenTextures returned 0")
		return camquad.InvalidTexture
	}
	b.ctx.BindTexture(gl.TEXTURE_2D, tex)
	b.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	b.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	b.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	b.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	t := camquad.Texture(tex.Value)
	b.bound[b.activeUnit] = t
	return t
}

func (b *Backend) DeleteTexture(t camquad.Texture) {
	if !t.Valid() {
		return
	}
	b.ctx.DeleteTexture(glTexture(t))
	for unit, bound := range b.bound {
		if bound == t {
			delete(b.bound, unit)
		}
	}
}

func (b *Backend) ActiveTexture(unit int) {
	if unit < 0 {
		return
	}
	b.ctx.ActiveTexture(gl.Enum(gl.TEXTURE0 + unit))
	b.activeUnit = unit
}

func (b *Backend) BindTexture(t camquad.Texture) {
	if !t.Valid() {
		return
	}
	b.ctx.BindTexture(gl.TEXTURE_2D, glTexture(t))
	b.bound[b.activeUnit] = t
}

func (b *Backend) TexImage2D(t camquad.Texture, width, height int, pix []byte) {
	if !t.Valid() || width <= 0 || height <= 0 {
		return
	}
	prev, hadPrev := b.bound[b.activeUnit]
	if !hadPrev || prev != t {
		b.ctx.BindTexture(gl.TEXTURE_2D, glTexture(t))
	}
	b.ctx.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, width, height, gl.RGBA, gl.UNSIGNED_BYTE, pix)
	if hadPrev && prev != t {
		b.ctx.BindTexture(gl.TEXTURE_2D, glTexture(prev))
	}
	if !hadPrev {
		b.bound[b.activeUnit] = t
	}
}

func (b *Backend) ClearColor(r, g, bl, a float32) { b.ctx.ClearColor(r, g, bl, a) }

func (b *Backend) ClearDepth(d float32) { b.ctx.ClearDepthf(d) }

func (b *Backend) Clear(color, depth bool) {
	var mask gl.Enum
	if color {
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		b.ctx.Clear(mask)
	}
}

func (b *Backend) SetDepthTest(enabled bool) {
	if enabled {
		b.ctx.Enable(gl.DEPTH_TEST)
	} else {
		b.ctx.Disable(gl.DEPTH_TEST)
	}
}

func (b *Backend) Viewport(x, y, width, height int) {
	b.ctx.Viewport(x, y, width, height)
}
