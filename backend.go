package camquad

import "log/slog"

// Shader is a backend handle to a single compiled shader stage.
type Shader int

// Program is a backend handle to a linked vertex+fragment program.
type Program int

// Texture is a backend handle to a 2D texture object.
type Texture int

// Buffer is a backend handle to a GPU buffer object.
type Buffer int

// Attrib is a resolved vertex attribute location.
type Attrib int

// Uniform is a resolved uniform (or resource binding) location.
type Uniform int

// Sentinel handles. Backends return these instead of a separate error channel
// when an object could not be created or a name could not be resolved.
const (
	InvalidShader  Shader  = -1
	InvalidProgram Program = -1
	InvalidTexture Texture = -1
	InvalidBuffer  Buffer  = -1
	InvalidAttrib  Attrib  = -1
	InvalidUniform Uniform = -1
)

// Valid reports whether s refers to a shader object.
func (s Shader) Valid() bool { return s >= 0 }

// Valid reports whether p refers to a program object.
func (p Program) Valid() bool { return p >= 0 }

// Valid reports whether t refers to a texture object.
func (t Texture) Valid() bool { return t >= 0 }

// Valid reports whether b refers to a buffer object.
func (b Buffer) Valid() bool { return b >= 0 }

// Valid reports whether a is a resolved attribute location.
func (a Attrib) Valid() bool { return a >= 0 }

// Valid reports whether u is a resolved uniform location.
func (u Uniform) Valid() bool { return u >= 0 }

// BufferKind selects the binding target of a buffer.
type BufferKind int

const (
	// BufferVertex holds per-vertex float data.
	BufferVertex BufferKind = iota
	// BufferIndex holds uint16 triangle indices.
	BufferIndex
)

// String returns the buffer kind name.
func (k BufferKind) String() string {
	switch k {
	case BufferVertex:
		return "vertex"
	case BufferIndex:
		return "index"
	default:
		return "unknown"
	}
}

// ShaderLanguage identifies the shading language a backend compiles.
type ShaderLanguage int

const (
	// LanguageGLSLES is GLSL ES 1.00 (OpenGL ES 2.0).
	LanguageGLSLES ShaderLanguage = iota
	// LanguageWGSL is the WebGPU Shading Language.
	LanguageWGSL
)

// String returns the language name.
func (l ShaderLanguage) String() string {
	switch l {
	case LanguageGLSLES:
		return "glsl-es"
	case LanguageWGSL:
		return "wgsl"
	default:
		return "unknown"
	}
}

// Backend is the graphics API driven by the render-resource layer.
//
// The method set mirrors the OpenGL ES 2.0 subset needed to compile a
// shader pair, bind buffers to named attributes, sample one texture and
// issue triangle draws. Every method must be called from the goroutine
// that owns the graphics context; implementations are not required to be
// safe for concurrent use.
//
// Failure is reported through sentinel handles and status queries, never
// through panics: CreateShader returns InvalidShader when the object cannot
// be created, ShaderCompiled reports the compile status and ShaderInfoLog
// the diagnostic text. Calls that receive a sentinel handle are ignored.
type Backend interface {
	// Name returns the backend identifier (e.g. "gles", "wgpu").
	Name() string

	// Language returns the shading language accepted by ShaderSource.
	Language() ShaderLanguage

	CreateShader(stage Stage) Shader
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	ShaderCompiled(s Shader) bool
	ShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	ProgramLinked(p Program) bool
	ProgramInfoLog(p Program) string
	DeleteProgram(p Program)
	UseProgram(p Program)

	AttribLocation(p Program, name string) Attrib
	UniformLocation(p Program, name string) Uniform
	Uniform1i(u Uniform, v int)

	// CreateBuffer allocates a buffer of the given kind initialized with
	// data. Buffers are immutable after creation.
	CreateBuffer(kind BufferKind, data []byte) Buffer
	DeleteBuffer(b Buffer)

	// VertexAttribPointer enables attribute a and sources it from buf,
	// starting at byte offset 0, as size float32 components per vertex.
	// A stride of 0 means tightly packed.
	VertexAttribPointer(a Attrib, buf Buffer, size, stride int)

	// DrawArrays draws count vertices as a triangle list starting at first.
	DrawArrays(first, count int)

	// DrawElements draws count uint16 indices from buf as a triangle list.
	DrawElements(buf Buffer, count int)

	// CreateTexture allocates a 2D texture with nearest filtering and
	// clamp-to-edge addressing.
	CreateTexture() Texture
	DeleteTexture(t Texture)
	ActiveTexture(unit int)
	BindTexture(t Texture)

	// TexImage2D replaces the contents of t with tightly packed RGBA8
	// pixels of the given size.
	TexImage2D(t Texture, width, height int, pix []byte)

	ClearColor(r, g, b, a float32)
	ClearDepth(d float32)
	Clear(color, depth bool)
	SetDepthTest(enabled bool)
	Viewport(x, y, width, height int)
}

// FrameFinisher is implemented by backends that record draws into an
// explicit command stream and need to submit it at the end of a frame.
// Immediate-mode backends (OpenGL ES) do not implement it.
type FrameFinisher interface {
	FinishFrame() error
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to b if the backend accepts a logger.
func propagateLogger(b Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
