package camquad

import (
	"errors"
	"fmt"
)

// GPUInterface owns one linked shader program and issues draws with it.
//
// Construction runs the full compile, compile, link pipeline. If any step
// fails the instance stays invalid for its whole lifetime and every method
// that would touch the backend becomes a no-op. A new instance must be
// constructed to retry with corrected sources.
//
// A GPUInterface is not safe for concurrent use; call it from the goroutine
// that owns the graphics context.
type GPUInterface struct {
	backend Backend
	program Program
	err     error

	attribs  map[string]Attrib
	uniforms map[string]Uniform
}

// NewGPUInterface compiles vertexSrc and fragmentSrc on b and links them.
//
// Failures are logged at Error level and recorded for Err; they never
// panic and never return a nil instance.
func NewGPUInterface(b Backend, vertexSrc, fragmentSrc string) *GPUInterface {
	g := &GPUInterface{
		backend:  b,
		program:  InvalidProgram,
		attribs:  make(map[string]Attrib),
		uniforms: make(map[string]Uniform),
	}
	if b == nil {
		g.err = ErrNilBackend
		Logger().Error("camquad: gpu interface without backend")
		return g
	}

	vs, err := CompileShader(b, VertexSource(vertexSrc))
	if err != nil {
		g.fail(err)
		return g
	}
	defer b.DeleteShader(vs)

	fs, err := CompileShader(b, FragmentSource(fragmentSrc))
	if err != nil {
		g.fail(err)
		return g
	}
	defer b.DeleteShader(fs)

	p, err := LinkProgram(b, vs, fs)
	if err != nil {
		g.fail(err)
		return g
	}
	g.program = p
	Logger().Debug("camquad: program linked", "backend", b.Name(), "program", int(p))
	return g
}

func (g *GPUInterface) fail(err error) {
	g.err = err
	var ce *CompileError
	var le *LinkError
	switch {
	case errors.As(err, &ce):
		Logger().Error("camquad: shader compile failed",
			"stage", ce.Stage.String(), "log", ce.Log, "err", ce.Err)
	case errors.As(err, &le):
		Logger().Error("camquad: program link failed", "log", le.Log, "err", le.Err)
	default:
		Logger().Error("camquad: gpu interface setup failed", "err", err)
	}
}

// Valid reports whether the interface holds a linked program.
func (g *GPUInterface) Valid() bool {
	return g != nil && g.program.Valid()
}

// Program returns the linked program handle, or InvalidProgram.
func (g *GPUInterface) Program() Program {
	if g == nil {
		return InvalidProgram
	}
	return g.program
}

// Err returns the error that left the interface invalid, or nil when it is
// valid. A destroyed interface reports ErrInvalidInterface.
func (g *GPUInterface) Err() error {
	if g == nil {
		return ErrInvalidInterface
	}
	if g.Valid() {
		return nil
	}
	if g.err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInterface, g.err)
	}
	return ErrInvalidInterface
}

// Select makes the program current for subsequent uniform and draw calls.
func (g *GPUInterface) Select() {
	if !g.Valid() {
		return
	}
	g.backend.UseProgram(g.program)
}

// SetUniform1i sets the integer uniform name, typically a sampler bound to a
// texture unit. Unknown names resolve to InvalidUniform, which backends
// ignore.
func (g *GPUInterface) SetUniform1i(name string, value int) {
	if !g.Valid() {
		return
	}
	g.backend.Uniform1i(g.UniformLocation(name), value)
}

// AttribLocation returns the location of the named vertex attribute, or
// InvalidAttrib. Results are cached per name.
func (g *GPUInterface) AttribLocation(name string) Attrib {
	if !g.Valid() {
		return InvalidAttrib
	}
	if a, ok := g.attribs[name]; ok {
		return a
	}
	a := g.backend.AttribLocation(g.program, name)
	g.attribs[name] = a
	return a
}

// UniformLocation returns the location of the named uniform, or
// InvalidUniform. Results are cached per name.
func (g *GPUInterface) UniformLocation(name string) Uniform {
	if !g.Valid() {
		return InvalidUniform
	}
	if u, ok := g.uniforms[name]; ok {
		return u
	}
	u := g.backend.UniformLocation(g.program, name)
	g.uniforms[name] = u
	return u
}

// DrawBufferedData binds attr to vb (three float32 components per vertex,
// from the start of the buffer) and draws the vertices
// [startVertex, startVertex+vertexCount) as a triangle list. A range past
// the end of vb draws nothing.
func (g *GPUInterface) DrawBufferedData(vb *VertexBuffer, stride int, attr string, startVertex, vertexCount int) {
	if !g.Valid() || vertexCount <= 0 || startVertex < 0 {
		return
	}
	if startVertex+vertexCount > vb.VertexCount() {
		Logger().Debug("camquad: draw skipped, range exceeds vertex buffer",
			"start", startVertex, "count", vertexCount, "vertices", vb.VertexCount())
		return
	}
	if !g.bindPositions(vb, stride, attr) {
		return
	}
	g.backend.DrawArrays(startVertex, vertexCount)
}

// DrawIndexedBufferedData binds attr to vb like DrawBufferedData and draws
// every index in ib as a triangle list.
func (g *GPUInterface) DrawIndexedBufferedData(vb *VertexBuffer, ib *IndexBuffer, stride int, attr string) {
	if !g.Valid() || !ib.Handle().Valid() {
		return
	}
	if !g.bindPositions(vb, stride, attr) {
		return
	}
	g.backend.DrawElements(ib.Handle(), ib.Len())
}

// bindPositions points attr at vb. It reports false when the draw must be
// skipped.
func (g *GPUInterface) bindPositions(vb *VertexBuffer, stride int, attr string) bool {
	if !vb.Handle().Valid() {
		return false
	}
	a := g.AttribLocation(attr)
	if !a.Valid() {
		Logger().Debug("camquad: draw skipped, attribute not found", "attribute", attr)
		return false
	}
	g.backend.VertexAttribPointer(a, vb.Handle(), componentsPerVertex, stride)
	return true
}

// Destroy deletes the program. The interface is invalid afterwards.
func (g *GPUInterface) Destroy() {
	if !g.Valid() {
		return
	}
	g.backend.DeleteProgram(g.program)
	g.program = InvalidProgram
	clear(g.attribs)
	clear(g.uniforms)
}
