package camquad

import "strings"

// LinkProgram attaches the vertex and fragment stages to a new program
// object and links it.
//
// On failure the program object is deleted and a *LinkError with the
// backend info log is returned together with InvalidProgram.
//
// The linked program is not made current. Callers activate it explicitly
// (GPUInterface.Select) before setting uniforms or drawing, so that several
// programs can be interleaved without relying on link order.
func LinkProgram(b Backend, vs, fs Shader) (Program, error) {
	if b == nil {
		return InvalidProgram, &LinkError{Err: ErrNilBackend}
	}
	if !vs.Valid() || !fs.Valid() {
		return InvalidProgram, &LinkError{Err: ErrInvalidShader}
	}

	p := b.CreateProgram()
	if !p.Valid() {
		return InvalidProgram, &LinkError{Log: "backend could not create program object", Err: ErrLink}
	}

	b.AttachShader(p, vs)
	b.AttachShader(p, fs)
	b.LinkProgram(p)
	if !b.ProgramLinked(p) {
		infoLog := strings.TrimSpace(b.ProgramInfoLog(p))
		b.DeleteProgram(p)
		return InvalidProgram, &LinkError{Log: infoLog, Err: ErrLink}
	}
	return p, nil
}
