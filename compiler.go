package camquad

import "strings"

// CompileShader compiles a single shader stage on b.
//
// On success the returned handle refers to a compiled, unlinked stage owned
// by the caller. On failure the partially created shader object is deleted
// and a *CompileError carrying the backend info log is returned together
// with InvalidShader. Compilation is deterministic and never retried.
func CompileShader(b Backend, src ShaderSource) (Shader, error) {
	if b == nil {
		return InvalidShader, &CompileError{Stage: src.Stage, Err: ErrNilBackend}
	}
	if strings.TrimSpace(src.Text) == "" {
		return InvalidShader, &CompileError{Stage: src.Stage, Err: ErrEmptySource}
	}

	s := b.CreateShader(src.Stage)
	if !s.Valid() {
		return InvalidShader, &CompileError{
			Stage: src.Stage,
			Log:   "backend could not create shader object",
			Err:   ErrCompile,
		}
	}

	b.ShaderSource(s, src.Text)
	b.CompileShader(s)
	if !b.ShaderCompiled(s) {
		infoLog := strings.TrimSpace(b.ShaderInfoLog(s))
		b.DeleteShader(s)
		return InvalidShader, &CompileError{Stage: src.Stage, Log: infoLog, Err: ErrCompile}
	}
	return s, nil
}
