package camquad

import (
	"errors"
	"fmt"
)

// Render-resource errors.
var (
	// ErrCompile is matched by every *CompileError.
	ErrCompile = errors.New("camquad: shader compile failed")

	// ErrLink is matched by every *LinkError.
	ErrLink = errors.New("camquad: program link failed")

	// ErrEmptySource is returned when a shader stage has no source text.
	ErrEmptySource = errors.New("camquad: empty shader source")

	// ErrInvalidShader is returned when linking is attempted with a stage
	// that never compiled.
	ErrInvalidShader = errors.New("camquad: invalid shader handle")

	// ErrInvalidInterface reports use of a GPUInterface that never reached a
	// linked program or has been destroyed. Draw and uniform calls absorb it.
	ErrInvalidInterface = errors.New("camquad: invalid gpu interface")

	// ErrNilBackend is returned when a nil Backend is supplied.
	ErrNilBackend = errors.New("camquad: backend is nil")
)

// CompileError describes a shader stage rejected by the backend.
type CompileError struct {
	Stage Stage
	// Log is the backend info log.
	Log string
	// Err is ErrCompile or a more specific cause such as ErrEmptySource.
	Err error
}

func (e *CompileError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("%s shader: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s shader: %v: %s", e.Stage, e.Err, e.Log)
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error { return e.Err }

// Is reports ErrCompile for every compile error regardless of cause.
func (e *CompileError) Is(target error) bool { return target == ErrCompile }

// LinkError describes a program that failed to link.
type LinkError struct {
	// Log is the backend info log.
	Log string
	// Err is ErrLink or ErrInvalidShader.
	Err error
}

func (e *LinkError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("link: %v", e.Err)
	}
	return fmt.Sprintf("link: %v: %s", e.Err, e.Log)
}

// Unwrap returns the underlying cause.
func (e *LinkError) Unwrap() error { return e.Err }

// Is reports ErrLink for every link error regardless of cause.
func (e *LinkError) Is(target error) bool { return target == ErrLink }
