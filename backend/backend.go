package backend

import (
	"errors"

	"github.com/gogpu/camquad"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrUnsupportedHost is returned by a factory that cannot use the host
	// handle it was given.
	ErrUnsupportedHost = errors.New("backend: unsupported host")
)

// Backend names.
const (
	// BackendWGPU renders through the WebGPU HAL (gogpu/wgpu), WGSL shaders.
	BackendWGPU = "wgpu"

	// BackendGLES renders through OpenGL ES 2.0 (x/mobile/gl), GLSL ES shaders.
	BackendGLES = "gles"
)

// Factory creates a camquad.Backend bound to host.
//
// host is whatever the windowing layer hands out: a gl.Context for the
// GLES backend, a gpucontext device provider for the WebGPU backend, or nil
// to request an offscreen device where the backend supports it. A factory
// that cannot use host returns an error wrapping ErrUnsupportedHost.
type Factory func(host any) (camquad.Backend, error)
