// Package backend selects a camquad.Backend at runtime.
//
// Backend packages register a Factory from init(), so importing them for
// side effects is enough to make them available:
//
//	import _ "github.com/gogpu/camquad/backend/wgpu"
//
// # Backend Selection
//
// Use Default to get the best backend that accepts the host, or Get to
// request one by name:
//
//	// Best available backend for the window's device provider
//	b, err := backend.Default(app.GPUContextProvider())
//
//	// Or a specific backend
//	b, err := backend.Get("gles", glctx)
//
// # Available Backends
//
// - "wgpu": WebGPU HAL via gogpu/wgpu, WGSL shaders compiled by naga
// - "gles": OpenGL ES 2.0 via golang.org/x/mobile/gl, GLSL ES shaders
package backend
