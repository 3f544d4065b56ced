// Package camquad renders a live camera or video feed as a full-screen
// textured quad.
//
// # Overview
//
// camquad is a small render-resource layer. It compiles and links a
// vertex+fragment shader pair, binds vertex and index buffers to named
// shader attributes, issues triangle draws and samples a streaming texture
// that an external producer fills asynchronously.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/camquad"
//	    "github.com/gogpu/camquad/backend/gles"
//	)
//
//	rs, err := camquad.NewRenderSurface(gles.New(glctx))
//	if err != nil {
//	    return err
//	}
//	rs.OnSurfaceCreated()
//	go producer.Run(ctx, <-rs.TextureReady())
//
//	// On every resize and frame tick, on the render goroutine:
//	rs.OnSurfaceChanged(w, h)
//	rs.OnDrawFrame()
//
// # Backends
//
// A [Backend] is the graphics API the core drives. It mirrors the OpenGL
// ES 2.0 subset the quad needs and reports failure through sentinel
// handles (InvalidShader, InvalidProgram, ...) instead of errors:
//   - backend/gles: OpenGL ES 2.0 via golang.org/x/mobile/gl (GLSL ES)
//   - backend/wgpu: WebGPU HAL via gogpu/wgpu, shaders compiled by naga (WGSL)
//
// # Activation
//
// LinkProgram never makes the program current. Call [GPUInterface.Select]
// before setting uniforms or drawing. RenderSurface does so once after
// creation and again on every frame.
//
// # Threading
//
// Every Backend call, and therefore every GPUInterface and RenderSurface
// method, must run on the goroutine that owns the graphics context. The only
// concurrency seam is [StreamingTexture]: producers write from any
// goroutine, the render goroutine latches the newest frame with
// UpdateToLatest.
package camquad

// Version is the current version of the library.
const Version = "0.1.0"
