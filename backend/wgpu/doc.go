// Package wgpu implements camquad.Backend on gogpu/wgpu's HAL.
//
// Shaders are WGSL. CompileShader runs naga to produce SPIR-V and scans the
// source for the stage entry point, its @location inputs and outputs and
// the @group(0) resource bindings. Naga diagnostics become the shader info
// log, so broken sources fail the same way they do on GL.
//
// # Program model
//
// LinkProgram checks that both stages are present and that every fragment
// input is written by the vertex stage, then builds a bind group layout
// from the declared texture_2d and sampler variables:
//
//	@group(0) @binding(0) var uTexture: texture_2d<f32>;
//	@group(0) @binding(1) var uTextureSampler: sampler;
//
// AttribLocation returns a vertex input's @location. UniformLocation
// returns a texture binding's slot, and Uniform1i selects the texture unit
// it samples. A texture is paired with the sampler named <texture>Sampler,
// or the lowest sampler binding otherwise. All samplers use NEAREST
// filtering and CLAMP_TO_EDGE addressing.
//
// Render pipelines depend on the vertex buffer layout and target format,
// so they are built at the first draw that needs them and cached per
// program.
//
// # Frames
//
// Clear marks the target for clearing. The first draw opens a command
// encoder and render pass; later draws join the same pass. FinishFrame
// (camquad.FrameFinisher) ends the pass, submits and waits on a fence.
// Per-frame bind groups, and resources deleted or replaced during the
// frame, are released after submission.
//
// Frames render into a caller view set with SetTarget, usually the
// swapchain image of a gogpu window, or into an owned RGBA8 texture when
// the backend was created with NewOffscreen. Offscreen frames are read
// back after each submission and exposed through Pixels.
//
// # Construction
//
//	b := wgpu.New(device, queue, gputypes.TextureFormatBGRA8Unorm)
//	b, err := wgpu.NewFromProvider(app.GPUContextProvider())
//	b, err := wgpu.NewOffscreen(api, 640, 480)
//
// Importing the package registers the backend as "wgpu" with the backend
// registry.
package wgpu
