package camquad

// SurfaceOption configures a RenderSurface during creation.
// Use functional options to customize the shader pair and clear state.
//
// Example:
//
//	// Built-in shaders for the backend's language
//	rs := camquad.NewRenderSurface(b)
//
//	// Custom shaders and a ready callback
//	rs := camquad.NewRenderSurface(b,
//	    camquad.WithShaders(vs, fs),
//	    camquad.WithTextureReadyFunc(startCamera))
type SurfaceOption func(*surfaceOptions)

// surfaceOptions holds optional configuration for RenderSurface creation.
type surfaceOptions struct {
	vertexSrc   string
	fragmentSrc string
	attribute   string
	sampler     string
	clear       [4]float32
	onReady     func(*StreamingTexture)
	bufW, bufH  int
}

// defaultSurfaceOptions returns the default options. Empty shader sources
// are replaced by DefaultShaders for the backend language.
func defaultSurfaceOptions() surfaceOptions {
	return surfaceOptions{
		attribute: DefaultAttribute,
		sampler:   DefaultSampler,
		clear:     [4]float32{0, 0, 0.3, 0},
	}
}

// WithShaders sets the vertex and fragment shader sources. They must be
// written in the backend's ShaderLanguage and consume the position
// attribute and sampler named by WithAttribute and WithSampler.
func WithShaders(vertex, fragment string) SurfaceOption {
	return func(o *surfaceOptions) {
		o.vertexSrc = vertex
		o.fragmentSrc = fragment
	}
}

// WithClearColor sets the color the frame is cleared to before drawing.
// The default is a dark blue (0, 0, 0.3, 0).
func WithClearColor(r, g, b, a float32) SurfaceOption {
	return func(o *surfaceOptions) {
		o.clear = [4]float32{r, g, b, a}
	}
}

// WithTextureReadyFunc registers fn to be called once, on the render
// goroutine, when the streaming texture is ready for a producer. It fires
// together with the TextureReady channel.
func WithTextureReadyFunc(fn func(*StreamingTexture)) SurfaceOption {
	return func(o *surfaceOptions) {
		o.onReady = fn
	}
}

// WithAttribute sets the vertex attribute that receives quad positions.
func WithAttribute(name string) SurfaceOption {
	return func(o *surfaceOptions) {
		if name != "" {
			o.attribute = name
		}
	}
}

// WithSampler sets the sampler uniform bound to texture unit 0.
func WithSampler(name string) SurfaceOption {
	return func(o *surfaceOptions) {
		if name != "" {
			o.sampler = name
		}
	}
}

// WithDefaultBufferSize sets the initial buffer size hint of the streaming
// texture. See StreamingTexture.SetDefaultBufferSize.
func WithDefaultBufferSize(width, height int) SurfaceOption {
	return func(o *surfaceOptions) {
		o.bufW, o.bufH = width, height
	}
}
