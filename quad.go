package camquad

import _ "embed"

// QuadVertices is the full-screen quad in clip space, three components per
// vertex: top-left, bottom-left, bottom-right, top-right.
var QuadVertices = []float32{
	-1, 1, 0,
	-1, -1, 0,
	1, -1, 0,
	1, 1, 0,
}

// QuadIndices splits the quad into two counter-clockwise triangles.
var QuadIndices = []uint16{
	0, 1, 2,
	2, 3, 0,
}

// QuadTexCoord maps a clip-space position to the texture coordinate the
// default vertex shaders derive for it. Y is flipped because image rows run
// top to bottom while clip-space y grows upward.
func QuadTexCoord(x, y float32) (u, v float32) {
	return 0.5 * (1 + x), 0.5 * (1 - y)
}

// Default attribute and sampler names used by the built-in shaders.
const (
	DefaultAttribute = "aVertex"
	DefaultSampler   = "uTexture"
)

//go:embed shaders/quad.vert
var glslVertexShader string

//go:embed shaders/quad.frag
var glslFragmentShader string

//go:embed shaders/quad_vs.wgsl
var wgslVertexShader string

//go:embed shaders/quad_fs.wgsl
var wgslFragmentShader string

// DefaultShaders returns the built-in textured-quad shader pair for lang.
// Unknown languages yield empty sources, which fail to compile.
func DefaultShaders(lang ShaderLanguage) (vertex, fragment string) {
	switch lang {
	case LanguageGLSLES:
		return glslVertexShader, glslFragmentShader
	case LanguageWGSL:
		return wgslVertexShader, wgslFragmentShader
	default:
		return "", ""
	}
}
