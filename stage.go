package camquad

// Stage is one half of a shader pipeline.
type Stage int

const (
	// StageVertex processes vertices.
	StageVertex Stage = iota
	// StageFragment processes fragments.
	StageFragment
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// ShaderSource is the source text of a single shader stage.
type ShaderSource struct {
	Stage Stage
	Text  string
}

// VertexSource returns a vertex-stage ShaderSource.
func VertexSource(text string) ShaderSource {
	return ShaderSource{Stage: StageVertex, Text: text}
}

// FragmentSource returns a fragment-stage ShaderSource.
func FragmentSource(text string) ShaderSource {
	return ShaderSource{Stage: StageFragment, Text: text}
}
