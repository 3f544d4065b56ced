package camquad

// BindForSampling activates texture unit and binds tex to it as a 2D
// texture, so a sampler uniform set to unit reads from tex.
// Invalid textures and negative units are ignored.
func BindForSampling(b Backend, unit int, tex Texture) {
	if b == nil || unit < 0 || !tex.Valid() {
		return
	}
	b.ActiveTexture(unit)
	b.BindTexture(tex)
}
