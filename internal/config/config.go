// Package config loads host settings from a TOML file and command-line
// flags. Flags that are set explicitly override values from the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/source"
)

// Source kinds.
const (
	SourcePattern   = "pattern"
	SourceSlideshow = "slideshow"
	SourceStill     = "still"
)

// maxDimension bounds window and buffer sizes.
const maxDimension = 16384

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete host configuration.
type Config struct {
	Window  Window  `toml:"window"`
	Source  Source  `toml:"source"`
	Shaders Shaders `toml:"shaders"`
	Surface Surface `toml:"surface"`
	Verbose bool    `toml:"verbose"`
}

// Window describes the host window.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Source selects and parameterizes the frame producer.
type Source struct {
	Kind string `toml:"kind"`
	// Images are file paths or glob patterns for slideshow and still.
	Images   []string `toml:"images"`
	FPS      int      `toml:"fps"`
	Interval Duration `toml:"interval"`
	Loop     bool     `toml:"loop"`
	Width    int      `toml:"width"`
	Height   int      `toml:"height"`
}

// Shaders names optional shader files replacing the built-in pair.
type Shaders struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	// Watch reloads the pair when either file changes.
	Watch bool `toml:"watch"`
}

// Surface configures the render surface.
type Surface struct {
	ClearColor   [4]float32 `toml:"clear_color"`
	BufferWidth  int        `toml:"buffer_width"`
	BufferHeight int        `toml:"buffer_height"`
}

// Duration is a time.Duration written as a Go duration string ("1.5s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: Window{Title: "camquad", Width: 800, Height: 600},
		Source: Source{
			Kind:     SourcePattern,
			FPS:      source.DefaultFPS,
			Interval: Duration{source.DefaultInterval},
			Loop:     true,
			Width:    source.DefaultWidth,
			Height:   source.DefaultHeight,
		},
		Surface: Surface{ClearColor: [4]float32{0, 0, 0.3, 0}},
	}
}

// Load reads a TOML file over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes TOML data into cfg, keeping fields the data leaves out.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return err
	}
	return nil
}

// Encode returns cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := checkSize("window", c.Window.Width, c.Window.Height); err != nil {
		return err
	}
	if c.Surface.BufferWidth != 0 || c.Surface.BufferHeight != 0 {
		if err := checkSize("surface buffer", c.Surface.BufferWidth, c.Surface.BufferHeight); err != nil {
			return err
		}
	}
	for i, v := range c.Surface.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: clear_color[%d] = %v outside [0, 1]", ErrInvalid, i, v)
		}
	}
	if (c.Shaders.Vertex == "") != (c.Shaders.Fragment == "") {
		return fmt.Errorf("%w: shaders need both vertex and fragment files", ErrInvalid)
	}
	if c.Shaders.Watch && c.Shaders.Vertex == "" {
		return fmt.Errorf("%w: shader watch without shader files", ErrInvalid)
	}
	return c.Source.validate()
}

func (s Source) validate() error {
	switch s.Kind {
	case SourcePattern:
		if s.FPS < 1 || s.FPS > 240 {
			return fmt.Errorf("%w: fps %d outside 1..240", ErrInvalid, s.FPS)
		}
		return checkSize("pattern", s.Width, s.Height)
	case SourceSlideshow:
		if len(s.Images) == 0 {
			return fmt.Errorf("%w: slideshow needs images", ErrInvalid)
		}
		if s.Interval.Duration <= 0 {
			return fmt.Errorf("%w: slideshow interval %v", ErrInvalid, s.Interval)
		}
	case SourceStill:
		if len(s.Images) != 1 {
			return fmt.Errorf("%w: still needs exactly one image, got %d", ErrInvalid, len(s.Images))
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalid, s.Kind)
	}
	return nil
}

func checkSize(what string, w, h int) error {
	if w <= 0 || h <= 0 || w > maxDimension || h > maxDimension {
		return fmt.Errorf("%w: %s size %dx%d", ErrInvalid, what, w, h)
	}
	return nil
}

// Producer builds the configured frame producer. Image entries are
// expanded as glob patterns.
func (s Source) Producer() (source.Producer, error) {
	switch s.Kind {
	case SourcePattern:
		return &source.Pattern{Width: s.Width, Height: s.Height, FPS: s.FPS}, nil
	case SourceSlideshow:
		paths, err := expand(s.Images)
		if err != nil {
			return nil, err
		}
		return &source.Slideshow{Paths: paths, Interval: s.Interval.Duration, Loop: s.Loop}, nil
	case SourceStill:
		paths, err := expand(s.Images)
		if err != nil {
			return nil, err
		}
		return &source.Still{Path: paths[0]}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalid, s.Kind)
	}
}

func expand(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		matches, err := source.Glob(p)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %v", source.ErrNoImages, patterns)
	}
	return out, nil
}

// Load returns the configured shader pair for lang, or the built-in pair
// when no files are set.
func (s Shaders) Load(lang camquad.ShaderLanguage) (vertex, fragment string, err error) {
	if s.Vertex == "" {
		vertex, fragment = camquad.DefaultShaders(lang)
		return vertex, fragment, nil
	}
	vs, err := os.ReadFile(filepath.Clean(s.Vertex))
	if err != nil {
		return "", "", fmt.Errorf("config: vertex shader: %w", err)
	}
	fs, err := os.ReadFile(filepath.Clean(s.Fragment))
	if err != nil {
		return "", "", fmt.Errorf("config: fragment shader: %w", err)
	}
	return string(vs), string(fs), nil
}

// SurfaceOptions converts the surface and shader settings to options for
// camquad.NewRenderSurface.
func (c Config) SurfaceOptions(vertex, fragment string) []camquad.SurfaceOption {
	cc := c.Surface.ClearColor
	opts := []camquad.SurfaceOption{
		camquad.WithClearColor(cc[0], cc[1], cc[2], cc[3]),
		camquad.WithShaders(vertex, fragment),
	}
	if c.Surface.BufferWidth > 0 {
		opts = append(opts, camquad.WithDefaultBufferSize(c.Surface.BufferWidth, c.Surface.BufferHeight))
	}
	return opts
}
