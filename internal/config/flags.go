package config

import (
	"flag"
	"strings"
	"time"
)

// flagValues holds the flag targets. Each one starts at the default so
// -help prints useful values.
type flagValues struct {
	config   *string
	width    *int
	height   *int
	source   *string
	images   *string
	fps      *int
	interval *time.Duration
	vertex   *string
	fragment *string
	watch    *bool
	verbose  *bool
}

func register(fs *flag.FlagSet, def Config) *flagValues {
	return &flagValues{
		config:   fs.String("config", "", "TOML configuration file"),
		width:    fs.Int("width", def.Window.Width, "window width"),
		height:   fs.Int("height", def.Window.Height, "window height"),
		source:   fs.String("source", def.Source.Kind, "frame source: pattern, slideshow or still"),
		images:   fs.String("images", "", "comma-separated image paths or glob patterns"),
		fps:      fs.Int("fps", def.Source.FPS, "pattern frame rate"),
		interval: fs.Duration("interval", def.Source.Interval.Duration, "slideshow interval"),
		vertex:   fs.String("vertex", "", "vertex shader file"),
		fragment: fs.String("fragment", "", "fragment shader file"),
		watch:    fs.Bool("watch", true, "reload shader files when they change"),
		verbose:  fs.Bool("v", false, "verbose logging"),
	}
}

// Parse parses args, loads the -config file if one is named, and applies
// every flag that was set explicitly on top of it. The result is validated.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	f := register(fs, Default())
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *f.config != "" {
		var err error
		if cfg, err = Load(*f.config); err != nil {
			return Config{}, err
		}
	}
	f.apply(fs, &cfg)
	if cfg.Shaders.Vertex == "" {
		cfg.Shaders.Watch = false
	}
	return cfg, cfg.Validate()
}

func (f *flagValues) apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "width":
			cfg.Window.Width = *f.width
		case "height":
			cfg.Window.Height = *f.height
		case "source":
			cfg.Source.Kind = *f.source
		case "images":
			cfg.Source.Images = splitList(*f.images)
		case "fps":
			cfg.Source.FPS = *f.fps
		case "interval":
			cfg.Source.Interval = Duration{*f.interval}
		case "vertex":
			cfg.Shaders.Vertex = *f.vertex
			cfg.Shaders.Watch = *f.watch
		case "fragment":
			cfg.Shaders.Fragment = *f.fragment
			cfg.Shaders.Watch = *f.watch
		case "watch":
			cfg.Shaders.Watch = *f.watch
		case "v":
			cfg.Verbose = *f.verbose
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
