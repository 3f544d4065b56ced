// Command camquad shows a live frame source on a full-window textured quad.
//
// Usage:
//
//	camquad [-config camquad.toml] [-source pattern|slideshow|still]
//	        [-images 'shots/*.png'] [-fps 30] [-vertex quad_vs.wgsl -fragment quad_fs.wgsl]
//	        [-headless -frames 30 -out frame.png] [-v]
//
// Shader files given with -vertex and -fragment are watched and reloaded
// while the window is open.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/backend"
	wgpubackend "github.com/gogpu/camquad/backend/wgpu"
	"github.com/gogpu/camquad/internal/config"
	"github.com/gogpu/camquad/source"
)

var (
	headless = flag.Bool("headless", false, "render offscreen on Vulkan instead of opening a window")
	frames   = flag.Int("frames", 30, "frames to render in headless mode")
	output   = flag.String("out", "camquad.png", "PNG written by headless mode")
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("camquad: %v", err)
	}
	setupLogging(cfg.Verbose)

	producer, err := cfg.Source.Producer()
	if err != nil {
		log.Fatalf("camquad: source: %v", err)
	}

	if *headless {
		err = runHeadless(cfg, producer, *frames, *output)
	} else {
		err = runWindow(cfg, producer)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	camquad.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// runProducer feeds st until ctx is done or the producer finishes.
func runProducer(ctx context.Context, p source.Producer, st *camquad.StreamingTexture) {
	err := p.Run(ctx, st)
	switch {
	case err == nil:
		camquad.Logger().Info("camquad: source finished")
	case errors.Is(err, context.Canceled), errors.Is(err, camquad.ErrStreamClosed):
	default:
		camquad.Logger().Error("camquad: source", "err", err)
	}
}

func runWindow(cfg config.Config, producer source.Producer) error {
	vs, fs, err := cfg.Shaders.Load(camquad.LanguageWGSL)
	if err != nil {
		return err
	}

	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle(cfg.Window.Title).
		WithSize(cfg.Window.Width, cfg.Window.Height).
		WithContinuousRender(true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		b       *wgpubackend.Backend
		rs      *camquad.RenderSurface
		watcher *shaderWatcher
		w, h    int
		warned  bool
	)

	app.OnDraw(func(dc *gogpu.Context) {
		if rs == nil {
			provider := app.GPUContextProvider()
			if provider == nil {
				return
			}
			if b, rs, err = newSurface(provider, cfg, vs, fs, func(st *camquad.StreamingTexture) {
				go runProducer(ctx, producer, st)
			}); err != nil {
				log.Fatalf("camquad: %v", err)
			}
			rs.OnSurfaceCreated()
			if cfg.Shaders.Watch {
				if watcher, err = watchShaders(ctx, cfg.Shaders, rs.ReloadShaders); err != nil {
					camquad.Logger().Warn("camquad: shader watch disabled", "err", err)
				}
			}
		}

		sw, sh := dc.SurfaceSize()
		view, ok := any(dc.SurfaceView()).(hal.TextureView)
		if !ok && !warned {
			warned = true
			camquad.Logger().Warn("camquad: host surface view is not a HAL texture view, frames are dropped")
		}
		if ok {
			b.SetTarget(view, int(sw), int(sh))
		}
		if int(sw) != w || int(sh) != h {
			w, h = int(sw), int(sh)
			rs.OnSurfaceChanged(w, h)
		}
		rs.OnDrawFrame()
	})

	app.EventSource().OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		if key == gpucontext.KeySpace && rs != nil {
			st := rs.Stats()
			camquad.Logger().Info("camquad: stats",
				"drawn", st.FramesDrawn, "uploaded", st.FramesUploaded, "skipped", st.SkippedDraws)
		}
	})

	app.OnClose(func() {
		cancel()
		if watcher != nil {
			_ = watcher.Close()
		}
		if rs != nil {
			rs.OnSurfaceDestroyed()
		}
		if b != nil {
			b.Release()
		}
	})

	return app.Run()
}

// newSurface builds the wgpu backend on the host device and a surface
// using it.
func newSurface(provider gpucontext.DeviceProvider, cfg config.Config, vs, fs string,
	onReady func(*camquad.StreamingTexture)) (*wgpubackend.Backend, *camquad.RenderSurface, error) {
	cb, err := backend.Get(wgpubackend.Name, provider)
	if err != nil {
		return nil, nil, err
	}
	b := cb.(*wgpubackend.Backend)
	opts := append(cfg.SurfaceOptions(vs, fs), camquad.WithTextureReadyFunc(onReady))
	rs, err := camquad.NewRenderSurface(b, opts...)
	if err != nil {
		b.Release()
		return nil, nil, err
	}
	return b, rs, nil
}
