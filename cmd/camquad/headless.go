package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/camquad"
	wgpubackend "github.com/gogpu/camquad/backend/wgpu"
	"github.com/gogpu/camquad/internal/config"
	"github.com/gogpu/camquad/source"
)

var errNoVulkan = errors.New("camquad: vulkan backend not available")

// runHeadless renders n frames into an offscreen texture and writes the
// last one to out as PNG.
func runHeadless(cfg config.Config, producer source.Producer, n int, out string) error {
	api, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return errNoVulkan
	}
	b, err := wgpubackend.NewOffscreen(api, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return fmt.Errorf("camquad: offscreen: %w", err)
	}
	defer b.Release()
	return renderFrames(b, cfg, producer, n, out)
}

// renderFrames drives a RenderSurface on an offscreen backend. The producer
// runs on its own goroutine as it would under a window.
func renderFrames(b *wgpubackend.Backend, cfg config.Config, producer source.Producer, n int, out string) error {
	vs, fs, err := cfg.Shaders.Load(b.Language())
	if err != nil {
		return err
	}
	rs, err := camquad.NewRenderSurface(b, cfg.SurfaceOptions(vs, fs)...)
	if err != nil {
		return err
	}
	defer rs.OnSurfaceDestroyed()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rs.OnSurfaceCreated()
	rs.OnSurfaceChanged(cfg.Window.Width, cfg.Window.Height)
	if st := rs.Stream(); st != nil {
		go runProducer(ctx, producer, st)
	}
	for range n {
		rs.OnDrawFrame()
	}

	img := b.Pixels()
	if img == nil {
		return errors.New("camquad: no frame was read back")
	}
	f, err := os.Create(filepath.Clean(out))
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	st := rs.Stats()
	camquad.Logger().Info("camquad: wrote frame", "path", out,
		"drawn", st.FramesDrawn, "uploaded", st.FramesUploaded)
	return f.Close()
}
