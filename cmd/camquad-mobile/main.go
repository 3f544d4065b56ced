// Command camquad-mobile runs the test card on a full-screen quad through
// OpenGL ES, for Android and iOS builds made with gomobile.
//
// Each time the app becomes visible a new GL context arrives, so the
// surface and its producer are rebuilt from scratch.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"golang.org/x/mobile/app"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/gl"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/backend"
	_ "github.com/gogpu/camquad/backend/gles"
	"github.com/gogpu/camquad/internal/config"
	"github.com/gogpu/camquad/source"
)

// session is the surface state for one visible period.
type session struct {
	rs     *camquad.RenderSurface
	cancel context.CancelFunc
	w, h   int
}

func start(glctx gl.Context, cfg config.Config) (*session, error) {
	b, err := backend.Get(backend.BackendGLES, glctx)
	if err != nil {
		return nil, err
	}
	producer, err := cfg.Source.Producer()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	rs, err := camquad.NewRenderSurface(b, cfg.SurfaceOptions("", "")...)
	if err != nil {
		cancel()
		return nil, err
	}
	rs.OnSurfaceCreated()
	if st := rs.Stream(); st != nil {
		go feed(ctx, producer, st)
	}
	return &session{rs: rs, cancel: cancel}, nil
}

func feed(ctx context.Context, p source.Producer, st *camquad.StreamingTexture) {
	err := p.Run(ctx, st)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, camquad.ErrStreamClosed) {
		camquad.Logger().Error("camquad: source", "err", err)
	}
}

func (s *session) paint(sz size.Event) {
	if sz.WidthPx != s.w || sz.HeightPx != s.h {
		s.w, s.h = sz.WidthPx, sz.HeightPx
		s.rs.OnSurfaceChanged(s.w, s.h)
	}
	s.rs.OnDrawFrame()
}

func (s *session) stop() {
	s.cancel()
	s.rs.OnSurfaceDestroyed()
}

func main() {
	camquad.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	cfg := config.Default()

	app.Main(func(a app.App) {
		var (
			s  *session
			sz size.Event
		)
		for e := range a.Events() {
			switch e := a.Filter(e).(type) {
			case lifecycle.Event:
				switch e.Crosses(lifecycle.StageVisible) {
				case lifecycle.CrossOn:
					glctx, ok := e.DrawContext.(gl.Context)
					if !ok {
						continue
					}
					var err error
					if s, err = start(glctx, cfg); err != nil {
						camquad.Logger().Error("camquad: start", "err", err)
						continue
					}
					a.Send(paint.Event{})
				case lifecycle.CrossOff:
					if s != nil {
						s.stop()
						s = nil
					}
				}
			case size.Event:
				sz = e
			case paint.Event:
				if s == nil || e.External {
					continue
				}
				s.paint(sz)
				a.Publish()
				a.Send(paint.Event{})
			}
		}
	})
}
