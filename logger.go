package camquad

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// attached holds the backends handed to render surfaces so that later
// SetLogger calls reach them too.
var (
	attachedMu sync.Mutex
	attached   = make(map[Backend]int)
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for camquad and every backend that has
// been attached to a RenderSurface. By default camquad produces no output.
//
// Pass nil to restore the silent default.
//
// Log levels used by camquad:
//   - [slog.LevelError]: shader compile and program link failures
//   - [slog.LevelWarn]: resource creation failures, lifecycle misuse
//   - [slog.LevelInfo]: surface lifecycle transitions
//   - [slog.LevelDebug]: per-frame diagnostics
//
// Example:
//
//	camquad.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	attachedMu.Lock()
	defer attachedMu.Unlock()
	for b := range attached {
		propagateLogger(b, l)
	}
}

// Logger returns the current logger used by camquad.
// Backend packages call this to share the same logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// attachBackend remembers b for logger propagation and hands it the
// current logger. Attachments are counted so a backend shared by several
// surfaces stays registered until the last one detaches. Backends whose
// dynamic type is not comparable only receive the current logger.
func attachBackend(b Backend) {
	if hashable(b) {
		attachedMu.Lock()
		attached[b]++
		attachedMu.Unlock()
	}
	propagateLogger(b, Logger())
}

// detachBackend drops one attachment of b.
func detachBackend(b Backend) {
	if !hashable(b) {
		return
	}
	attachedMu.Lock()
	defer attachedMu.Unlock()
	if attached[b] <= 1 {
		delete(attached, b)
		return
	}
	attached[b]--
}

func hashable(b Backend) bool {
	return b != nil && reflect.TypeOf(b).Comparable()
}
