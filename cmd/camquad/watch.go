package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/internal/config"
)

// settleDelay coalesces the burst of events an editor save produces.
const settleDelay = 100 * time.Millisecond

// shaderWatcher reloads a shader pair when either file changes. It watches
// the parent directories so files replaced by rename are still seen.
type shaderWatcher struct {
	watcher *fsnotify.Watcher
	shaders config.Shaders
	files   map[string]bool
	reload  func(vertex, fragment string)
	done    chan struct{}
}

func watchShaders(ctx context.Context, shaders config.Shaders, reload func(vertex, fragment string)) (*shaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	sw := &shaderWatcher{
		watcher: watcher,
		shaders: shaders,
		files:   make(map[string]bool),
		reload:  reload,
		done:    make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, f := range []string{shaders.Vertex, shaders.Fragment} {
		f = filepath.Clean(f)
		sw.files[f] = true
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}
	go sw.run(ctx)
	return sw, nil
}

func (sw *shaderWatcher) run(ctx context.Context) {
	defer close(sw.done)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settleDelay)
			} else {
				timer.Reset(settleDelay)
			}
			fire = timer.C
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			camquad.Logger().Warn("camquad: shader watch", "err", err)
		case <-fire:
			fire = nil
			sw.load()
		}
	}
}

func (sw *shaderWatcher) relevant(event fsnotify.Event) bool {
	if !sw.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Rename == fsnotify.Rename
}

// load reads both files and hands them to reload. A half-written pair
// that fails to read is skipped; the next event retries.
func (sw *shaderWatcher) load() {
	vs, fs, err := sw.shaders.Load(camquad.LanguageWGSL)
	if err != nil {
		camquad.Logger().Warn("camquad: shader reload", "err", err)
		return
	}
	camquad.Logger().Info("camquad: shader files changed, reloading")
	sw.reload(vs, fs)
}

// Close stops watching and waits for the event loop to exit.
func (sw *shaderWatcher) Close() error {
	err := sw.watcher.Close()
	<-sw.done
	return err
}
