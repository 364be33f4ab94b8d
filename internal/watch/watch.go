// Package watch delivers frame files as they appear in an input directory.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"marker-locator/internal/raster"

	"github.com/fsnotify/fsnotify"
)

// Handler processes one frame file. It runs on the watcher's goroutine, so
// frames are handled one at a time in arrival order.
type Handler func(path string) error

// Watcher watches a directory for new frame files. A file is handed to the
// handler once it has seen no write for the settle period, so partially
// written captures are not read.
type Watcher struct {
	dir    string
	settle time.Duration
	accept func(path string) bool

	onFrame Handler
	onError func(path string, err error)
}

// New creates a watcher for dir. Files are accepted when
// raster.IsSupportedFormat reports true.
func New(dir string, settle time.Duration) *Watcher {
	return &Watcher{
		dir:    dir,
		settle: settle,
		accept: raster.IsSupportedFormat,
	}
}

// OnFrame sets the frame handler.
func (w *Watcher) OnFrame(h Handler) {
	w.onFrame = h
}

// OnError sets a callback for handler failures. Without one, failures are
// logged and watching continues.
func (w *Watcher) OnError(fn func(path string, err error)) {
	w.onError = fn
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run blocks until ctx is done or the underlying watcher fails. Files
// already present when Run starts are delivered first, sorted by name.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	existing, err := w.scan()
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.deliver(path)
	}

	tick := w.settle / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					delete(pending, ev.Name)
				}
				continue
			}
			if w.accept(ev.Name) {
				pending[ev.Name] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher failed: %w", err)

		case now := <-ticker.C:
			for _, path := range ready(pending, now, w.settle) {
				delete(pending, path)
				w.deliver(path)
			}
		}
	}
}

// ready returns the pending paths whose last write is older than settle,
// oldest first.
func ready(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var out []string
	for path, at := range pending {
		if now.Sub(at) >= settle {
			out = append(out, path)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := pending[out[i]], pending[out[j]]
		if ti.Equal(tj) {
			return out[i] < out[j]
		}
		return ti.Before(tj)
	})
	return out
}

func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", w.dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if w.accept(path) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (w *Watcher) deliver(path string) {
	if w.onFrame == nil {
		return
	}
	if err := w.onFrame(path); err != nil {
		if w.onError != nil {
			w.onError(path, err)
			return
		}
		log.Printf("Watch: %s: %v", filepath.Base(path), err)
	}
}
