// Package watcher reports batches of changed source files under a project
// root.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"rectify/internal/trace"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a directory tree. fsnotify is not recursive, so every
// directory is added on its own, including ones created later.
type Watcher struct {
	root     string
	debounce time.Duration
	accept   func(rel string) bool
	skipDir  func(rel string) bool
	fsw      *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter keeps only files for which accept returns true. rel is
// slash-separated and relative to the root.
func WithFilter(accept func(rel string) bool) Option {
	return func(w *Watcher) { w.accept = accept }
}

// WithSkipDir prunes directories; the default skips target, .git and
// dot-directories.
func WithSkipDir(skip func(rel string) bool) Option {
	return func(w *Watcher) { w.skipDir = skip }
}

func defaultSkipDir(rel string) bool {
	base := filepath.Base(rel)
	return rel != "." && (base == "target" || len(base) > 1 && base[0] == '.')
}

// New starts watching root.
func New(root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	w := &Watcher{
		root:     abs,
		debounce: DefaultDebounce,
		accept:   func(rel string) bool { return filepath.Ext(rel) == ".rs" },
		skipDir:  defaultSkipDir,
	}
	for _, opt := range opts {
		opt(w)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create: %w", err)
	}
	w.fsw = fsw
	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// каталог мог исчезнуть между событием и обходом
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipDir(w.rel(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watcher: watch %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers sorted batches of changed files to onChange until ctx ends.
// onChange runs on the watching goroutine; events arriving meanwhile are
// queued for the next batch.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	defer w.fsw.Close()
	tracer := trace.FromContext(ctx)

	pending := make(map[string]struct{})
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			trace.Point(tracer, trace.ScopeRun, "watch.error", err.Error(), 0)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			clear(pending)
			slices.Sort(batch)
			onChange(ctx, batch)
		}
	}
}

// relevant filters ev and starts watching new directories.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	rel := w.rel(ev.Name)
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if !w.skipDir(rel) {
				_ = w.addTree(ev.Name)
			}
			return false
		}
	}
	return w.accept(rel)
}
