// Package watcher reloads the query snapshot when index artifacts change on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"scriptdex/internal/application/common/slogger"
)

// DefaultDebounce is how long the watcher waits after the last artifact event before
// reloading. A full build rewrites a dozen files in a burst.
const DefaultDebounce = 500 * time.Millisecond

// DefaultPattern matches artifact file names. Temp files written before the atomic
// rename start with a dot or end in .tmp and never match.
const DefaultPattern = "scriptdex_*.{json,sqlite}"

// ErrNotDirectory is returned when the watched path is not a directory.
var ErrNotDirectory = errors.New("watch path is not a directory")

// ReloadFunc swaps in a freshly loaded snapshot.
type ReloadFunc func(ctx context.Context) error

// Config configures a Watcher.
type Config struct {
	Dir      string
	Pattern  string
	Debounce time.Duration
}

// Watcher debounces artifact writes in one directory into reload calls.
type Watcher struct {
	cfg     Config
	match   glob.Glob
	reload  ReloadFunc
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	reloads int
}

// New creates a watcher on cfg.Dir. The directory must exist.
func New(cfg Config, reload ReloadFunc) (*Watcher, error) {
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", cfg.Dir, ErrNotDirectory)
	}
	match, err := glob.Compile(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact pattern %q: %w", cfg.Pattern, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(cfg.Dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{cfg: cfg, match: match, reload: reload, watcher: fw}, nil
}

// Run consumes events until ctx is cancelled, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	slogger.Info(ctx, "Watching index directory", slogger.Fields{
		"dir":         w.cfg.Dir,
		"pattern":     w.cfg.Pattern,
		"debounce_ms": w.cfg.Debounce.Milliseconds(),
	})
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				w.schedule(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slogger.Warn(ctx, "Index watcher error", slogger.Field("error", err.Error()))
		}
	}
}

// Reloads returns how many reloads the watcher has triggered.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return w.match.Match(filepath.Base(ev.Name))
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.mu.Lock()
		w.reloads++
		w.mu.Unlock()
		if err := w.reload(ctx); err != nil {
			slogger.ErrorWithError(ctx, err, "Hot reload failed, keeping previous snapshot", slogger.Field("dir", w.cfg.Dir))
			return
		}
		slogger.Info(ctx, "Hot reload complete", slogger.Field("dir", w.cfg.Dir))
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}
