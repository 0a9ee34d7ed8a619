// Package watch triggers batch runs when rasters appear in the source tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cogify/internal/logging"
	"cogify/internal/scan"
)

// DefaultDebounce is the quiet period after the last matching event before
// the handler fires. Large rasters are written in many chunks.
const DefaultDebounce = 2 * time.Second

const tickInterval = 100 * time.Millisecond

// Handler receives the rasters that changed during one quiet period.
type Handler func(ctx context.Context, changed []string) error

// Option adjusts a Watcher.
type Option func(*Watcher)

// WithInitialRun makes Run call the handler once with no changed paths as
// soon as the directory watches are registered. Rasters written while that
// call is in progress trigger a follow-up call.
func WithInitialRun() Option {
	return func(w *Watcher) { w.initialRun = true }
}

// Watcher observes a source directory tree.
type Watcher struct {
	root       string
	opts       scan.Options
	debounce   time.Duration
	handler    Handler
	logger     *slog.Logger
	initialRun bool

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher over root. Files are matched with the same options
// the scanner uses, and excluded directories are never watched.
func New(root string, opts scan.Options, debounce time.Duration, handler Handler, logger *slog.Logger, options ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch handler is nil")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		root:     abs,
		opts:     opts,
		debounce: debounce,
		handler:  handler,
		logger:   logging.NewComponentLogger(logger, "watch"),
		pending:  make(map[string]time.Time),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled or the handler returns an error.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching source directory",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("source_dir", w.root),
		logging.Duration("debounce", w.debounce),
	)

	if w.initialRun {
		w.logger.Info("starting initial batch", logging.String(logging.FieldEventType, "watch_initial"))
		if err := w.handler(ctx, nil); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stop"))
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			w.handleEvent(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			logging.WarnWithContext(w.logger, "watch error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches if events overflow"),
				logging.String(logging.FieldImpact, "some new rasters may be picked up on the next change"),
			)
		case now := <-ticker.C:
			changed := w.due(now)
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("rasters changed; starting batch",
				logging.String(logging.FieldEventType, "watch_trigger"),
				logging.Int("files", len(changed)),
			)
			if err := w.handler(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if w.excluded(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", logging.String("dir", event.Name), logging.Error(err))
			}
			return
		}
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || !scan.Matches(rel, w.opts) {
		return
	}
	w.logger.Debug("raster event", logging.String(logging.FieldFile, event.Name), logging.String("op", event.Op.String()))
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// due returns pending paths once every one of them has been quiet for the
// debounce period, and clears them.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	for _, last := range w.pending {
		if now.Sub(last) < w.debounce {
			return nil
		}
	}
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]time.Time)
	sort.Strings(changed)
	return changed
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	for _, dir := range w.opts.Exclude {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
