package rules

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the catalog watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// CatalogWatcher reloads a rule catalog into a provider whenever the file
// changes. The parent directory is watched so that editors which replace the
// file by rename are picked up.
type CatalogWatcher struct {
	path     string
	provider *Provider
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewCatalogWatcher creates a watcher. A nil logger uses slog.Default().
func NewCatalogWatcher(path string, provider *Provider, logger *slog.Logger) *CatalogWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogWatcher{
		path:     filepath.Clean(path),
		provider: provider,
		logger:   logger,
		debounce: DefaultDebounce,
	}
}

// Reload parses the catalog and loads it into the provider.
func (w *CatalogWatcher) Reload(ctx context.Context) error {
	rs, err := LoadCatalog(w.path)
	if err != nil {
		return err
	}
	return w.provider.Load(ctx, rs)
}

// Watch blocks until ctx is cancelled, reloading the catalog on change.
// A failed reload is logged and the previous rules stay in place.
func (w *CatalogWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	w.logger.Info("rule catalog watcher started", "path", w.path, "debounce_ms", w.debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			w.logger.Info("rule catalog watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("rule catalog watcher error", "error", err)
		}
	}
}

func (w *CatalogWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.Reload(ctx); err != nil {
			w.logger.Error("rule catalog reload failed", "path", w.path, "error", err)
			return
		}
		w.logger.Info("rule catalog reloaded", "path", w.path)
	})
}

func (w *CatalogWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
