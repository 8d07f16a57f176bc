package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SpoolWatcher watches the image spool directory and kicks the runner when
// new files land there, so queued uploads drain without waiting for the next
// periodic tick.
//
// Events are debounced: a burst of writes (a camera dump, a multi-image
// publish) produces one kick after the burst settles.
type SpoolWatcher struct {
	dir      string
	runner   *Runner
	logger   *zap.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   map[string]time.Time
}

// NewSpoolWatcher creates a watcher over dir. The directory is created if
// missing.
func NewSpoolWatcher(dir string, runner *Runner, debounce time.Duration, logger *zap.Logger) (*SpoolWatcher, error) {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &SpoolWatcher{
		dir:      dir,
		runner:   runner,
		logger:   logger,
		debounce: debounce,
		watcher:  watcher,
		pending:  make(map[string]time.Time),
	}, nil
}

// Start watches until ctx is cancelled.
func (sw *SpoolWatcher) Start(ctx context.Context) error {
	if err := sw.watcher.Add(sw.dir); err != nil {
		return fmt.Errorf("failed to watch spool directory %s: %w", sw.dir, err)
	}
	defer sw.watcher.Close()

	sw.logger.Info("watching image spool", zap.String("dir", sw.dir))

	ticker := time.NewTicker(sw.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isImageFile(event.Name) {
				continue
			}
			sw.queue(event.Name)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return nil
			}
			sw.logger.Warn("spool watcher error", zap.Error(err))

		case <-ticker.C:
			if sw.flush() {
				sw.runner.Kick()
			}
		}
	}
}

func (sw *SpoolWatcher) queue(path string) {
	sw.pendingMu.Lock()
	defer sw.pendingMu.Unlock()
	sw.pending[path] = time.Now()
}

// flush reports whether any queued file has settled past the debounce
// window, clearing those that did.
func (sw *SpoolWatcher) flush() bool {
	sw.pendingMu.Lock()
	defer sw.pendingMu.Unlock()

	now := time.Now()
	fired := false
	for path, queuedAt := range sw.pending {
		if now.Sub(queuedAt) < sw.debounce {
			continue
		}
		sw.logger.Debug("spooled image settled", zap.String("path", path))
		delete(sw.pending, path)
		fired = true
	}
	return fired
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic":
		return true
	}
	return false
}
