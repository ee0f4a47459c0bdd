package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quarrydocs/quarry/internal/logger"
)

// debounceWindow coalesces rapid write events: editors commonly emit
// several writes (or a rename plus a write) for a single save.
const debounceWindow = 200 * time.Millisecond

// Watch reloads the config store whenever its file changes on disk and
// invokes onReload after each successful reload. It blocks until ctx is
// cancelled.
//
// The parent directory is watched rather than the file itself so that
// atomic-rename saves keep working.
func (s *ConfigStore) Watch(ctx context.Context, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		return err
	}

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.filePath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounceWindow)
			pending = timer.C

		case <-pending:
			pending = nil
			if err := s.Load(); err != nil {
				logger.Warn("Config reload failed: %v", err)
				continue
			}
			logger.Debug("Config reloaded from %s", s.filePath)
			if onReload != nil {
				onReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher: %v", err)
		}
	}
}
