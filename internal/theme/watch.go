package theme

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay debounces bursts of writes from editors that save in steps.
const reloadDelay = 150 * time.Millisecond

// Watch reloads the registry whenever the theme file at path changes, until
// ctx is cancelled. The parent folder is watched so atomic replace-by-rename
// saves are seen too. Invalid files are logged and the previous set kept.
func (r *Registry) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}
	name := filepath.Clean(path)
	r.logger.Info("theme watcher: started", slog.String("path", name))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDelay)
			fire = timer.C
			return
		}
		timer.Reset(reloadDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			r.logger.Info("theme watcher: stopped")
			return nil

		case <-fire:
			if err := r.Load(ctx); err != nil {
				r.logger.Warn("theme watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			r.logger.Info("theme watcher: reloaded", slog.String("path", name))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("theme watcher: error", slog.String("error", werr.Error()))
		}
	}
}
