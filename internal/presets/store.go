package presets

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store hands out the current duration set. Swaps are whole-value, so a
// reader never observes a half-updated set.
type Store struct {
	cur atomic.Value // Durations
}

// NewStore creates a Store holding d.
func NewStore(d Durations) *Store {
	s := &Store{}
	s.cur.Store(d)
	return s
}

// Current returns the active duration set.
func (s *Store) Current() Durations { return s.cur.Load().(Durations) }

// Swap replaces the active duration set.
func (s *Store) Swap(d Durations) { s.cur.Store(d) }

// Watch reloads the store whenever the config file changes, until ctx is
// cancelled. load re-reads the file and returns the new duration block.
// Events are debounced: editors tend to fire several writes per save.
func (s *Store) Watch(ctx context.Context, path string, logger *slog.Logger, load func() (Durations, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: many editors replace the file on save, which
	// drops a watch registered on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	logger.Info("presets: watching", slog.String("path", target))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("presets: watcher stopped")
			return nil

		case <-reloadCh:
			d, loadErr := load()
			if loadErr != nil {
				logger.Warn("presets: reload failed", slog.String("error", loadErr.Error()))
				continue
			}
			s.Swap(d)
			logger.Info("presets: reloaded",
				slog.String("appear", d.Appear.String()),
				slog.String("remove", d.Remove.String()),
				slog.String("hide", d.Hide.String()))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("presets: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
