package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/othala/internal/index"
)

const watchDebounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the directory backend's data root and
// reconciles a workspace whenever its content files change underneath the
// service (external editors, sync tools). Events are debounced per pass:
// changed workspaces are collected and reconciled together once the
// filesystem settles. The KV backend has no external edit path, so Watch is
// only started when the directory backend is selected.
func Watch(ctx context.Context, svc *Service, root string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	// Watch existing workspace directories.
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			if addErr := w.Add(filepath.Join(root, e.Name())); addErr != nil {
				logger.Warn("watcher: add dir failed",
					slog.String("path", e.Name()), slog.String("error", addErr.Error()))
			}
		}
	}

	logger.Info("watcher: started", slog.String("root", root))

	dirty := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(watchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for ws := range dirty {
				delete(dirty, ws)
				if _, err := svc.Reconcile(ctx, ws); err != nil {
					logger.Warn("watcher: reconcile failed",
						slog.String("workspace", ws), slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || rel == "." || strings.HasPrefix(rel, ".") {
				continue
			}
			ws := rel
			if i := strings.IndexByte(rel, os.PathSeparator); i >= 0 {
				ws = rel[:i]
			}

			// A new workspace directory needs its own watch.
			if ev.Op&fsnotify.Create != 0 && ws == rel {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.Add(ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			// Skip in-flight temp files and index rewrites we made ourselves.
			base := filepath.Base(rel)
			if strings.HasPrefix(base, ".") || base == index.Key {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				dirty[ws] = struct{}{}
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
