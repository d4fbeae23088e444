// ABOUTME: Reloads the library when the catalog file changes
// ABOUTME: Watches the catalog directory via fsnotify with a short debounce
package server

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const catalogDebounce = 200 * time.Millisecond

// catalogWatcher monitors the catalog file and hands reloads to the request loop
type catalogWatcher struct {
	srv  *Server
	path string

	mu       sync.Mutex
	debounce *time.Timer
}

func newCatalogWatcher(srv *Server) *catalogWatcher {
	return &catalogWatcher{srv: srv, path: filepath.Clean(srv.config.CatalogPath)}
}

// Run watches the catalog directory until ctx ends. Editors often replace
// files by rename, so the directory is watched rather than the file.
func (w *catalogWatcher) Run(ctx context.Context) {
	log := w.srv.log.With().Str("component", "catalog").Str("path", w.path).Logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("failed to create watcher")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		log.Warn().Err(err).Msg("failed to watch catalog directory")
		return
	}
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("op", event.Op.String()).Msg("catalog changed")
			w.debounceReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *catalogWatcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(catalogDebounce, w.srv.loadCatalog)
}

func (w *catalogWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
}
