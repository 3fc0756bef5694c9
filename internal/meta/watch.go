package meta

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch emits a signal whenever the metadata document changes on disk,
// so observers can refresh listings edited from outside this process.
// The watcher stops when ctx is cancelled. Events are coalesced: a
// slow consumer sees at least one signal per burst of writes.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the document: editors replace files by
	// rename, which would silently detach a file-level watch.
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, err
	}

	ch := make(chan struct{}, 1)
	target := filepath.Base(s.Path())

	go func() {
		defer watcher.Close()
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Debug("Metadata watcher error", "error", err)
			}
		}
	}()

	return ch, nil
}
