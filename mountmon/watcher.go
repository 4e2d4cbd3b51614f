package mountmon

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher watches a configuration file and emits its path on Reloads
// whenever the file is written or recreated. It watches the parent
// directory rather than the file itself, so editors that replace the file
// (rename-over-write) don't silently detach the watch.
type Watcher struct {
	Reloads chan string

	w    *fsnotify.Watcher
	j    Journaler
	path string
}

// TryWatchConfig attempts to watch the given config file asynchronously,
// journaling a warning instead of failing if the watch cannot be
// established. Daemon reload is a convenience, not a hard requirement.
func TryWatchConfig(ctx context.Context, path string, j Journaler) *Watcher {
	w := newWatcher(path, j)

	go func() {
		if err := w.init(); err != nil {
			j.Write(&EventWarning{
				Component: "watcher",
				Error:     fmt.Sprintf("not watching config because: %v", err),
			})
			return
		}

		w.watch(ctx)
	}()

	return w
}

func newWatcher(path string, j Journaler) *Watcher {
	return &Watcher{
		Reloads: make(chan string),
		j:       j,
		path:    filepath.Clean(path),
	}
}

func (w *Watcher) init() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return errors.Wrap(err, "failed to watch config directory")
	}

	w.w = watcher
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	defer w.w.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-w.w.Errors:
			w.j.Write(&EventWarning{
				Component: "watcher",
				Error:     "inotify error: " + err.Error(),
			})

		case evt := <-w.w.Events:
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			select {
			case w.Reloads <- w.path:
			case <-ctx.Done():
				return
			}
		}
	}
}
