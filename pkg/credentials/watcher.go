package credentials

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/exportwins/winsmi/pkg/observability"
)

// Watcher reloads a Store when its credentials file changes
type Watcher struct {
	path     string
	store    *Store
	logger   *observability.Logger
	onReload func(error)
	ready    chan struct{}
}

// NewWatcher creates a watcher for path feeding store
func NewWatcher(path string, store *Store, logger *observability.Logger) *Watcher {
	return &Watcher{
		path:   filepath.Clean(path),
		store:  store,
		logger: logger.WithField("credentials_file", path),
		ready:  make(chan struct{}),
	}
}

// OnReload registers a callback invoked after every reload attempt
func (w *Watcher) OnReload(fn func(error)) {
	w.onReload = fn
}

// Ready is closed once the watch is established
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Reload reads the file and replaces the store contents.
// On error the store keeps its previous credentials.
func (w *Watcher) Reload() error {
	creds, err := LoadFile(w.path)
	if err == nil {
		err = w.store.Replace(creds)
	}

	if err != nil {
		w.logger.WithError(err).Error("Credentials reload failed, keeping previous set")
	} else {
		w.logger.Infof("Loaded %d Hawk credentials", len(creds))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
	return err
}

// Run watches the directory holding the file until ctx is cancelled.
// The directory is watched rather than the file so editor renames and
// Kubernetes ConfigMap symlink swaps are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debugf("Credentials file event: %s", event.Op)
			w.Reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Credentials watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == w.path || filepath.Base(name) == "..data"
}
