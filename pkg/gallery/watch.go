package gallery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Watcher drops cached metadata and thumbnails of pictures that change on disk.
type Watcher struct {
	root   string
	md     *Cache
	thumbs *Thumbnailer
	w      *fsnotify.Watcher
}

// NewWatcher watches root and every directory below it.
func NewWatcher(root string, md *Cache, thumbs *Thumbnailer) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}

	dirs := 0
	err = walkDirs(root, func(dir string) error {
		dirs++
		return w.Add(dir)
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	klog.Infof("watching %d dirs ...", dirs)
	return &Watcher{root: root, md: md, thumbs: thumbs, w: w}, nil
}

// Run processes filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			klog.Warningf("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	klog.V(1).Infof("event: %s", event)
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	if event.Has(fsnotify.Create) {
		if st, err := os.Stat(event.Name); err == nil && st.IsDir() && !hidden(filepath.Base(event.Name)) {
			klog.Infof("watching new dir %s", event.Name)
			if err := w.w.Add(event.Name); err != nil {
				klog.Warningf("unable to watch %s: %v", event.Name, err)
			}
			return
		}
	}

	if !isPicture(event.Name) {
		return
	}

	w.md.Forget(event.Name)
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		klog.Warningf("rel %s: %v", event.Name, err)
		return
	}
	w.thumbs.Forget(filepath.ToSlash(rel))
}
