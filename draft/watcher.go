package draft

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/shockz09/pdfmark/observability"
)

// Watcher signals when the draft file backing a DiskStore key changes on
// disk, so another window editing the same draft can offer a reload. Events
// are coalesced; callers should compare the loaded draft's SavedAt against
// their own last save to skip self-inflicted notifications.
type Watcher struct {
	fw   *fsnotify.Watcher
	C    chan struct{}
	done chan struct{}
}

// NewWatcher watches the file behind key in store.
func NewWatcher(store *DiskStore, key string, log observability.Logger) (*Watcher, error) {
	if log == nil {
		log = observability.NopLogger{}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	target := store.Path(key)
	// Watch the directory: the atomic rename in Set replaces the file node,
	// and a watch on the file itself would be dropped with it.
	if err := fw.Add(filepath.Dir(target)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch draft directory: %w", err)
	}

	w := &Watcher{fw: fw, C: make(chan struct{}, 1), done: make(chan struct{})}
	go w.run(target, log)
	return w, nil
}

func (w *Watcher) run(target string, log observability.Logger) {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Name != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.C <- struct{}{}:
			default: // a notification is already pending
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn("draft watcher error", observability.Error("err", err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
