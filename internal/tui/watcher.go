package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces the bursts of events a single atomic save produces.
const debounce = 100 * time.Millisecond

// QueueWatcher reports writes to the queue file.
//
// The parent directory is watched rather than the file: saves replace the
// file by rename, which would drop a watch placed on the file itself.
type QueueWatcher struct {
	watcher *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
	exited  chan struct{}
	name    string
	once    sync.Once
}

// NewQueueWatcher starts watching the directory that holds path.
func NewQueueWatcher(path string) (*QueueWatcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &QueueWatcher{
		watcher: watcher,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		name:    filepath.Base(path),
	}
	go w.loop()
	return w, nil
}

// Changes receives one value per debounced burst of writes. It is closed
// once the watcher stops.
func (w *QueueWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher and closes the Changes channel. It is safe to call
// more than once.
func (w *QueueWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		<-w.exited
	})
	return err
}

func (w *QueueWatcher) loop() {
	defer close(w.exited)
	defer close(w.changes)

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-w.done:
			timer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
				// A notification is already pending
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
