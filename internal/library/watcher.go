package library

import (
	"fmt"
	"os"
	"time"

	"kestrel/internal/log"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies when a project's image directory changes on disk, so
// the session can refresh its item list without polling. Events are
// debounced: a burst of writes from one generation collapses into a
// single notification.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	changes   chan struct{}
	stop      chan struct{}
	debounce  time.Duration
}

// NewWatcher creates a watcher. Call Watch to point it at a directory and
// Close when done.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fsWatcher: fsw,
		changes:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
		debounce:  300 * time.Millisecond,
	}
	go w.run()
	return w, nil
}

// Watch replaces the watched directory with dir. The previous directory,
// if any, stops being watched; switching projects reuses one watcher.
func (w *Watcher) Watch(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	for _, old := range w.fsWatcher.WatchList() {
		if err := w.fsWatcher.Remove(old); err != nil {
			log.Warn("failed to unwatch %s: %v", old, err)
		}
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Debug("watching %s", dir)
	return nil
}

// Changes delivers one value per debounced burst of directory activity.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher and releases the underlying inotify resources.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.fsWatcher.Close()
}

func (w *Watcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error: %v", err)
		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}
