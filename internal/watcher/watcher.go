// Package watcher monitors the registry root for release changes and
// notifies listeners via callbacks.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// EventType represents the type of registry change.
type EventType int

// Registry change event types.
const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

// Event describes a change under the registry root. Version is empty when
// the change happened at the crate level.
type Event struct {
	Type    EventType
	Crate   string
	Version string
}

// Callback is a function called when the registry changes.
type Callback func(Event)

// Watcher monitors crate and version directories under the registry root.
// Only the top two directory levels are watched; source trees below a
// release are immutable once published.
type Watcher struct {
	watcher   *fsnotify.Watcher
	root      string
	log       *logrus.Logger
	callbacks []Callback
	mu        sync.RWMutex
	done      chan struct{}
}

// New creates a watcher for the given registry root.
func New(root string, log *logrus.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}

	return &Watcher{
		watcher: w,
		root:    root,
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

// OnChange registers a callback for registry change events.
func (w *Watcher) OnChange(cb Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching the registry root, its crate directories, and their
// version directories.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.root); err != nil {
		return err
	}

	crateDirs, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, crateDir := range crateDirs {
		if !crateDir.IsDir() {
			continue
		}
		cratePath := filepath.Join(w.root, crateDir.Name())
		if err := w.watcher.Add(cratePath); err != nil {
			w.log.Warnf("cannot watch %s: %v", cratePath, err)
			continue
		}

		versionDirs, err := os.ReadDir(cratePath)
		if err != nil {
			continue
		}
		for _, versionDir := range versionDirs {
			if !versionDir.IsDir() {
				continue
			}
			versionPath := filepath.Join(cratePath, versionDir.Name())
			if err := w.watcher.Add(versionPath); err != nil {
				w.log.Warnf("cannot watch %s: %v", versionPath, err)
			}
		}
	}

	go w.eventLoop()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(rel, string(filepath.Separator))

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreate
		// New crate or version directory: start watching it
		if len(parts) <= 2 && isDir(event.Name) {
			_ = w.watcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventWrite
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventRename
	default:
		return
	}

	e := Event{Type: eventType, Crate: parts[0]}
	if len(parts) > 1 {
		e.Version = parts[1]
	}

	w.mu.RLock()
	callbacks := make([]Callback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(e)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
