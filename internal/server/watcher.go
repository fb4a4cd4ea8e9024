package server

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/export"
)

// Watcher watches the three project files of a directory and reports edits.
type Watcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	onChange func(kind tinkerpen.Kind, path string) error
	done     chan struct{}
	debug    bool
}

// NewWatcher creates a watcher for the project in rootDir. The directory
// itself is watched so that editors that save by renaming are picked up.
func NewWatcher(rootDir string, onChange func(tinkerpen.Kind, string) error, debug bool) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsWatcher.Add(rootDir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", rootDir, err)
	}
	if debug {
		log.Printf("[Watch] Added directory: %s", rootDir)
	}

	return &Watcher{
		watcher:  fsWatcher,
		rootDir:  rootDir,
		onChange: onChange,
		done:     make(chan struct{}),
		debug:    debug,
	}, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(event)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Watch] Error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	kind, ok := export.KindForFile(event.Name)
	if !ok {
		return
	}

	if w.debug {
		log.Printf("[Watch] %s: %s", event.Op, filepath.Base(event.Name))
	}

	if err := w.onChange(kind, event.Name); err != nil {
		log.Printf("[Watch] Reload failed for %s: %v", filepath.Base(event.Name), err)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
