package prompts

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the library's override pack when the file changes on
// disk, so prompt tweaks do not require a restart.
type Watcher struct {
	library *Library
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching the library's pack file. Returns an error if
// the pack path is unset or the watch cannot be established.
func NewWatcher(library *Library) (*Watcher, error) {
	if library.packPath == "" {
		return nil, fmt.Errorf("prompt library has no override pack to watch")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save.
	if err := fsw.Add(filepath.Dir(library.packPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch prompt pack dir: %w", err)
	}

	w := &Watcher{library: library, watcher: fsw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	target := filepath.Clean(w.library.packPath)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.library.Reload(); err != nil {
				log.Printf("[prompts] reload after %s failed: %v", event.Op, err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[prompts] watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
