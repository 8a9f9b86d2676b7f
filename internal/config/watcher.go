package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a configuration file for writes and invokes a
// callback when one occurs. Editors that replace a file via
// rename-into-place are handled by watching the containing directory
// and filtering events down to the target file.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// newWatcher starts watching path and calls onChange after each write
// or rename event that resolves to path.
func newWatcher(path string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	target := filepath.Clean(path)
	w := &Watcher{fsw: fsw, done: make(chan struct{})}

	go func() {
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange()
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watch and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
