package schema

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher watches a directory of schema JSON documents and reloads any
// file that is written or created, mirroring the teacher's fsnotify-driven
// recompile loop in cmd/sprocket but reloading schema docs through
// SchemaCore.Load instead of recompiling protobuf.
type DirWatcher struct {
	watcher *fsnotify.Watcher
	core    *SchemaCore
	onError func(path string, err error)
	done    chan struct{}
}

// WatchDirOption configures a DirWatcher at construction.
type WatchDirOption func(*DirWatcher)

// WithWatchErrorHandler installs a callback invoked whenever an auto-reload
// of a changed file fails to parse or load.
func WithWatchErrorHandler(f func(path string, err error)) WatchDirOption {
	return func(w *DirWatcher) { w.onError = f }
}

// WatchDir watches dir for *.json schema documents being written or
// created and reloads them into core as they change. The watch is
// non-recursive: it matches the teacher's single-directory storage layout.
func WatchDir(dir string, core *SchemaCore, opts ...WatchDirOption) (*DirWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &DirWatcher{
		watcher: fw,
		core:    core,
		onError: func(string, error) {},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w, nil
}

func (w *DirWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Ext(event.Name) != ".json" {
				continue
			}
			if err := w.reload(event.Name); err != nil {
				w.onError(event.Name, err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onError("", err)
		}
	}
}

func (w *DirWatcher) reload(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc Schema
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return w.core.Load(&doc)
}

// Close stops the watch and releases the underlying inotify/kqueue handle.
func (w *DirWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
