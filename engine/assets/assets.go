package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/resources"
)

// DefaultDebounce is how long a path has to stay quiet before it is reported.
const DefaultDebounce = 200 * time.Millisecond

// FnOnFileChanged receives the paths that were created or written.
type FnOnFileChanged func(path string)

/**
 * @brief Watches the resource tree recursively and reports every created or
 * written file once its writes settle. The callback runs on a timer
 * goroutine, it must hand the path over to the engine loop.
 */
type Watcher struct {
	root     string
	debounce time.Duration
	onChange FnOnFileChanged

	mutex    sync.Mutex
	timers   map[string]*time.Timer
	isClosed bool

	fsnotify *fsnotify.Watcher
}

func NewWatcher(root string, debounce time.Duration, onChange FnOnFileChanged) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("the watcher needs a callback")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		onChange: onChange,
		timers:   make(map[string]*time.Timer),
		fsnotify: fsWatch,
	}, nil
}

// Initialize starts watching the root and all of its sub-directories.
func (w *Watcher) Initialize() error {
	return w.addRecursive(w.root, false)
}

// addRecursive starts watching the named directory and all sub-directories.
func (w *Watcher) addRecursive(name string, report bool) error {
	if w.closed() {
		return errors.New("watcher already closed")
	}
	return w.watchRecursive(name, report)
}

/**
 * @brief Forwards file system events until ctx is done or the watcher is
 * closed.
 */
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return nil
			}
			w.handleEvent(e)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return nil
			}
			core.LogError("watcher : %s", err.Error())

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			// files can land in a new directory before its watch exists
			if err := w.addRecursive(e.Name, true); err != nil {
				core.LogError("watcher : %s", err.Error())
			}
			return
		}
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		w.schedule(e.Name)
	}
	// Can't stat a deleted path, it is dropped from the watch list in case it was a directory.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cancel(e.Name)
		_ = w.fsnotify.Remove(e.Name)
	}
}

// watchRecursive adds all directories under path to the watch list. When
// report is set the files found on the way are scheduled as well.
func (w *Watcher) watchRecursive(path string, report bool) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsnotify.Add(walkPath)
		}
		if report {
			w.schedule(walkPath)
		}
		return nil
	})
}

// schedule reports path once no new event arrived for it during the debounce window.
func (w *Watcher) schedule(path string) {
	if filepath.Ext(path) == resources.MetaFileExt {
		return
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isClosed {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mutex.Lock()
		delete(w.timers, path)
		closed := w.isClosed
		w.mutex.Unlock()
		if !closed {
			core.LogDebug("file changed : %s", path)
			w.onChange(path)
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) closed() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.isClosed
}

// Close stops the pending reports and releases the fsnotify watcher.
func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return nil
	}
	w.isClosed = true
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mutex.Unlock()
	return w.fsnotify.Close()
}
