package storage

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 50 * time.Millisecond

// Watcher reports changes to a [File] document made by any process.
//
// The parent directory is watched rather than the file, since every write replaces the
// file through a rename. Bursts of events are coalesced by a debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	name     string
	debounce time.Duration
	onChange func()
	onError  func(error)

	mu     sync.Mutex
	timer  *time.Timer
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// WatchFile starts watching f. onChange runs on the watcher goroutine after each
// debounced burst; onError, when non-nil, receives fsnotify errors.
func WatchFile(f *File, debounce time.Duration, onChange func(), onError func(error)) (*Watcher, error) {
	if f == nil {
		return nil, errors.New("nil file backend")
	}
	if onChange == nil {
		return nil, errors.New("nil change callback")
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(f.Path())); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		name:     filepath.Base(f.Path()),
		debounce: debounce,
		onChange: onChange,
		onError:  onError,
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	w.onChange()
}

// Close stops the watcher. Pending debounced callbacks are dropped.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
