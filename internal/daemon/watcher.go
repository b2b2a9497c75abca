package daemon

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fileWatcher signals when the ledger's backing file may have changed.
// It watches the parent directory so atomic renames and SQLite's -wal and
// -journal siblings are seen too.
type fileWatcher struct {
	fsw     *fsnotify.Watcher
	base    string
	changed chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func watchFile(path string) (*fileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &fileWatcher{
		fsw:     fsw,
		base:    filepath.Base(path),
		changed: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changed receives a value after one or more relevant writes. Bursts
// coalesce into a single signal.
func (w *fileWatcher) Changed() <-chan struct{} {
	return w.changed
}

func (w *fileWatcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				select {
				case w.changed <- struct{}{}:
				default:
				}
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.stop:
			return
		}
	}
}

func (w *fileWatcher) relevant(event fsnotify.Event) bool {
	if !strings.HasPrefix(filepath.Base(event.Name), w.base) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

// Close stops the watcher and waits for its goroutine.
func (w *fileWatcher) Close() {
	w.once.Do(func() {
		close(w.stop)
		_ = w.fsw.Close()
		w.wg.Wait()
	})
}
