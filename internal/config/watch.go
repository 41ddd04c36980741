package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watcher signals on C after the config file is written, created or
// replaced. Bursts of events within the quiet period signal once.
//
// The parent directory is watched rather than the file, so editors that
// save through a rename and files created after start are both seen.
type Watcher struct {
	C <-chan struct{}

	path     string
	c        chan struct{}
	fs       *fsnotify.Watcher
	debounce func(func())
	log      *zap.SugaredLogger

	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher watches path. Its directory must exist.
func NewWatcher(path string, quiet time.Duration, log *zap.SugaredLogger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	path = filepath.Clean(path)

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create config watcher")
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(path))
	}

	c := make(chan struct{}, 1)
	return &Watcher{
		C:        c,
		path:     path,
		c:        c,
		fs:       fs,
		debounce: debounce.New(quiet),
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// Start begins delivering events in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop releases the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fs.Close()
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.debounce(w.signal)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warnw("config: watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) signal() {
	select {
	case <-w.done:
	case w.c <- struct{}{}:
	default:
	}
}
