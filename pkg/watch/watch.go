// Package watch reports when a single file is saved.
package watch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher observes the directory holding a file so that editors which save
// by writing a temp file and renaming it over the original are still seen.
type Watcher struct {
	path   string
	fw     *fsnotify.Watcher
	events chan struct{}
}

// New starts watching path. The file does not have to exist yet.
func New(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "watching %s", filepath.Dir(abs))
	}
	return &Watcher{
		path:   abs,
		fw:     fw,
		events: make(chan struct{}, 1),
	}, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Events delivers one value per batch of saves. Saves that arrive while a
// value is still pending are merged into it.
func (w *Watcher) Events() <-chan struct{} { return w.events }

// Run forwards save events until ctx is done or the watcher fails. It
// returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				w.notify()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			// dropped events may have included a save
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.notify()
				continue
			}
			return errors.Wrapf(err, "watching %s", w.path)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

func (w *Watcher) Close() error {
	return errors.Wrap(w.fw.Close(), "closing watcher")
}
