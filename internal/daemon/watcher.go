package daemon

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// inboxEvent reports a backup document that appeared in, changed in or
// left the inbox.
type inboxEvent struct {
	path string
	gone bool
}

// inboxWatcher turns fsnotify events on the inbox directory into
// inboxEvents for *.json files directly inside it. Subdirectories such as
// processed/ are ignored.
type inboxWatcher struct {
	fs     *fsnotify.Watcher
	dir    string
	events chan inboxEvent
	errs   chan error
}

func newInboxWatcher() (*inboxWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &inboxWatcher{
		fs:     fs,
		events: make(chan inboxEvent, 100),
		errs:   make(chan error, 10),
	}, nil
}

// watch starts receiving events for dir.
func (w *inboxWatcher) watch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := w.fs.Add(abs); err != nil {
		return fmt.Errorf("failed to watch inbox %s: %w", dir, err)
	}
	w.dir = abs
	return nil
}

// run forwards translated events until ctx is done or the fsnotify watcher
// is closed. Both output channels are closed on return.
func (w *inboxWatcher) run(ctx context.Context) {
	defer close(w.errs)
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			ie, keep := w.translate(ev)
			if !keep {
				continue
			}
			select {
			case w.events <- ie:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *inboxWatcher) close() error {
	return w.fs.Close()
}

func (w *inboxWatcher) translate(ev fsnotify.Event) (inboxEvent, bool) {
	if filepath.Ext(ev.Name) != ".json" {
		return inboxEvent{}, false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil || filepath.Dir(abs) != w.dir {
		return inboxEvent{}, false
	}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return inboxEvent{path: abs}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// A rename's new name arrives as its own Create.
		return inboxEvent{path: abs, gone: true}, true
	}
	return inboxEvent{}, false
}
