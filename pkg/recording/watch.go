package recording

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports changes to the set of recordings in the storage directory
// (another dashboard saving, the CLI deleting) until ctx is done. Events are
// coalesced: changed has room for one pending notification and further
// events are dropped while it is full.
//
// The directory must exist; call EnsureDir first.
func (m *Manager) Watch(ctx context.Context, changed chan<- struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(m.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != fileExt {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case changed <- struct{}{}:
			default:
			}
		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
		}
	}
}
