package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher watches the profiles directory and the active pointer file,
// signaling on Changed whenever either is modified. This feeds the same
// internal reload path the control channel's "reload" op already drives
// (spec §6); it never bypasses profile validation or the last-good-on-error
// policy in §7.
type Watcher struct {
	fsw     *fsnotify.Watcher
	Changed chan struct{}
}

// WatchProfiles starts watching the store's profiles directory.
func WatchProfiles(s *Store, log *logrus.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(s.ProfilesDir); err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(s.ConfigDir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, Changed: make(chan struct{}, 1)}
	go w.run(log)
	return w, nil
}

func (w *Watcher) run(log *logrus.Logger) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.Changed <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if log != nil {
				log.Warnf("config watcher error: %v", err)
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
