// Package watch reports changes to a single file on disk, rate-limited so
// a tool that writes a file in several quick syscalls doesn't produce a
// storm of events.
package watch

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// Event is sent when the watched path is written, created or renamed.
type Event struct {
	Path string
}

// Watcher tracks a single file of interest at a time; swapping the
// watched path (as the user moves the selection) simply re-registers
// fsnotify's watch rather than keeping every previously-viewed file open.
type Watcher struct {
	fsw     *fsnotify.Watcher
	limiter *rate.Limiter
	events  chan Event
	current string
	done    chan struct{}
}

// New starts a Watcher whose events are rate-limited to at most one every
// 150ms: the first change is reported at once and further changes within
// that window are dropped, so a save done as a temp-file write followed by
// a rename yields one event.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:     fsw,
		limiter: rate.NewLimiter(rate.Every(150*time.Millisecond), 1),
		events:  make(chan Event, 4),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Events returns the channel of debounced settle notifications.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// SetPath switches the watch to track path, removing any previous watch.
func (w *Watcher) SetPath(path string) error {
	if w.current != "" {
		w.fsw.Remove(w.current)
	}
	w.current = path
	if path == "" {
		return nil
	}
	return w.fsw.Add(path)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.limiter.Allow() {
				continue
			}
			select {
			case w.events <- Event{Path: ev.Name}:
			default:
			}
		case <-w.fsw.Errors:
			// Surfacing watch errors to the UI isn't worth the
			// complexity; a stale preview just won't refresh until the
			// next selection change re-registers the watch.
		case <-w.done:
			return
		}
	}
}
