// Package watch provides a performance-hint-only filesystem watcher for a
// ThoughtDB scope directory. It is never load-bearing: a Store's own
// snapshot/mtime check in LoadView remains the authoritative way to detect
// staleness whether or not a Watcher is attached. Grounded on the teacher's
// cmd/bd/daemon_watcher.go FileWatcher, adapted from watching one JSONL path
// to the fixed claims/nodes/edges/snapshot set of a single scope directory,
// and simplified from its log-dedup/polling-fallback machinery to a plain
// debounced change channel.
package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 200 * time.Millisecond

// Watcher coalesces rapid-fire writes to a ThoughtDB scope directory's JSONL
// files and snapshot into a single pending notification on Changes().
type Watcher struct {
	fsw     *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
}

// NewWatcher watches dir (a ThoughtDB scope directory) for changes to
// claims.jsonl, nodes.jsonl, edges.jsonl, and view.snapshot.json.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch.NewWatcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch.NewWatcher: add %s: %w", dir, err)
	}

	w := &Watcher{
		fsw:     fsw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop(dir)
	return w, nil
}

// Changes emits a coalesced signal after one or more relevant writes settle
// for debounceWindow. The channel is buffered to 1: a pending signal is
// never lost, but bursts of writes produce at most one notification.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop(dir string) {
	watched := map[string]bool{
		filepath.Join(dir, "claims.jsonl"):       true,
		filepath.Join(dir, "nodes.jsonl"):        true,
		filepath.Join(dir, "edges.jsonl"):        true,
		filepath.Join(dir, "view.snapshot.json"): true,
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !watched[ev.Name] {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			timerC = timer.C
		case <-timerC:
			select {
			case w.changes <- struct{}{}:
			default:
			}
			timerC = nil
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}
