package watch

import "github.com/LinLinQiQi/mindcore/internal/thoughtdb"

// AttachToStore watches dir (one scope directory of store) and drops
// store's cached View for scope on every coalesced change, so a
// long-running process (such as an embedding agent loop) sees fresh data
// without polling. Purely a performance hint
// per §4.8/§12.1: store.LoadView's own metas check is the authoritative
// staleness detector whether or not a watcher is attached. The returned
// Watcher must be closed by the caller to stop the background goroutine.
func AttachToStore(dir string, store *thoughtdb.Store, scope string) (*Watcher, error) {
	w, err := NewWatcher(dir)
	if err != nil {
		return nil, err
	}
	go func() {
		for range w.Changes() {
			store.InvalidateCache(scope)
		}
	}()
	return w, nil
}
