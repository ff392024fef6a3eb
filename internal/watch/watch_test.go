package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherCoalescesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	claimsPath := filepath.Join(dir, "claims.jsonl")
	if err := os.WriteFile(claimsPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("seed claims.jsonl: %v", err)
	}

	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(claimsPath, []byte("{}\n{}\n"), 0o644); err != nil {
			t.Fatalf("rewrite claims.jsonl: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a coalesced change notification")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	unrelated := filepath.Join(dir, "notes.txt")

	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(unrelated, []byte("hi"), 0o644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	select {
	case <-w.Changes():
		t.Fatalf("did not expect a notification for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}
