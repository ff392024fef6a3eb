package watch

import (
	"testing"
	"time"

	"github.com/LinLinQiQi/mindcore/internal/paths"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

func TestAttachToStoreInvalidatesCacheOnChange(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	store := thoughtdb.NewStore(home, project)
	dir := paths.NewProjectPaths(home, project).ThoughtdbDir()

	if _, err := store.AppendClaimCreate(thoughtdb.ClaimInput{
		ClaimType: "fact", Text: "initial claim", Scope: "project",
	}); err != nil {
		t.Fatalf("seed claim: %v", err)
	}
	if _, err := store.LoadView("project"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	w, err := AttachToStore(dir, store, "project")
	if err != nil {
		t.Fatalf("AttachToStore: %v", err)
	}
	defer w.Close()

	if _, err := store.AppendClaimCreate(thoughtdb.ClaimInput{
		ClaimType: "fact", Text: "second claim", Scope: "project",
	}); err != nil {
		t.Fatalf("append second claim: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, err := store.LoadView("project")
		if err != nil {
			t.Fatalf("LoadView: %v", err)
		}
		if len(view.IterClaims(false, false, "")) == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected the view to observe the second claim within the deadline")
}
