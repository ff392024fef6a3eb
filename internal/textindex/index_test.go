package textindex

import (
	"context"
	"testing"
)

func TestIndexSearchRanksByTokenOverlap(t *testing.T) {
	idx := NewIndex()
	idx.Add("claim:project:a", "claim", "project", "proj1", "prefers dark mode for the editor")
	idx.Add("claim:project:b", "claim", "project", "proj1", "uses vim keybindings in the editor")
	idx.Add("claim:project:c", "claim", "project", "proj1", "unrelated note about lunch")

	hits, err := idx.Search(context.Background(), "editor keybindings", 10, nil, true, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) < 2 {
		t.Fatalf("expected at least 2 hits, got %v", hits)
	}
	if hits[0].ItemID != "claim:project:b" {
		t.Fatalf("expected b to rank first (2 token hits), got %v", hits)
	}
}

func TestIndexSearchFiltersByKindAndGlobal(t *testing.T) {
	idx := NewIndex()
	idx.Add("claim:project:a", "claim", "project", "proj1", "postgres migration failed")
	idx.Add("node:project:b", "node", "project", "proj1", "postgres migration runbook")
	idx.Add("claim:global:c", "claim", "global", "", "postgres migration policy")

	claimsOnly, err := idx.Search(context.Background(), "postgres migration", 10, []string{"claim"}, true, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range claimsOnly {
		if h.Kind != "claim" {
			t.Fatalf("expected only claim hits, got %+v", h)
		}
	}

	noGlobal, err := idx.Search(context.Background(), "postgres migration", 10, nil, false, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range noGlobal {
		if h.Scope == "global" {
			t.Fatalf("expected global hits excluded, got %+v", h)
		}
	}
}

func TestIndexSearchExcludesProjectID(t *testing.T) {
	idx := NewIndex()
	idx.Add("claim:project:a", "claim", "project", "proj1", "staging deploy uses blue green")
	idx.Add("claim:project:b", "claim", "project", "proj2", "staging deploy uses blue green")

	hits, err := idx.Search(context.Background(), "staging deploy", 10, nil, true, "proj1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.ProjectID == "proj1" {
			t.Fatalf("expected proj1 docs excluded, got %+v", h)
		}
	}
	if len(hits) != 1 || hits[0].ItemID != "claim:project:b" {
		t.Fatalf("expected only proj2's claim, got %v", hits)
	}
}

func TestIndexSearchCapsAtTopK(t *testing.T) {
	idx := NewIndex()
	for _, id := range []string{"a", "b", "c", "d"} {
		idx.Add("claim:project:"+id, "claim", "project", "proj1", "widget pipeline storage")
	}
	hits, err := idx.Search(context.Background(), "widget pipeline storage", 2, nil, true, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected topK=2 hits, got %d", len(hits))
	}
}
