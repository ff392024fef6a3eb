package subgraph

import (
	"testing"

	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

func TestBuildSubgraphWalksOneHop(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	c1, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{ClaimType: "fact", Text: "root claim", Scope: "project"})
	if err != nil {
		t.Fatalf("create c1: %v", err)
	}
	c2, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{ClaimType: "fact", Text: "supporting claim", Scope: "project"})
	if err != nil {
		t.Fatalf("create c2: %v", err)
	}
	if _, err := tdb.AppendEdge(thoughtdb.EdgeInput{EdgeType: "supports", FromID: c2, ToID: c1, Scope: "project"}); err != nil {
		t.Fatalf("append edge: %v", err)
	}

	sg, err := BuildSubgraph(tdb, Options{Scope: "project", RootID: c1, Depth: 1, Direction: "both"})
	if err != nil {
		t.Fatalf("BuildSubgraph: %v", err)
	}

	if sg.RootIDCanonical != c1 {
		t.Fatalf("expected root canonical %s, got %s", c1, sg.RootIDCanonical)
	}
	if len(sg.Claims) != 2 {
		t.Fatalf("expected 2 claims (root + neighbor), got %d: %+v", len(sg.Claims), sg.Claims)
	}
	if len(sg.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d: %+v", len(sg.Edges), sg.Edges)
	}
}

func TestBuildSubgraphDepthZeroReturnsOnlyRoot(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	c1, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{ClaimType: "fact", Text: "lonely claim", Scope: "project"})
	if err != nil {
		t.Fatalf("create c1: %v", err)
	}

	sg, err := BuildSubgraph(tdb, Options{Scope: "project", RootID: c1, Depth: 0})
	if err != nil {
		t.Fatalf("BuildSubgraph: %v", err)
	}
	if len(sg.Claims) != 1 || len(sg.Edges) != 0 {
		t.Fatalf("expected only the root claim at depth 0, got claims=%d edges=%d", len(sg.Claims), len(sg.Edges))
	}
}

func TestBuildSubgraphUnknownRootIsMissing(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	sg, err := BuildSubgraph(tdb, Options{Scope: "project", RootID: "cl_doesnotexist", Depth: 1})
	if err != nil {
		t.Fatalf("BuildSubgraph: %v", err)
	}
	if len(sg.Claims) != 0 || len(sg.Nodes) != 0 {
		t.Fatalf("expected no materialized entities for unknown root, got claims=%d nodes=%d", len(sg.Claims), len(sg.Nodes))
	}
	if len(sg.MissingIDs) != 1 || sg.MissingIDs[0] != "cl_doesnotexist" {
		t.Fatalf("expected missing_ids=[cl_doesnotexist], got %+v", sg.MissingIDs)
	}
}
