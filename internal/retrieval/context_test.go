package retrieval

import (
	"context"
	"testing"

	"github.com/LinLinQiQi/mindcore/internal/config"
	"github.com/LinLinQiQi/mindcore/internal/textindex"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb/defaults"
)

func budgets() config.RetrievalBudgets {
	return config.RetrievalBudgets{MaxNodes: 4, MaxValuesClaims: 3, MaxPrefGoalClaims: 3, MaxQueryClaims: 3, MaxEdges: 10}
}

func TestBuildDecideNextContextHonorsBudgetsAndPinnedTags(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	for i := 0; i < 5; i++ {
		if _, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{
			ClaimType: "fact", Text: "the widget pipeline uses postgres for storage", Scope: "project",
		}); err != nil {
			t.Fatalf("seed claim %d: %v", i, err)
		}
	}

	pinnedID, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{
		ClaimType: "preference", Text: defaults.AskWhenUncertainTag, Scope: "global",
		Tags: []string{defaults.AskWhenUncertainTag},
	})
	if err != nil {
		t.Fatalf("seed pinned claim: %v", err)
	}

	ctx, err := BuildDecideNextContext(context.Background(), tdb, "", "widget pipeline storage question", "", nil, nil, budgets())
	if err != nil {
		t.Fatalf("BuildDecideNextContext: %v", err)
	}

	if len(ctx.QueryClaims) > budgets().MaxQueryClaims {
		t.Fatalf("expected query claims capped at %d, got %d", budgets().MaxQueryClaims, len(ctx.QueryClaims))
	}

	found := false
	for _, c := range ctx.PrefGoalClaims {
		if c["claim_id"] == pinnedID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected pinned preference claim %s to surface in pref_goal_claims, got %+v", pinnedID, ctx.PrefGoalClaims)
	}
}

func TestBuildDecideNextContextEmptyStoreReturnsEmptyContext(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	ctx, err := BuildDecideNextContext(context.Background(), tdb, "2026-01-01T00:00:00Z", "", "", nil, nil, budgets())
	if err != nil {
		t.Fatalf("BuildDecideNextContext: %v", err)
	}
	if len(ctx.Nodes) != 0 || len(ctx.ValuesClaims) != 0 || len(ctx.PrefGoalClaims) != 0 || len(ctx.QueryClaims) != 0 || len(ctx.Edges) != 0 {
		t.Fatalf("expected empty context from empty store, got %+v", ctx)
	}
}

func TestBuildDecideNextContextSurfacesMemorySeededClaim(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	seededID, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{
		ClaimType: "fact", Text: "the deploy runbook lives in the ops repo", Scope: "project",
	})
	if err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	idx := textindex.NewIndex()
	idx.Add("claim:project:"+seededID, "claim", "project", "", "deploy runbook ops repo")

	ctx, err := BuildDecideNextContext(context.Background(), tdb, "", "where is the deploy runbook", "", nil, idx, budgets())
	if err != nil {
		t.Fatalf("BuildDecideNextContext: %v", err)
	}

	found := false
	for _, c := range ctx.QueryClaims {
		if c["claim_id"] == seededID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected memory-seeded claim %s in query_claims, got %+v", seededID, ctx.QueryClaims)
	}
}

func TestBuildDecideNextContextOneHopExpansionPullsInLinkedClaim(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	seedID, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{
		ClaimType: "fact", Text: "staging deploy uses blue green rollout", Scope: "project",
	})
	if err != nil {
		t.Fatalf("seed claim: %v", err)
	}
	linkedID, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{
		ClaimType: "fact", Text: "rollback requires the canary group to drain first", Scope: "project",
	})
	if err != nil {
		t.Fatalf("seed linked claim: %v", err)
	}
	if _, err := tdb.AppendEdge(thoughtdb.EdgeInput{
		EdgeType: "depends_on", FromID: seedID, ToID: linkedID, Scope: "project",
	}); err != nil {
		t.Fatalf("seed edge: %v", err)
	}

	ctx, err := BuildDecideNextContext(context.Background(), tdb, "", "staging deploy blue green rollout", "", nil, nil, budgets())
	if err != nil {
		t.Fatalf("BuildDecideNextContext: %v", err)
	}

	found := false
	for _, c := range ctx.QueryClaims {
		if c["claim_id"] == linkedID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected one-hop-expanded claim %s in query_claims, got %+v", linkedID, ctx.QueryClaims)
	}
}

func TestToPromptObjTruncatesQuery(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}
	ctx := Context{Query: string(long)}
	obj := ctx.ToPromptObj()
	q, ok := obj["query"].(string)
	if !ok || len(q) > 1200 {
		t.Fatalf("expected query truncated to <=1200 chars, got len=%d", len(q))
	}
}
