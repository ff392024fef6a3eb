package whytrace

import (
	"context"
	"testing"

	"github.com/LinLinQiQi/mindcore/internal/mindprovider"
	"github.com/LinLinQiQi/mindcore/internal/textindex"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

func TestQueryFromEvidenceEventShapesByKind(t *testing.T) {
	q := QueryFromEvidenceEvent(map[string]any{"kind": "evidence", "facts": []any{"a", "b"}, "results": []any{"c"}})
	if q != "a b c" {
		t.Fatalf("expected %q, got %q", "a b c", q)
	}

	q2 := QueryFromEvidenceEvent(map[string]any{"kind": "hands_input", "input": "do the thing"})
	if q2 != "do the thing" {
		t.Fatalf("expected hands_input text, got %q", q2)
	}
}

func TestCollectCandidateClaimsPrefersEventCitations(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	citing, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{
		ClaimType: "fact", Text: "postgres migration failed on staging", Scope: "project",
		SourceEventIDs: []string{"ev_run_000001"},
	})
	if err != nil {
		t.Fatalf("create citing claim: %v", err)
	}

	idx := textindex.NewIndex()
	idx.Add("claim:project:"+citing, "claim", "project", "", "postgres migration failed on staging")

	out, err := CollectCandidateClaims(context.Background(), tdb, idx, "postgres migration", 12, "ev_run_000001")
	if err != nil {
		t.Fatalf("CollectCandidateClaims: %v", err)
	}
	if len(out) != 1 || out[0]["claim_id"] != citing {
		t.Fatalf("expected the citing claim first, got %+v", out)
	}
}

func TestRunWhyTraceFiltersToChosenCandidatesAndMaterializesEdges(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	cid, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{ClaimType: "fact", Text: "deploy uses blue/green", Scope: "project"})
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}
	candidates := []map[string]any{{"claim_id": cid, "visibility": "project"}}

	provider := mindprovider.NewMockProvider()
	if err := provider.SetResponse("why_trace", map[string]any{
		"status": "ok", "confidence": 0.9, "chosen_claim_ids": []string{cid, "cl_not_a_candidate"},
		"explanation": "matches", "notes": "",
	}); err != nil {
		t.Fatalf("SetResponse: %v", err)
	}

	outcome, err := RunWhyTrace(context.Background(), provider, tdb, map[string]any{"event_id": "ev_run_000002"}, candidates, "", "ev_run_000002", 0.7)
	if err != nil {
		t.Fatalf("RunWhyTrace: %v", err)
	}

	chosen, _ := outcome.Obj["chosen_claim_ids"].([]any)
	if len(chosen) != 1 || chosen[0] != cid {
		t.Fatalf("expected non-candidate id filtered out, got %+v", chosen)
	}
	if len(outcome.WrittenEdgeIDs) != 1 {
		t.Fatalf("expected one materialized edge, got %+v", outcome.WrittenEdgeIDs)
	}
}

func TestRunWhyTraceSkipsMaterializationBelowConfidenceThreshold(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	cid, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{ClaimType: "fact", Text: "low confidence claim", Scope: "project"})
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}
	candidates := []map[string]any{{"claim_id": cid, "visibility": "project"}}

	provider := mindprovider.NewMockProvider()
	if err := provider.SetResponse("why_trace", map[string]any{
		"status": "ok", "confidence": 0.2, "chosen_claim_ids": []string{cid},
	}); err != nil {
		t.Fatalf("SetResponse: %v", err)
	}

	outcome, err := RunWhyTrace(context.Background(), provider, tdb, map[string]any{"event_id": "ev_run_000003"}, candidates, "", "ev_run_000003", 0.7)
	if err != nil {
		t.Fatalf("RunWhyTrace: %v", err)
	}
	if len(outcome.WrittenEdgeIDs) != 0 {
		t.Fatalf("expected no materialized edges below confidence threshold, got %+v", outcome.WrittenEdgeIDs)
	}
}
