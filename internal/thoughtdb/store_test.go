package thoughtdb

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	home := t.TempDir()
	root := t.TempDir()
	return NewStore(home, root)
}

func TestAppendClaimCreateAndRetract(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AppendClaimCreate(ClaimInput{ClaimType: "fact", Text: "the sky is blue", Confidence: 0.9})
	if err != nil {
		t.Fatalf("AppendClaimCreate: %v", err)
	}

	view, err := s.LoadView("project")
	if err != nil {
		t.Fatalf("LoadView: %v", err)
	}
	if view.ClaimStatus(id) != "active" {
		t.Fatalf("expected active status, got %q", view.ClaimStatus(id))
	}

	if err := s.AppendClaimRetract(id, "project", "no longer true", nil); err != nil {
		t.Fatalf("AppendClaimRetract: %v", err)
	}

	view2, err := s.LoadView("project")
	if err != nil {
		t.Fatalf("LoadView after retract: %v", err)
	}
	if view2.ClaimStatus(id) != "retracted" {
		t.Fatalf("expected retracted status, got %q", view2.ClaimStatus(id))
	}
}

func TestAppendClaimCreateRejectsEmptyText(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AppendClaimCreate(ClaimInput{ClaimType: "fact", Text: "   "}); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestAppendClaimCreateCoercesInvalidClaimType(t *testing.T) {
	s := newTestStore(t)
	id, err := s.AppendClaimCreate(ClaimInput{ClaimType: "bogus", Text: "some text"})
	if err != nil {
		t.Fatalf("AppendClaimCreate: %v", err)
	}
	view, _ := s.LoadView("project")
	if view.ClaimsByID[id]["claim_type"] != "fact" {
		t.Fatalf("expected invalid claim_type coerced to fact, got %v", view.ClaimsByID[id]["claim_type"])
	}
}

func TestAppendNodeCreateRejectsInvalidNodeType(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AppendNodeCreate(NodeInput{NodeType: "bogus", Text: "do the thing"}); err == nil {
		t.Fatalf("expected error for invalid node_type")
	}
}

func TestAppendNodeCreateTitleDefaultAndClamp(t *testing.T) {
	s := newTestStore(t)
	longText := ""
	for i := 0; i < 30; i++ {
		longText += "word "
	}
	id, err := s.AppendNodeCreate(NodeInput{NodeType: "summary", Text: longText})
	if err != nil {
		t.Fatalf("AppendNodeCreate: %v", err)
	}
	view, _ := s.LoadView("project")
	title, _ := view.NodesByID[id]["title"].(string)
	if len(title) > titleMaxLen {
		t.Fatalf("expected title clamped to %d chars, got %d", titleMaxLen, len(title))
	}
}

func TestSameAsRedirectResolution(t *testing.T) {
	s := newTestStore(t)
	a, err := s.AppendClaimCreate(ClaimInput{ClaimType: "fact", Text: "claim a"})
	if err != nil {
		t.Fatalf("AppendClaimCreate a: %v", err)
	}
	b, err := s.AppendClaimCreate(ClaimInput{ClaimType: "fact", Text: "claim b"})
	if err != nil {
		t.Fatalf("AppendClaimCreate b: %v", err)
	}
	if _, err := s.AppendEdge(EdgeInput{EdgeType: "same_as", FromID: a, ToID: b}); err != nil {
		t.Fatalf("AppendEdge: %v", err)
	}

	view, err := s.LoadView("project")
	if err != nil {
		t.Fatalf("LoadView: %v", err)
	}
	if view.ResolveID(a) != b {
		t.Fatalf("expected ResolveID(a) == b, got %q", view.ResolveID(a))
	}
	claims := view.IterClaims(false, false, "")
	for _, c := range claims {
		if c["claim_id"] == a {
			t.Fatalf("expected aliased claim a to be excluded by default")
		}
	}
}

func TestViewSnapshotCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AppendClaimCreate(ClaimInput{ClaimType: "fact", Text: "one"}); err != nil {
		t.Fatalf("AppendClaimCreate: %v", err)
	}

	v1, err := s.LoadView("project")
	if err != nil {
		t.Fatalf("LoadView 1: %v", err)
	}

	// Force a fresh store (simulating a new process) to exercise the
	// on-disk snapshot path rather than the in-process cache.
	s2 := NewStore(s.projectPaths.HomeDir, s.projectPaths.ProjectRoot)
	v2, err := s2.LoadView("project")
	if err != nil {
		t.Fatalf("LoadView 2: %v", err)
	}
	if len(v2.ClaimsByID) != len(v1.ClaimsByID) {
		t.Fatalf("expected snapshot-loaded view to match: %d vs %d", len(v2.ClaimsByID), len(v1.ClaimsByID))
	}
}

func TestApplyMinedOutputDedupAndCrossScopeRejection(t *testing.T) {
	s := newTestStore(t)

	out := MinedOutput{
		Claims: []MinedClaim{
			{LocalID: "c1", ClaimType: "fact", Text: "prefers dark mode", Scope: "project", Confidence: 0.95, SourceEventIDs: []string{"ev_1"}},
			{LocalID: "c2", ClaimType: "fact", Text: "prefers dark mode", Scope: "project", Confidence: 0.91, SourceEventIDs: []string{"ev_1"}},
			{LocalID: "c3", ClaimType: "fact", Text: "uses vim keybindings", Scope: "global", Confidence: 0.92, SourceEventIDs: []string{"ev_1"}},
		},
		Edges: []MinedEdge{
			{EdgeType: "supports", FromClaimID: "c1", ToClaimID: "c3", Confidence: 0.9, SourceEventIDs: []string{"ev_1"}},
		},
	}

	res, err := s.ApplyMinedOutput(out, []string{"ev_1"}, 0.9, 10)
	if err != nil {
		t.Fatalf("ApplyMinedOutput: %v", err)
	}
	if len(res.Written) != 2 {
		t.Fatalf("expected 2 claims written (c1, c3), got %d: %+v", len(res.Written), res)
	}
	foundDupSkip := false
	for _, sk := range res.Skipped {
		if sk.Reason == "duplicate_signature" {
			foundDupSkip = true
		}
	}
	if !foundDupSkip {
		t.Fatalf("expected c2 to be skipped as duplicate_signature, got %+v", res.Skipped)
	}
	foundCrossScope := false
	for _, sk := range res.Skipped {
		if sk.Reason == "cross_scope" {
			foundCrossScope = true
		}
	}
	if !foundCrossScope {
		t.Fatalf("expected the c1->c3 edge to be skipped as cross_scope, got %+v", res.Skipped)
	}
	if len(res.WrittenEdges) != 0 {
		t.Fatalf("expected no edges written across scopes, got %+v", res.WrittenEdges)
	}
}

func TestApplyMinedOutputFiltersBySourceEventAllowList(t *testing.T) {
	s := newTestStore(t)
	out := MinedOutput{
		Claims: []MinedClaim{
			{LocalID: "c1", ClaimType: "fact", Text: "unauthorized claim", Confidence: 0.95, SourceEventIDs: []string{"ev_not_allowed"}},
		},
	}
	res, err := s.ApplyMinedOutput(out, []string{"ev_allowed"}, 0.9, 10)
	if err != nil {
		t.Fatalf("ApplyMinedOutput: %v", err)
	}
	if len(res.Written) != 0 {
		t.Fatalf("expected no claims written, got %+v", res.Written)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "no_valid_source_event_ids" {
		t.Fatalf("expected no_valid_source_event_ids skip, got %+v", res.Skipped)
	}
}

func TestClaimSignatureNormalizesText(t *testing.T) {
	a := claimSignature("fact", "project", "p1", "  Hello   World ")
	b := claimSignature("fact", "project", "p1", "hello world")
	if a != b {
		t.Fatalf("expected normalized-text signatures to match: %q vs %q", a, b)
	}
}

func TestMinVisibility(t *testing.T) {
	if got := minVisibility("project", "private"); got != "private" {
		t.Fatalf("expected private to win, got %q", got)
	}
	if got := minVisibility("global", "project"); got != "project" {
		t.Fatalf("expected project to win over global, got %q", got)
	}
	if got := minVisibility("bogus", "project"); got != "project" {
		t.Fatalf("expected invalid input to default to project, got %q", got)
	}
}

func TestFollowRedirectsBreaksOnCycle(t *testing.T) {
	redirects := map[string]string{"a": "b", "b": "a"}
	got := followRedirects("a", redirects, maxRedirectHops)
	if got != "a" && got != "b" {
		t.Fatalf("expected cycle to terminate at a or b, got %q", got)
	}
}
