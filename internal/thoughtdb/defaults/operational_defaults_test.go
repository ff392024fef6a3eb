package defaults

import (
	"testing"

	"github.com/LinLinQiQi/mindcore/internal/paths"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

func TestAskWhenUncertainClaimTextRoundTrip(t *testing.T) {
	text := AskWhenUncertainClaimText(true)
	v, ok := parseAskWhenUncertain(text)
	if !ok || !v {
		t.Fatalf("expected ask=true to round-trip, got (%v, %v) from %q", v, ok, text)
	}
	text2 := AskWhenUncertainClaimText(false)
	v2, ok2 := parseAskWhenUncertain(text2)
	if !ok2 || v2 {
		t.Fatalf("expected ask=false to round-trip, got (%v, %v) from %q", v2, ok2, text2)
	}
}

func TestRefactorIntentClaimTextCoercesInvalid(t *testing.T) {
	text := RefactorIntentClaimText("nonsense")
	if parseRefactorIntent(text) != "behavior_preserving" {
		t.Fatalf("expected invalid refactor intent to coerce to behavior_preserving, got %q", text)
	}
}

func TestResolveOperationalDefaultsFallsBackToMindspecBase(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)

	base := map[string]any{"defaults": map[string]any{"refactor_intent": "behavior_changing", "ask_when_uncertain": false}}
	resolved, err := ResolveOperationalDefaults(tdb, base, "")
	if err != nil {
		t.Fatalf("ResolveOperationalDefaults: %v", err)
	}
	if resolved.RefactorIntent != "behavior_changing" || resolved.AskWhenUncertain != false {
		t.Fatalf("unexpected resolved defaults: %+v", resolved)
	}
}

func TestEnsureOperationalDefaultsClaimsCurrentSeedsAndDedupes(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	tdb := thoughtdb.NewStore(home, root)
	gp := paths.NewGlobalPaths(home)

	base := map[string]any{"defaults": map[string]any{"refactor_intent": "behavior_preserving", "ask_when_uncertain": true}}

	res1, err := EnsureOperationalDefaultsClaimsCurrent(gp.GlobalEvidenceLogPath(), tdb, base, "seed_missing", "", "")
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if !res1.Changed {
		t.Fatalf("expected first seed_missing call to write claims, got %+v", res1)
	}

	res2, err := EnsureOperationalDefaultsClaimsCurrent(gp.GlobalEvidenceLogPath(), tdb, base, "seed_missing", "", "")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if res2.Changed {
		t.Fatalf("expected second seed_missing call to be a no-op, got %+v", res2)
	}
}
