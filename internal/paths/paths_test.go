package paths

import (
	"path/filepath"
	"testing"
)

func TestProjectIDForIdentityKeyDeterministic(t *testing.T) {
	a := ProjectIDForIdentityKey("path:/tmp/foo")
	b := ProjectIDForIdentityKey("path:/tmp/foo")
	if a != b {
		t.Fatalf("expected deterministic id, got %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d (%q)", len(a), a)
	}
	if ProjectIDForIdentityKey("") != "" {
		t.Fatalf("expected empty key to yield empty id")
	}
}

func TestNormalizeGitRemote(t *testing.T) {
	cases := map[string]string{
		"git@github.com:Owner/Repo.git":  "github.com/Owner/Repo",
		"https://github.com/Owner/Repo":  "github.com/Owner/Repo",
		"https://github.com/Owner/Repo/": "github.com/Owner/Repo",
		"":                                "",
	}
	for in, want := range cases {
		if got := normalizeGitRemote(in); got != want {
			t.Errorf("normalizeGitRemote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestComputeIdentityNonGitFallsBackToPath(t *testing.T) {
	dir := t.TempDir()
	ident := ComputeIdentity(dir)
	if ident.Kind != "path" {
		t.Fatalf("expected kind=path for non-git dir, got %q", ident.Kind)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if ident.RootPath != resolved && ident.RootPath != dir {
		t.Fatalf("unexpected root_path %q", ident.RootPath)
	}
}

func TestProjectPathsLayout(t *testing.T) {
	home := "/home/x/.mind-incarnation"
	pp := NewProjectPathsWithID(home, "/repo", "abc0123456789def")

	want := map[string]string{
		"project_dir":    filepath.Join(home, "projects", "abc0123456789def"),
		"overlay":         filepath.Join(home, "projects", "abc0123456789def", "overlay.json"),
		"evidence_log":    filepath.Join(home, "projects", "abc0123456789def", "evidence.jsonl"),
		"thoughtdb_dir":   filepath.Join(home, "projects", "abc0123456789def", "thoughtdb"),
		"thoughtdb_claims": filepath.Join(home, "projects", "abc0123456789def", "thoughtdb", "claims.jsonl"),
	}
	got := map[string]string{
		"project_dir":      pp.ProjectDir(),
		"overlay":           pp.OverlayPath(),
		"evidence_log":      pp.EvidenceLogPath(),
		"thoughtdb_dir":     pp.ThoughtdbDir(),
		"thoughtdb_claims":  pp.ThoughtdbClaimsPath(),
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s = %q, want %q", k, got[k], w)
		}
	}
}

func TestProjectSelectionRegistry(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()

	if _, err := RecordLastProjectSelection(home, root); err != nil {
		t.Fatalf("RecordLastProjectSelection: %v", err)
	}
	if got := ResolveProjectSelectionToken(home, "@last"); got == "" {
		t.Fatalf("expected @last to resolve")
	}

	if _, err := SetProjectAlias(home, "myalias", root); err != nil {
		t.Fatalf("SetProjectAlias: %v", err)
	}
	if got := ResolveProjectSelectionToken(home, "@myalias"); got == "" {
		t.Fatalf("expected @myalias to resolve")
	}
	aliases := ListProjectAliases(home)
	if _, ok := aliases["myalias"]; !ok {
		t.Fatalf("expected myalias in ListProjectAliases, got %v", aliases)
	}
	if !RemoveProjectAlias(home, "myalias") {
		t.Fatalf("expected RemoveProjectAlias to report removal")
	}
	if ResolveProjectSelectionToken(home, "@myalias") != "" {
		t.Fatalf("expected @myalias to be gone after removal")
	}
}

func TestNormalizeProjectAliasRejectsBadNames(t *testing.T) {
	if NormalizeProjectAlias("") != "" {
		t.Fatalf("expected empty alias to be rejected")
	}
	if NormalizeProjectAlias("has space") != "" {
		t.Fatalf("expected alias with space to be rejected")
	}
	if NormalizeProjectAlias("ok-name_1.2") == "" {
		t.Fatalf("expected valid alias to be accepted")
	}
}
