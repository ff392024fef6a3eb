package compaction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LinLinQiQi/mindcore/internal/core/storage"
)

func writeLines(t *testing.T, path string, rows []map[string]any) {
	t.Helper()
	for _, r := range rows {
		if err := storage.AppendJSONL(path, r); err != nil {
			t.Fatalf("append %s: %v", path, err)
		}
	}
}

func TestCompactThoughtDBDirKeepsLastWriterAndArchives(t *testing.T) {
	dir := t.TempDir()
	claimsPath := filepath.Join(dir, "claims.jsonl")
	edgesPath := filepath.Join(dir, "edges.jsonl")
	nodesPath := filepath.Join(dir, "nodes.jsonl")
	snapshotPath := filepath.Join(dir, "view.snapshot.json")

	writeLines(t, claimsPath, []map[string]any{
		{"kind": "claim", "claim_id": "cl_1", "asserted_ts": "2026-01-01T00:00:00Z", "text": "a"},
		{"kind": "claim", "claim_id": "cl_1", "asserted_ts": "2026-01-02T00:00:00Z", "text": "a-updated"},
		{"kind": "claim", "claim_id": "cl_2", "asserted_ts": "2026-01-01T00:00:00Z", "text": "b"},
		{"kind": "claim_retract", "claim_id": "cl_2"},
	})
	writeLines(t, edgesPath, []map[string]any{
		{"kind": "edge", "edge_type": "supports", "from_id": "cl_1", "to_id": "cl_2", "asserted_ts": "2026-01-01T00:00:00Z"},
		{"kind": "edge", "edge_type": "supports", "from_id": "cl_1", "to_id": "cl_2", "asserted_ts": "2026-01-02T00:00:00Z"},
	})
	writeLines(t, nodesPath, []map[string]any{
		{"kind": "node", "node_id": "nd_1", "asserted_ts": "2026-01-01T00:00:00Z", "title": "t"},
	})
	if err := storage.WriteJSON(snapshotPath, map[string]any{"kind": "mi.thoughtdb.view_snapshot"}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	res, err := CompactThoughtDBDir(dir, snapshotPath, false)
	if err != nil {
		t.Fatalf("CompactThoughtDBDir: %v", err)
	}
	if !res.OK || res.DryRun {
		t.Fatalf("unexpected result flags: %+v", res)
	}
	if !res.Snapshot.Deleted || res.Snapshot.Status != "deleted" {
		t.Fatalf("expected snapshot deleted, got %+v", res.Snapshot)
	}
	if _, err := os.Stat(snapshotPath); !os.IsNotExist(err) {
		t.Fatalf("expected snapshot file removed, stat err=%v", err)
	}

	claimsOut, err := storage.IterJSONL(claimsPath)
	if err != nil {
		t.Fatalf("read compacted claims: %v", err)
	}
	if len(claimsOut) != 3 {
		t.Fatalf("expected cl_1 (last writer) + cl_2 + cl_2 retract, got %d rows: %+v", len(claimsOut), claimsOut)
	}

	edgesOut, err := storage.IterJSONL(edgesPath)
	if err != nil {
		t.Fatalf("read compacted edges: %v", err)
	}
	if len(edgesOut) != 1 {
		t.Fatalf("expected only the last edge for the duplicate key, got %d: %+v", len(edgesOut), edgesOut)
	}

	if res.Files["claims"].Archive.Status != "archived" {
		t.Fatalf("expected claims archived, got %+v", res.Files["claims"].Archive)
	}
	if res.ManifestPath == "" {
		t.Fatalf("expected a manifest path to be recorded")
	}
	if _, err := os.Stat(res.ManifestPath); err != nil {
		t.Fatalf("expected manifest.json to exist: %v", err)
	}
	tomlPath := filepath.Join(filepath.Dir(res.ManifestPath), "manifest.toml")
	if _, err := os.Stat(tomlPath); err != nil {
		t.Fatalf("expected manifest.toml mirror to exist: %v", err)
	}
}

func TestCompactThoughtDBDirDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	claimsPath := filepath.Join(dir, "claims.jsonl")
	writeLines(t, claimsPath, []map[string]any{
		{"kind": "claim", "claim_id": "cl_1", "asserted_ts": "2026-01-01T00:00:00Z", "text": "a"},
	})
	before, err := os.ReadFile(claimsPath)
	if err != nil {
		t.Fatalf("read claims before: %v", err)
	}

	res, err := CompactThoughtDBDir(dir, filepath.Join(dir, "view.snapshot.json"), true)
	if err != nil {
		t.Fatalf("CompactThoughtDBDir dry-run: %v", err)
	}
	if !res.DryRun || res.Files["claims"].Write.Status != "plan" {
		t.Fatalf("expected dry-run plan status, got %+v", res.Files["claims"].Write)
	}
	if _, err := os.Stat(filepath.Join(dir, "archive")); !os.IsNotExist(err) {
		t.Fatalf("expected no archive directory written in dry-run")
	}

	after, err := os.ReadFile(claimsPath)
	if err != nil {
		t.Fatalf("read claims after: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("expected claims.jsonl unchanged by dry-run")
	}
}

func TestCompactThoughtDBDirRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	claimsPath := filepath.Join(dir, "claims.jsonl")
	writeLines(t, claimsPath, []map[string]any{{"kind": "mystery", "claim_id": "cl_1"}})

	if _, err := CompactThoughtDBDir(dir, filepath.Join(dir, "view.snapshot.json"), false); err == nil {
		t.Fatalf("expected an error for unknown record kind")
	}
}
