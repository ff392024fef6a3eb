package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

// runCLI executes rootCmd with args against home/project, capturing stdout,
// the way cmd/bd's init_test.go pipes os.Stdout around rootCmd.Execute().
func runCLI(t *testing.T, home, project string, args ...string) (string, error) {
	t.Helper()

	rootCmd.SetArgs(append([]string{"--home", home, "--project", project}, args...))

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = oldStdout }()

	err := rootCmd.Execute()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	os.Stdout = oldStdout
	return buf.String(), err
}

func TestClaimCreateThenContextDecideNextSeesIt(t *testing.T) {
	home, project := t.TempDir(), t.TempDir()

	out, err := runCLI(t, home, project, "thoughtdb", "claim", "create",
		"--type", "fact", "--text", "staging deploy uses blue/green", "--scope", "project")
	if err != nil {
		t.Fatalf("claim create: %v, output=%s", err, out)
	}
	var created map[string]any
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("parsing claim create output: %v (%s)", err, out)
	}
	if created["claim_id"] == "" || created["claim_id"] == nil {
		t.Fatalf("expected a claim_id, got %+v", created)
	}

	out2, err := runCLI(t, home, project, "context", "decide-next", "--task", "deploy to staging")
	if err != nil {
		t.Fatalf("context decide-next: %v, output=%s", err, out2)
	}
	var ctx map[string]any
	if err := json.Unmarshal([]byte(out2), &ctx); err != nil {
		t.Fatalf("parsing context output: %v (%s)", err, out2)
	}
	if _, ok := ctx["query_claims"]; !ok {
		t.Fatalf("expected query_claims key in context output, got %+v", ctx)
	}
}

func TestCompactRunDryRunOnEmptyStoreSucceeds(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), t.TempDir(), "compact", "run", "--dry-run")
	if err != nil {
		t.Fatalf("compact run --dry-run: %v, output=%s", err, out)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("parsing compact output: %v (%s)", err, out)
	}
	if res["dry_run"] != true {
		t.Fatalf("expected dry_run=true, got %+v", res)
	}
}
