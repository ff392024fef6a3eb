// Package evidence implements the EvidenceLog writer: a per-scope append-only
// JSONL file of immutable, timestamped records with stable, monotone event
// identity.
//
// Grounded on original_source/mi/runtime/evidence.py and
// mi/global_ledger.py's EvidenceWriter.
package evidence

import (
	"fmt"

	"github.com/LinLinQiQi/mindcore/internal/core/ids"
	"github.com/LinLinQiQi/mindcore/internal/core/storage"
)

// Writer appends records to a single JSONL file, assigning each one a
// strictly increasing seq and a stable event_id within this instance.
//
// Writer is not safe for concurrent use from multiple goroutines; callers
// needing that must serialize calls to Append themselves (see spec §5).
type Writer struct {
	Path  string
	RunID string
	seq   int
}

// NewWriter constructs a Writer for path. If runID is empty, one is
// generated via ids.NewRunID("run").
func NewWriter(path string, runID string) *Writer {
	if runID == "" {
		runID = ids.NewRunID("run")
	}
	return &Writer{Path: path, RunID: runID}
}

// Append clones record, stamps ts (if absent), run_id, seq, and event_id,
// appends one JSON line to Path, and returns the enriched record.
func (w *Writer) Append(record map[string]any) (map[string]any, error) {
	w.seq++

	rec := make(map[string]any, len(record)+4)
	for k, v := range record {
		rec[k] = v
	}
	if _, ok := rec["ts"]; !ok {
		rec["ts"] = storage.NowRFC3339()
	}
	rec["run_id"] = w.RunID
	rec["seq"] = w.seq
	rec["event_id"] = ids.FormatEventID(w.RunID, w.seq)

	if err := storage.AppendJSONL(w.Path, rec); err != nil {
		return nil, fmt.Errorf("evidence: append to %s: %w", w.Path, err)
	}
	return rec, nil
}

// IterEvents returns every record appended to path, in append order. A
// missing file yields an empty, nil-error result.
func IterEvents(path string) ([]map[string]any, error) {
	recs, err := storage.IterJSONL(path)
	if err != nil {
		return nil, fmt.Errorf("evidence: iter %s: %w", path, err)
	}
	return recs, nil
}

// Append is a convenience wrapper for one-shot global-scope event writes
// (mirrors append_global_event): it opens a fresh Writer with a new run_id,
// appends kind+payload, and returns the enriched record.
func Append(path, kind string, payload map[string]any) (map[string]any, error) {
	w := NewWriter(path, "")
	rec := map[string]any{"kind": kind}
	if payload != nil {
		rec["payload"] = payload
	}
	return w.Append(rec)
}

// IsEvidenceLike reports whether a record lacking a "kind" field should
// still be treated as evidence-worthy query material because it carries
// facts/results/unknowns fields. This is an intentional, narrow back-compat
// heuristic (spec §9 open question) and must not be extended to other kinds.
func IsEvidenceLike(rec map[string]any) bool {
	if rec == nil {
		return false
	}
	if k, ok := rec["kind"].(string); ok && k != "" {
		return false
	}
	for _, key := range []string{"facts", "results", "unknowns"} {
		if _, ok := rec[key]; ok {
			return true
		}
	}
	return false
}
