// Package thoughtdb implements the ThoughtDB stores (claims, nodes, edges)
// and their materialized read-model View: the durable structured-memory
// layer that sits alongside the EvidenceLog.
//
// Grounded on original_source/mi/thoughtdb/store.py.
package thoughtdb

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	Version              = "v1"
	viewSnapshotKind      = "mi.thoughtdb.view_snapshot"
	viewSnapshotVersion   = "v1"
	maxRedirectHops       = 20
	claimSourceRefsCap    = 8
	nodeCreateSourceCap   = 12
	tagsCap               = 20
	titleMaxLen           = 140
)

func normText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ClaimSignature is the content-address used for dedup: sha256 of
// "claim_type|scope|project_id|normalized_text". Exported so packages
// upserting claims outside the mining pipeline (e.g. internal/thoughtdb/defaults)
// can compute the same signature ExistingSignatureMap uses.
func ClaimSignature(claimType, scope, projectID, text string) string {
	return claimSignature(claimType, scope, projectID, text)
}

func claimSignature(claimType, scope, projectID, text string) string {
	joined := strings.Join([]string{
		strings.TrimSpace(claimType),
		strings.TrimSpace(scope),
		strings.TrimSpace(projectID),
		normText(text),
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

var visibilityRank = map[string]int{"private": 0, "project": 1, "global": 2}

// minVisibility returns whichever of a/b is the more restrictive
// (lower-ranked) visibility label, defaulting invalid inputs to "project".
func minVisibility(a, b string) string {
	ra, ok := visibilityRank[a]
	if !ok {
		a, ra = "project", visibilityRank["project"]
	}
	rb, ok := visibilityRank[b]
	if !ok {
		b, rb = "project", visibilityRank["project"]
	}
	if ra <= rb {
		return a
	}
	return b
}

func edgeKey(edgeType, fromID, toID string) string {
	return edgeType + "|" + fromID + "|" + toID
}

// followRedirects walks same_as redirects from start, stopping at a
// dead-end, a cycle, or maxRedirectHops iterations, whichever comes first.
func followRedirects(start string, redirects map[string]string, limit int) string {
	cur := start
	seen := map[string]bool{cur: true}
	for i := 0; i < limit; i++ {
		next, ok := redirects[cur]
		if !ok || next == "" || seen[next] {
			break
		}
		cur = next
		seen[cur] = true
	}
	return cur
}

func cloneRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec)+2)
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func dedupAppend(seen map[string]bool, items []string, max int, v string) []string {
	if v == "" || seen[v] || len(items) >= max {
		return items
	}
	seen[v] = true
	return append(items, v)
}
