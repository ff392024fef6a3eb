// Package whytrace implements the WhyTrace provenance traversal: given a
// target evidence event, collect a bounded candidate claim list, run a
// model call asking it to choose which candidates justify the event, and
// (optionally) materialize depends_on edges from the event to the chosen
// claims.
//
// Grounded on original_source/mi/thoughtdb/why.py.
package whytrace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LinLinQiQi/mindcore/internal/evidence"
	"github.com/LinLinQiQi/mindcore/internal/mindprovider"
	"github.com/LinLinQiQi/mindcore/internal/subgraph"
	"github.com/LinLinQiQi/mindcore/internal/textindex"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

func asStr(v any) string {
	s, _ := v.(string)
	return s
}

func stringListAny(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// FindEvidenceEvent scans evidenceLogPath for the record whose event_id
// matches eventID, returning nil if absent or eventID is blank.
func FindEvidenceEvent(evidenceLogPath, eventID string) (map[string]any, error) {
	eid := strings.TrimSpace(eventID)
	if eid == "" {
		return nil, nil
	}
	recs, err := evidence.IterEvents(evidenceLogPath)
	if err != nil {
		return nil, fmt.Errorf("whytrace: iterate evidence log: %w", err)
	}
	for _, rec := range recs {
		if strings.TrimSpace(asStr(rec["event_id"])) == eid {
			return rec, nil
		}
	}
	return nil, nil
}

// QueryFromEvidenceEvent derives a search query from one evidence record,
// shaped by its kind.
func QueryFromEvidenceEvent(obj map[string]any) string {
	kind := strings.TrimSpace(asStr(obj["kind"]))
	_, hasFacts := obj["facts"]
	_, hasResults := obj["results"]
	_, hasUnknowns := obj["unknowns"]
	if kind == "evidence" || (kind == "" && (hasFacts || hasResults || hasUnknowns)) {
		var parts []string
		parts = append(parts, capList(stringListAny(obj["facts"]), 6)...)
		parts = append(parts, capList(stringListAny(obj["results"]), 6)...)
		parts = append(parts, capList(stringListAny(obj["unknowns"]), 4)...)
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	if kind == "decide_next" {
		parts := []string{asStr(obj["status"]), asStr(obj["next_action"]), asStr(obj["notes"]), asStr(obj["next_hands_input"])}
		var nonEmpty []string
		for _, p := range parts {
			if strings.TrimSpace(p) != "" {
				nonEmpty = append(nonEmpty, p)
			}
		}
		return strings.TrimSpace(strings.Join(nonEmpty, " "))
	}
	if kind == "hands_input" {
		return strings.TrimSpace(asStr(obj["input"]))
	}
	if kind == "workflow_trigger" {
		return strings.TrimSpace(asStr(obj["workflow_name"]) + " " + asStr(obj["trigger_pattern"]))
	}
	raw, _ := json.Marshal(obj)
	return textindex.Truncate(string(raw), 1400)
}

func capList(items []string, limit int) []string {
	var out []string
	for _, it := range items {
		s := strings.TrimSpace(it)
		if s != "" {
			out = append(out, s)
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}

func compactClaim(c map[string]any, status, canonicalID string) map[string]any {
	refs, _ := c["source_refs"].([]any)
	var evIDs []string
	for _, r := range refs {
		if m, ok := r.(map[string]any); ok {
			if eid, ok := m["event_id"].(string); ok && strings.TrimSpace(eid) != "" {
				evIDs = append(evIDs, eid)
			}
		}
	}
	if len(evIDs) > 6 {
		evIDs = evIDs[:6]
	}
	tags := capList(stringListAny(c["tags"]), 12)
	return map[string]any{
		"claim_id":         strings.TrimSpace(asStr(c["claim_id"])),
		"canonical_id":     canonicalID,
		"status":           status,
		"claim_type":       strings.TrimSpace(asStr(c["claim_type"])),
		"scope":            strings.TrimSpace(asStr(c["scope"])),
		"visibility":       strings.TrimSpace(asStr(c["visibility"])),
		"asserted_ts":      strings.TrimSpace(asStr(c["asserted_ts"])),
		"valid_from":       c["valid_from"],
		"valid_to":         c["valid_to"],
		"text":             textindex.Truncate(strings.TrimSpace(asStr(c["text"])), 480),
		"source_event_ids": evIDs,
		"tags":             tags,
	}
}

func claimCitesEvent(c map[string]any, eventID string) bool {
	refs, _ := c["source_refs"].([]any)
	for _, r := range refs {
		if m, ok := r.(map[string]any); ok {
			if eid, ok := m["event_id"].(string); ok && strings.TrimSpace(eid) == eventID {
				return true
			}
		}
	}
	return false
}

func timeInRange(asOfTS string, c map[string]any) bool {
	t := strings.TrimSpace(asOfTS)
	if t == "" {
		return true
	}
	if vf, ok := c["valid_from"].(string); ok {
		if vf = strings.TrimSpace(vf); vf != "" && vf > t {
			return false
		}
	}
	if vt, ok := c["valid_to"].(string); ok {
		if vt = strings.TrimSpace(vt); vt != "" && t >= vt {
			return false
		}
	}
	return true
}

// thoughtDBHints extracts the deterministic claim/node id hints a
// decide_next record may carry in its "thought_db" field, preserving
// insertion order and deduping.
func thoughtDBHints(targetObj map[string]any) (claimIDs, nodeIDs []string) {
	tdb, ok := targetObj["thought_db"].(map[string]any)
	if !ok {
		return nil, nil
	}
	addMany := func(dst []string, v any) []string {
		for _, x := range stringListAny(v) {
			x = strings.TrimSpace(x)
			if x != "" {
				dst = append(dst, x)
			}
		}
		return dst
	}
	var rawClaims, rawNodes []string
	rawClaims = addMany(rawClaims, tdb["values_claim_ids"])
	rawClaims = addMany(rawClaims, tdb["pref_goal_claim_ids"])
	rawClaims = addMany(rawClaims, tdb["query_claim_ids"])
	rawNodes = addMany(rawNodes, tdb["node_ids"])

	seenC := map[string]bool{}
	for _, c := range rawClaims {
		if !seenC[c] {
			seenC[c] = true
			claimIDs = append(claimIDs, c)
		}
	}
	seenN := map[string]bool{}
	for _, n := range rawNodes {
		if !seenN[n] {
			seenN[n] = true
			nodeIDs = append(nodeIDs, n)
		}
	}
	return claimIDs, nodeIDs
}

func clampTopK(topK int) int {
	if topK <= 0 {
		topK = 12
	}
	if topK < 1 {
		topK = 1
	}
	if topK > 40 {
		topK = 40
	}
	return topK
}

// CollectCandidateClaims collects a bounded candidate claim list (project +
// global) for WhyTrace: claims citing targetEventID first, then query-ranked
// claims via the supplied text index.
func CollectCandidateClaims(ctx context.Context, tdb *thoughtdb.Store, index textindex.TextIndex, query string, topK int, targetEventID string) ([]map[string]any, error) {
	k := clampTopK(topK)

	q := strings.TrimSpace(query)
	if q == "" {
		q = strings.TrimSpace(targetEventID)
	}
	if q == "" {
		return []map[string]any{}, nil
	}

	vProj, err := tdb.LoadView("project")
	if err != nil {
		return nil, fmt.Errorf("whytrace: load project view: %w", err)
	}
	vGlob, err := tdb.LoadView("global")
	if err != nil {
		return nil, fmt.Errorf("whytrace: load global view: %w", err)
	}

	var out []map[string]any
	seen := map[string]bool{}

	te := strings.TrimSpace(targetEventID)
	if te != "" {
		for _, v := range []*thoughtdb.View{vProj, vGlob} {
			for _, c := range v.IterClaims(true, false, "") {
				if !claimCitesEvent(c, te) {
					continue
				}
				cid := strings.TrimSpace(asStr(c["claim_id"]))
				if cid == "" || seen[cid] {
					continue
				}
				seen[cid] = true
				out = append(out, compactClaim(c, v.ClaimStatus(cid), v.ResolveID(cid)))
				if len(out) >= k {
					return out, nil
				}
			}
		}
	}

	if index != nil {
		hits, err := index.Search(ctx, q, k-len(out), []string{"claim"}, true, "")
		if err != nil {
			return nil, fmt.Errorf("whytrace: search memory index: %w", err)
		}
		for _, h := range hits {
			if len(out) >= k {
				break
			}
			cid := claimIDFromHit(h)
			if cid == "" || seen[cid] {
				continue
			}
			v := vProj
			if h.Scope == "global" {
				v = vGlob
			}
			c, ok := v.ClaimsByID[cid]
			if !ok {
				continue
			}
			seen[cid] = true
			out = append(out, compactClaim(c, v.ClaimStatus(cid), v.ResolveID(cid)))
		}
	}

	return emptyIfNil(out), nil
}

// claimIDFromHit strips the "claim:<scope>:" prefix a memory-index item id
// carries, recovering the bare claim id CollectCandidateClaims looks up.
func claimIDFromHit(h textindex.Hit) string {
	return strings.TrimPrefix(h.ItemID, "claim:"+h.Scope+":")
}

// CollectCandidateClaimsForTarget prefers deterministic thought_db hints
// recorded on targetObj, falling back to one-hop expansion from those hints
// plus the target event id, and finally to CollectCandidateClaims.
func CollectCandidateClaimsForTarget(ctx context.Context, tdb *thoughtdb.Store, index textindex.TextIndex, targetObj map[string]any, query string, topK int, asOfTS, targetEventID string) ([]map[string]any, error) {
	hintClaimIDs, hintNodeIDs := thoughtDBHints(targetObj)
	if len(hintClaimIDs) == 0 && len(hintNodeIDs) == 0 {
		return CollectCandidateClaims(ctx, tdb, index, query, topK, targetEventID)
	}

	k := clampTopK(topK)
	t := strings.TrimSpace(asOfTS)
	evID := strings.TrimSpace(targetEventID)

	vProj, err := tdb.LoadView("project")
	if err != nil {
		return nil, fmt.Errorf("whytrace: load project view: %w", err)
	}
	vGlob, err := tdb.LoadView("global")
	if err != nil {
		return nil, fmt.Errorf("whytrace: load global view: %w", err)
	}

	claimActiveAndValid := func(v *thoughtdb.View, cid string) bool {
		if cid == "" || v.ClaimStatus(cid) != "active" {
			return false
		}
		c, ok := v.ClaimsByID[cid]
		if !ok {
			return false
		}
		return timeInRange(t, c)
	}

	loadClaimByID := func(raw string) (map[string]any, *thoughtdb.View, string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil, ""
		}
		if _, ok := vProj.ClaimsByID[raw]; ok {
			canon := vProj.ResolveID(raw)
			return vProj.ClaimsByID[canon], vProj, canon
		}
		if _, ok := vGlob.ClaimsByID[raw]; ok {
			canon := vGlob.ResolveID(raw)
			return vGlob.ClaimsByID[canon], vGlob, canon
		}
		if canon := vProj.ResolveID(raw); canon != "" {
			if c, ok := vProj.ClaimsByID[canon]; ok {
				return c, vProj, canon
			}
		}
		if canon := vGlob.ResolveID(raw); canon != "" {
			if c, ok := vGlob.ClaimsByID[canon]; ok {
				return c, vGlob, canon
			}
		}
		return nil, nil, ""
	}

	var out []map[string]any
	seen := map[string]bool{}

	addClaimID := func(cid string) {
		if len(out) >= k {
			return
		}
		c, v, canon := loadClaimByID(cid)
		if c == nil || v == nil || canon == "" || seen[canon] {
			return
		}
		if !claimActiveAndValid(v, canon) {
			return
		}
		seen[canon] = true
		out = append(out, compactClaim(c, v.ClaimStatus(canon), v.ResolveID(canon)))
	}

	for _, cid := range hintClaimIDs {
		addClaimID(cid)
		if len(out) >= k {
			return out, nil
		}
	}

	if evID != "" {
		for _, v := range []*thoughtdb.View{vProj, vGlob} {
			for _, c := range v.IterClaims(true, false, "") {
				if len(out) >= k {
					return out, nil
				}
				if !claimCitesEvent(c, evID) {
					continue
				}
				cid := strings.TrimSpace(asStr(c["claim_id"]))
				if cid == "" {
					continue
				}
				canon := v.ResolveID(cid)
				if seen[canon] || !claimActiveAndValid(v, canon) {
					continue
				}
				cc, ok := v.ClaimsByID[canon]
				if !ok {
					continue
				}
				seen[canon] = true
				out = append(out, compactClaim(cc, v.ClaimStatus(canon), v.ResolveID(canon)))
			}
		}
	}

	if rem := k - len(out); rem > 0 {
		seedIDs := map[string]bool{}
		for _, c := range hintClaimIDs {
			seedIDs[c] = true
		}
		for _, n := range hintNodeIDs {
			seedIDs[n] = true
		}
		if evID != "" {
			seedIDs[evID] = true
		}
		for seed := range seedIDs {
			if len(out) >= k {
				break
			}
			sg, err := subgraph.BuildSubgraph(tdb, subgraph.Options{
				Scope: "effective", RootID: seed, Depth: 1, Direction: "both", AsOfTS: t,
				EdgeTypes: map[string]bool{"depends_on": true, "supports": true, "contradicts": true, "derived_from": true, "mentions": true, "supersedes": true, "same_as": true},
			})
			if err != nil {
				continue
			}
			for _, c := range sg.Claims {
				addClaimID(asStr(c["claim_id"]))
				if len(out) >= k {
					break
				}
			}
		}
	}

	if q := strings.TrimSpace(query); len(out) < k && (q != "" || evID != "") {
		fallback, err := CollectCandidateClaims(ctx, tdb, index, query, k-len(out), evID)
		if err == nil {
			for _, c := range fallback {
				addClaimID(asStr(c["claim_id"]))
				if len(out) >= k {
					break
				}
			}
		}
	}

	return emptyIfNil(out), nil
}

// Outcome is what RunWhyTrace returns.
type Outcome struct {
	Obj              map[string]any
	MindTranscriptRef string
	WrittenEdgeIDs   []string
}

// RunWhyTrace runs the why_trace model call and, if requested and the model
// is confident enough, materializes depends_on edges from writeEdgesFromEventID
// to each chosen claim id.
func RunWhyTrace(ctx context.Context, provider mindprovider.Provider, tdb *thoughtdb.Store, target map[string]any, candidateClaims []map[string]any, asOfTS, writeEdgesFromEventID string, minWriteConfidence float64) (Outcome, error) {
	prompt := whyTracePrompt(target, asOfTS, candidateClaims)
	res, err := provider.Call(ctx, "why_trace.json", prompt, "why_trace")
	if err != nil {
		return Outcome{}, fmt.Errorf("whytrace: model call: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(res.Obj, &out); err != nil || out == nil {
		out = map[string]any{"status": "insufficient", "confidence": 0.0, "chosen_claim_ids": []any{}, "explanation": "", "notes": "invalid output"}
	}

	candIDs := map[string]bool{}
	for _, c := range candidateClaims {
		if cid := strings.TrimSpace(asStr(c["claim_id"])); cid != "" {
			candIDs[cid] = true
		}
	}

	rawChosen := stringListAny(out["chosen_claim_ids"])
	var chosen []string
	seen := map[string]bool{}
	for _, cid := range rawChosen {
		cid = strings.TrimSpace(cid)
		if cid == "" || seen[cid] || !candIDs[cid] {
			continue
		}
		seen[cid] = true
		chosen = append(chosen, cid)
		if len(chosen) >= 10 {
			break
		}
	}
	out["chosen_claim_ids"] = toAnySlice(chosen)

	var writtenEdgeIDs []string
	evID := strings.TrimSpace(writeEdgesFromEventID)
	if evID != "" {
		conf, _ := out["confidence"].(float64)
		if strings.TrimSpace(asStr(out["status"])) == "ok" && conf >= minWriteConfidence && len(chosen) > 0 {
			visByID := map[string]string{}
			for _, c := range candidateClaims {
				if cid := strings.TrimSpace(asStr(c["claim_id"])); cid != "" {
					visByID[cid] = strings.TrimSpace(asStr(c["visibility"]))
				}
			}
			for _, cid := range chosen {
				vis := "project"
				if visByID[cid] == "private" {
					vis = "private"
				}
				eid, err := tdb.AppendEdge(thoughtdb.EdgeInput{
					EdgeType:       "depends_on",
					FromID:         evID,
					ToID:           cid,
					Scope:          "project",
					Visibility:     vis,
					SourceEventIDs: []string{evID},
					Notes:          "why_trace materialized",
				})
				if err != nil {
					continue
				}
				writtenEdgeIDs = append(writtenEdgeIDs, eid)
			}
		}
	}

	return Outcome{Obj: out, MindTranscriptRef: res.TranscriptPath, WrittenEdgeIDs: emptyIfNilStr(writtenEdgeIDs)}, nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func emptyIfNil(in []map[string]any) []map[string]any {
	if in == nil {
		return []map[string]any{}
	}
	return in
}

func emptyIfNilStr(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
