// Package retrieval implements the deterministic decide_next context
// builder: a small, budgeted slice of Thought DB nodes/claims/edges
// assembled fresh on every call (no caching of the assembled context itself,
// only of the underlying View).
//
// Grounded on original_source/mi/thoughtdb/context.py.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/LinLinQiQi/mindcore/internal/config"
	"github.com/LinLinQiQi/mindcore/internal/textindex"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb/defaults"
)

// Context is the compact Thought DB subgraph handed to a Mind prompt.
type Context struct {
	AsOfTS         string           `json:"as_of_ts"`
	Query          string           `json:"query"`
	Nodes          []map[string]any `json:"nodes"`
	ValuesClaims   []map[string]any `json:"values_claims"`
	PrefGoalClaims []map[string]any `json:"pref_goal_claims"`
	QueryClaims    []map[string]any `json:"query_claims"`
	Edges          []map[string]any `json:"edges"`
	Notes          string           `json:"notes"`
}

// ToPromptObj renders Context the way it is handed to a Mind prompt: the
// query truncated to 1200 chars, everything else as-is.
func (c Context) ToPromptObj() map[string]any {
	return map[string]any{
		"as_of_ts":         c.AsOfTS,
		"query":            textindex.Truncate(c.Query, 1200),
		"nodes":            c.Nodes,
		"values_claims":    c.ValuesClaims,
		"pref_goal_claims": c.PrefGoalClaims,
		"query_claims":     c.QueryClaims,
		"edges":            c.Edges,
		"notes":            c.Notes,
	}
}

func safeListStr(v any, limit int) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, limit)
	for _, it := range items {
		if len(out) >= limit {
			break
		}
		s := strings.TrimSpace(fmt.Sprint(it))
		if s != "" && it != nil {
			out = append(out, s)
		}
	}
	return out
}

func collectQueryText(task, handsLastMessage string, recentEvidence []map[string]any) string {
	var parts []string
	if t := strings.TrimSpace(task); t != "" {
		parts = append(parts, t)
	}
	if h := strings.TrimSpace(handsLastMessage); h != "" {
		parts = append(parts, h)
	}

	tail := recentEvidence
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	for _, rec := range tail {
		if strings.TrimSpace(asStr(rec["kind"])) != "evidence" {
			continue
		}
		parts = append(parts, safeListStr(rec["unknowns"], 6)...)
		parts = append(parts, safeListStr(rec["risk_signals"], 6)...)
		parts = append(parts, safeListStr(rec["facts"], 6)...)
		parts = append(parts, safeListStr(rec["results"], 4)...)
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func asStr(v any) string {
	s, _ := v.(string)
	return s
}

func normForScore(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func scoreTokens(tokens []string, text string) int {
	if len(tokens) == 0 {
		return 0
	}
	t := normForScore(text)
	score := 0
	for _, tok := range tokens {
		if tok != "" && strings.Contains(t, tok) {
			score++
		}
	}
	return score
}

func sourceEventIDs(rec map[string]any, limit int) []string {
	refs, _ := rec["source_refs"].([]any)
	var out []string
	for _, r := range refs {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if eid, ok := m["event_id"].(string); ok && strings.TrimSpace(eid) != "" {
			out = append(out, eid)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func compactClaim(c map[string]any, view *thoughtdb.View) map[string]any {
	cid := asStr(c["claim_id"])
	return map[string]any{
		"claim_id":         cid,
		"canonical_id":     view.ResolveID(cid),
		"status":           view.ClaimStatus(cid),
		"claim_type":       asStr(c["claim_type"]),
		"scope":            asStr(c["scope"]),
		"visibility":       asStr(c["visibility"]),
		"valid_from":       c["valid_from"],
		"valid_to":         c["valid_to"],
		"text":             textindex.Truncate(asStr(c["text"]), 480),
		"tags":             safeListStr(c["tags"], 16),
		"source_event_ids": sourceEventIDs(c, 6),
	}
}

func compactEdge(e map[string]any, scope string) map[string]any {
	return map[string]any{
		"edge_type": asStr(e["edge_type"]),
		"from_id":   asStr(e["from_id"]),
		"to_id":     asStr(e["to_id"]),
		"scope":     scope,
		"notes":     textindex.Truncate(asStr(e["notes"]), 160),
	}
}

func compactNode(n map[string]any, view *thoughtdb.View) map[string]any {
	nid := asStr(n["node_id"])
	return map[string]any{
		"node_id":          nid,
		"canonical_id":     view.ResolveID(nid),
		"status":           view.NodeStatus(nid),
		"node_type":        asStr(n["node_type"]),
		"scope":            asStr(n["scope"]),
		"visibility":       asStr(n["visibility"]),
		"asserted_ts":      asStr(n["asserted_ts"]),
		"title":            textindex.Truncate(asStr(n["title"]), 160),
		"text":             textindex.Truncate(asStr(n["text"]), 560),
		"tags":             safeListStr(n["tags"], 16),
		"source_event_ids": sourceEventIDs(n, 6),
	}
}

type scopedNode struct {
	ts    string
	scope string
	node  map[string]any
	view  *thoughtdb.View
}

type scopedClaim struct {
	scopeRank int
	ts        string
	claim     map[string]any
	view      *thoughtdb.View
}

// claimActiveValid looks up id in v, returning the record and true only if
// it resolves to a currently active claim valid as of asOfTS.
func claimActiveValid(v *thoughtdb.View, id, asOfTS string) (map[string]any, bool) {
	if id == "" || v.ClaimStatus(id) != "active" {
		return nil, false
	}
	c, ok := v.ClaimsByID[v.ResolveID(id)]
	if !ok {
		return nil, false
	}
	t := strings.TrimSpace(asOfTS)
	if t != "" {
		if vf := strings.TrimSpace(asStr(c["valid_from"])); vf != "" && vf > t {
			return nil, false
		}
		if vt := strings.TrimSpace(asStr(c["valid_to"])); vt != "" && t >= vt {
			return nil, false
		}
	}
	return c, true
}

// nodeActive looks up id in v, returning the record and true only if it
// resolves to a currently active node.
func nodeActive(v *thoughtdb.View, id string) (map[string]any, bool) {
	if id == "" || v.NodeStatus(id) != "active" {
		return nil, false
	}
	n, ok := v.NodesByID[v.ResolveID(id)]
	return n, ok
}

func hasTag(rec map[string]any, tag string) bool {
	for _, t := range safeListStr(rec["tags"], 1<<20) {
		if t == tag {
			return true
		}
	}
	return false
}

// seedHitsByKind runs index.Search for one item kind and returns the hits
// reordered project-first (stable within each scope on the index's own
// score/id ordering), the way §4.4 step 5c/8a prefer project-scope seeds.
func seedHitsByKind(ctx context.Context, index textindex.TextIndex, query string, kind string, topK int) ([]textindex.Hit, error) {
	hits, err := index.Search(ctx, query, topK, []string{kind}, true, "")
	if err != nil {
		return nil, fmt.Errorf("retrieval: search memory index for %s seeds: %w", kind, err)
	}
	sort.SliceStable(hits, func(i, j int) bool { return rankScope(hits[i].Scope) < rankScope(hits[j].Scope) })
	return hits, nil
}

func itemLocalID(h textindex.Hit) string {
	return strings.TrimPrefix(h.ItemID, h.Kind+":"+h.Scope+":")
}

// BuildDecideNextContext assembles the always-on, small-budget Thought DB
// context for one decide_next call. index is the injected memory_index
// capability (§4.4 step 4/5c/8a); a nil index simply skips memory seeding,
// falling back to the token-scored assembly alone.
func BuildDecideNextContext(ctx context.Context, tdb *thoughtdb.Store, asOfTS, task, handsLastMessage string, recentEvidence []map[string]any, index textindex.TextIndex, budgets config.RetrievalBudgets) (Context, error) {
	q := collectQueryText(task, handsLastMessage, recentEvidence)
	tokens := textindex.TokenizeQuery(q, 18)

	vProj, err := tdb.LoadView("project")
	if err != nil {
		return Context{}, fmt.Errorf("retrieval: load project view: %w", err)
	}
	vGlob, err := tdb.LoadView("global")
	if err != nil {
		return Context{}, fmt.Errorf("retrieval: load global view: %w", err)
	}

	maxNodesTotal := maxInt(0, budgets.MaxNodes)
	maxQuery := maxInt(0, budgets.MaxQueryClaims)

	// Step 4: memory seeds (optional) — request claim/node hits for the
	// compacted query up front, so node assembly (5c) and query-claim
	// assembly (8a) can both consume them project-first.
	var memorySeedNodeHits, memorySeedClaimHits []textindex.Hit
	if index != nil && strings.TrimSpace(q) != "" {
		memorySeedNodeHits, err = seedHitsByKind(ctx, index, q, "node", maxInt(maxNodesTotal*4, 8))
		if err != nil {
			return Context{}, err
		}
		memorySeedClaimHits, err = seedHitsByKind(ctx, index, q, "claim", maxInt(maxQuery*4, 8))
		if err != nil {
			return Context{}, err
		}
	}

	var nodes []map[string]any
	includedNodeIDs := map[string]bool{}

	addNode := func(n map[string]any, view *thoughtdb.View) {
		if len(nodes) >= maxNodesTotal {
			return
		}
		nodes = append(nodes, compactNode(n, view))
	}

	// 5a: always include the latest global values summary node, if present.
	var bestValuesSummary map[string]any
	bestTS := ""
	for _, n := range vGlob.IterNodes(false, false) {
		if asStr(n["node_type"]) != "summary" {
			continue
		}
		if !hasTag(n, defaults.ValuesSummaryTag) {
			continue
		}
		ts := asStr(n["asserted_ts"])
		if ts >= bestTS {
			bestValuesSummary = n
			bestTS = ts
		}
	}
	if bestValuesSummary != nil && maxNodesTotal > 0 {
		if nid := asStr(bestValuesSummary["node_id"]); nid != "" {
			addNode(bestValuesSummary, vGlob)
			includedNodeIDs[nid] = true
		}
	}

	// 5b: a few most recent project nodes.
	const maxRecentProjectNodes = 3
	var projNodes []scopedNode
	for _, n := range vProj.IterNodes(false, false) {
		nid := asStr(n["node_id"])
		if nid == "" || includedNodeIDs[nid] {
			continue
		}
		projNodes = append(projNodes, scopedNode{ts: asStr(n["asserted_ts"]), node: n})
	}
	sort.SliceStable(projNodes, func(i, j int) bool { return projNodes[i].ts > projNodes[j].ts })
	recentLimit := maxRecentProjectNodes
	if bestValuesSummary != nil {
		recentLimit++
	}
	for _, pn := range projNodes {
		if len(nodes) >= maxNodesTotal || len(includedNodeIDs) >= recentLimit {
			break
		}
		nid := asStr(pn.node["node_id"])
		if nid == "" || includedNodeIDs[nid] {
			continue
		}
		addNode(pn.node, vProj)
		includedNodeIDs[nid] = true
	}

	// 5c: memory-seeded nodes (project first).
	for _, h := range memorySeedNodeHits {
		if len(nodes) >= maxNodesTotal {
			break
		}
		nid := itemLocalID(h)
		if nid == "" || includedNodeIDs[nid] {
			continue
		}
		v := vProj
		if h.Scope == "global" {
			v = vGlob
		}
		n, ok := nodeActive(v, nid)
		if !ok {
			continue
		}
		addNode(n, v)
		includedNodeIDs[nid] = true
	}

	// 5d: fill remaining node budget with query-ranked nodes (project first).
	if len(tokens) > 0 && len(nodes) < maxNodesTotal {
		type scoredNode struct {
			score int
			scopedNode
		}
		var scored []scoredNode
		for _, pair := range []struct {
			view  *thoughtdb.View
			scope string
		}{{vProj, "project"}, {vGlob, "global"}} {
			for _, n := range pair.view.IterNodes(false, false) {
				nid := asStr(n["node_id"])
				if nid == "" || includedNodeIDs[nid] {
					continue
				}
				title := asStr(n["title"])
				text := asStr(n["text"])
				if title == "" && text == "" {
					continue
				}
				score := scoreTokens(tokens, strings.TrimSpace(title+"\n"+text))
				if score <= 0 {
					continue
				}
				scored = append(scored, scoredNode{score, scopedNode{ts: asStr(n["asserted_ts"]), scope: pair.scope, node: n, view: pair.view}})
			}
		}
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].score != scored[j].score {
				return scored[i].score > scored[j].score
			}
			si, sj := rankScope(scored[i].scope), rankScope(scored[j].scope)
			if si != sj {
				return si < sj
			}
			return scored[i].ts < scored[j].ts
		})
		for _, sn := range scored {
			if len(nodes) >= maxNodesTotal {
				break
			}
			nid := asStr(sn.node["node_id"])
			if nid == "" || includedNodeIDs[nid] {
				continue
			}
			addNode(sn.node, sn.view)
			includedNodeIDs[nid] = true
		}
	}

	// Step 6: values claims — small set of active global preference/goal
	// claims tagged values:base.
	var valuesRaw []map[string]any
	for _, c := range vGlob.IterClaims(false, false, asOfTS) {
		if !hasTag(c, defaults.ValuesBaseTag) {
			continue
		}
		ct := asStr(c["claim_type"])
		if ct != "preference" && ct != "goal" {
			continue
		}
		valuesRaw = append(valuesRaw, c)
	}
	sort.SliceStable(valuesRaw, func(i, j int) bool { return asStr(valuesRaw[i]["asserted_ts"]) > asStr(valuesRaw[j]["asserted_ts"]) })

	maxValues := maxInt(0, budgets.MaxValuesClaims)
	var values []map[string]any
	valuesIDs := map[string]bool{}
	for i, c := range valuesRaw {
		if i >= maxValues {
			break
		}
		values = append(values, compactClaim(c, vGlob))
		valuesIDs[asStr(c["claim_id"])] = true
	}

	// Step 7: pinned + recency-backfilled preference/goal claims.
	var pinnedRaw []scopedClaim
	pinnedIDs := map[string]bool{}
	if len(defaults.PinnedPrefGoalTags) > 0 {
		for _, pair := range []struct {
			view *thoughtdb.View
			rank int
		}{{vProj, 0}, {vGlob, 1}} {
			for _, c := range pair.view.IterClaims(false, false, asOfTS) {
				ct := asStr(c["claim_type"])
				if ct != "preference" && ct != "goal" {
					continue
				}
				hasPinned := false
				for _, t := range safeListStr(c["tags"], 1<<20) {
					if defaults.PinnedPrefGoalTags[t] {
						hasPinned = true
						break
					}
				}
				if !hasPinned {
					continue
				}
				cid := asStr(c["claim_id"])
				if cid == "" || valuesIDs[cid] || pinnedIDs[cid] {
					continue
				}
				pinnedIDs[cid] = true
				pinnedRaw = append(pinnedRaw, scopedClaim{scopeRank: pair.rank, ts: asStr(c["asserted_ts"]), claim: c, view: pair.view})
			}
		}
	}
	sort.SliceStable(pinnedRaw, func(i, j int) bool { return pinnedRaw[i].ts > pinnedRaw[j].ts })
	sort.SliceStable(pinnedRaw, func(i, j int) bool { return pinnedRaw[i].scopeRank < pinnedRaw[j].scopeRank })

	var prefGoalRaw []scopedClaim
	for _, pair := range []struct {
		view *thoughtdb.View
		rank int
	}{{vProj, 0}, {vGlob, 1}} {
		for _, c := range pair.view.IterClaims(false, false, asOfTS) {
			ct := asStr(c["claim_type"])
			if ct != "preference" && ct != "goal" {
				continue
			}
			cid := asStr(c["claim_id"])
			if cid == "" || valuesIDs[cid] || pinnedIDs[cid] {
				continue
			}
			if hasTag(c, defaults.ValuesBaseTag) || hasTag(c, defaults.ValuesRawTag) {
				continue
			}
			prefGoalRaw = append(prefGoalRaw, scopedClaim{scopeRank: pair.rank, ts: asStr(c["asserted_ts"]), claim: c, view: pair.view})
		}
	}
	sort.SliceStable(prefGoalRaw, func(i, j int) bool { return prefGoalRaw[i].ts > prefGoalRaw[j].ts })
	sort.SliceStable(prefGoalRaw, func(i, j int) bool { return prefGoalRaw[i].scopeRank < prefGoalRaw[j].scopeRank })

	maxPrefGoal := maxInt(0, budgets.MaxPrefGoalClaims)
	var prefGoalClaims []map[string]any
	for _, sc := range pinnedRaw {
		if len(prefGoalClaims) >= maxPrefGoal {
			break
		}
		prefGoalClaims = append(prefGoalClaims, compactClaim(sc.claim, sc.view))
	}
	for _, sc := range prefGoalRaw {
		if len(prefGoalClaims) >= maxPrefGoal {
			break
		}
		prefGoalClaims = append(prefGoalClaims, compactClaim(sc.claim, sc.view))
	}
	prefGoalIDs := map[string]bool{}
	for _, c := range prefGoalClaims {
		prefGoalIDs[asStr(c["claim_id"])] = true
	}

	// Step 8: query claims.
	includedIDs := map[string]bool{}
	for k := range valuesIDs {
		includedIDs[k] = true
	}
	for k := range prefGoalIDs {
		includedIDs[k] = true
	}

	var queryClaims []map[string]any

	// 8a: memory-seeded candidates first (exclude already-included ids,
	// exclude values:raw tag).
	for _, h := range memorySeedClaimHits {
		if len(queryClaims) >= maxQuery {
			break
		}
		cid := itemLocalID(h)
		if cid == "" || includedIDs[cid] {
			continue
		}
		v := vProj
		if h.Scope == "global" {
			v = vGlob
		}
		c, ok := claimActiveValid(v, cid, asOfTS)
		if !ok || hasTag(c, defaults.ValuesRawTag) {
			continue
		}
		includedIDs[cid] = true
		queryClaims = append(queryClaims, compactClaim(c, v))
	}

	// 8b: token-scored fallback.
	type scoredClaim struct {
		score int
		scope string
		claim map[string]any
		view  *thoughtdb.View
	}
	var scored []scoredClaim
	for _, pair := range []struct {
		view  *thoughtdb.View
		scope string
	}{{vProj, "project"}, {vGlob, "global"}} {
		for _, c := range pair.view.IterClaims(false, false, asOfTS) {
			cid := asStr(c["claim_id"])
			if cid == "" || valuesIDs[cid] || prefGoalIDs[cid] {
				continue
			}
			if hasTag(c, defaults.ValuesRawTag) {
				continue
			}
			text := asStr(c["text"])
			if text == "" {
				continue
			}
			score := scoreTokens(tokens, text)
			if score <= 0 {
				continue
			}
			if ct := asStr(c["claim_type"]); ct == "preference" || ct == "goal" {
				score++
			}
			scored = append(scored, scoredClaim{score, pair.scope, c, pair.view})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		si, sj := rankScope(scored[i].scope), rankScope(scored[j].scope)
		if si != sj {
			return si < sj
		}
		return asStr(scored[i].claim["asserted_ts"]) < asStr(scored[j].claim["asserted_ts"])
	})

	cap3x := maxQuery * 3
	for i, sc := range scored {
		if i >= cap3x {
			break
		}
		cid := asStr(sc.claim["claim_id"])
		if cid == "" || includedIDs[cid] {
			continue
		}
		includedIDs[cid] = true
		queryClaims = append(queryClaims, compactClaim(sc.claim, sc.view))
		if len(queryClaims) >= maxQuery {
			break
		}
	}

	for nid := range includedNodeIDs {
		includedIDs[nid] = true
	}

	edgeTypeAllow := map[string]bool{
		"depends_on": true, "supports": true, "contradicts": true,
		"derived_from": true, "mentions": true, "supersedes": true, "same_as": true,
	}

	// Step 9: one-hop expansion. For the union of ids already included, walk
	// edges of the allowed types and pull in active/valid endpoints not yet
	// included, up to whatever node/query-claim budget remains.
	if remNodes, remClaims := maxNodesTotal-len(nodes), maxQuery-len(queryClaims); remNodes > 0 || remClaims > 0 {
		seedIDs := make([]string, 0, len(includedIDs))
		for id := range includedIDs {
			seedIDs = append(seedIDs, id)
		}
		sort.Strings(seedIDs)

		visited := map[string]bool{}
		expandFrom := func(v *thoughtdb.View) {
			for _, seed := range seedIDs {
				if remNodes <= 0 && remClaims <= 0 {
					return
				}
				neighborEdges := make([]map[string]any, 0, len(v.EdgesByFrom[seed])+len(v.EdgesByTo[seed]))
				neighborEdges = append(neighborEdges, v.EdgesByFrom[seed]...)
				neighborEdges = append(neighborEdges, v.EdgesByTo[seed]...)
				for _, e := range neighborEdges {
					if remNodes <= 0 && remClaims <= 0 {
						break
					}
					if !edgeTypeAllow[asStr(e["edge_type"])] {
						continue
					}
					from, to := asStr(e["from_id"]), asStr(e["to_id"])
					var other string
					switch seed {
					case from:
						other = to
					case to:
						other = from
					default:
						continue
					}
					if other == "" || includedIDs[other] || visited[other] {
						continue
					}
					visited[other] = true

					if remClaims > 0 {
						if c, ok := claimActiveValid(vProj, other, asOfTS); ok {
							queryClaims = append(queryClaims, compactClaim(c, vProj))
							includedIDs[other] = true
							remClaims--
							continue
						}
						if c, ok := claimActiveValid(vGlob, other, asOfTS); ok {
							queryClaims = append(queryClaims, compactClaim(c, vGlob))
							includedIDs[other] = true
							remClaims--
							continue
						}
					}
					if remNodes > 0 {
						if n, ok := nodeActive(vProj, other); ok {
							nodes = append(nodes, compactNode(n, vProj))
							includedIDs[other] = true
							includedNodeIDs[other] = true
							remNodes--
							continue
						}
						if n, ok := nodeActive(vGlob, other); ok {
							nodes = append(nodes, compactNode(n, vGlob))
							includedIDs[other] = true
							includedNodeIDs[other] = true
							remNodes--
							continue
						}
					}
				}
			}
		}
		expandFrom(vProj)
		expandFrom(vGlob)
	}

	// Step 10: edge selection.
	recentEventIDs := map[string]bool{}
	tailEv := recentEvidence
	if len(tailEv) > 12 {
		tailEv = tailEv[len(tailEv)-12:]
	}
	for _, rec := range tailEv {
		if eid, ok := rec["event_id"].(string); ok && strings.TrimSpace(eid) != "" {
			recentEventIDs[eid] = true
			if len(recentEventIDs) >= 18 {
				break
			}
		}
	}
	edgeAllowIDs := map[string]bool{}
	for k := range includedIDs {
		edgeAllowIDs[k] = true
	}
	for k := range recentEventIDs {
		edgeAllowIDs[k] = true
	}

	maxEdges := maxInt(0, budgets.MaxEdges)
	var edges []map[string]any
	seenEdges := map[string]bool{}

	addEdgesFromView := func(view *thoughtdb.View, scope string) {
		for _, e := range view.Edges {
			if len(edges) >= maxEdges {
				break
			}
			et := asStr(e["edge_type"])
			if !edgeTypeAllow[et] {
				continue
			}
			from := asStr(e["from_id"])
			to := asStr(e["to_id"])
			if from == "" || to == "" || !edgeAllowIDs[from] || !edgeAllowIDs[to] {
				continue
			}
			key := fmt.Sprintf("%s:%s:%s->%s", scope, et, from, to)
			if seenEdges[key] {
				continue
			}
			seenEdges[key] = true
			edges = append(edges, compactEdge(e, scope))
		}
	}
	addEdgesFromView(vProj, "project")
	addEdgesFromView(vGlob, "global")

	notes := fmt.Sprintf(
		"tokens=%d nodes=%d values_claims=%d pref_goal_claims=%d query_claims=%d edges=%d budgets(values=%d pref_goal=%d query=%d nodes=%d edges=%d)",
		len(tokens), len(nodes), len(values), len(prefGoalClaims), len(queryClaims), len(edges),
		budgets.MaxValuesClaims, budgets.MaxPrefGoalClaims, budgets.MaxQueryClaims, budgets.MaxNodes, budgets.MaxEdges,
	)

	return Context{
		AsOfTS:         asOfTS,
		Query:          q,
		Nodes:          emptyIfNil(nodes),
		ValuesClaims:   emptyIfNil(values),
		PrefGoalClaims: emptyIfNil(prefGoalClaims),
		QueryClaims:    emptyIfNil(queryClaims),
		Edges:          emptyIfNil(edges),
		Notes:          notes,
	}, nil
}

func rankScope(scope string) int {
	if scope == "project" {
		return 0
	}
	return 1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func emptyIfNil(in []map[string]any) []map[string]any {
	if in == nil {
		return []map[string]any{}
	}
	return in
}
