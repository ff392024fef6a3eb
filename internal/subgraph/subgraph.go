// Package subgraph implements the bounded BFS subgraph extractor used for
// CLI inspection: starting from a root claim/node/event id, walk same_as
// aliases and edges out to a small depth and return a compact, JSON-friendly
// view of what was found.
//
// Grounded on original_source/mi/thoughtdb/graph.py.
package subgraph

import (
	"sort"
	"strings"

	"github.com/LinLinQiQi/mindcore/internal/core/storage"
	"github.com/LinLinQiQi/mindcore/internal/textindex"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

// Options configures one BuildSubgraph call.
type Options struct {
	Scope            string // "project", "global", or "effective"
	RootID           string
	Depth            int
	Direction        string // "out", "in", or "both"
	EdgeTypes        map[string]bool
	IncludeInactive  bool
	IncludeAliases   bool
	AsOfTS           string
}

// Subgraph is the materialized, JSON-ready output of BuildSubgraph.
type Subgraph struct {
	RootID          string           `json:"root_id"`
	RootIDCanonical string           `json:"root_id_canonical"`
	Depth           int              `json:"depth"`
	Direction       string           `json:"direction"`
	EdgeTypes       []string         `json:"edge_types"`
	IncludeInactive bool             `json:"include_inactive"`
	IncludeAliases  bool             `json:"include_aliases"`
	AsOfTS          string           `json:"as_of_ts"`
	Claims          []map[string]any `json:"claims"`
	Nodes           []map[string]any `json:"nodes"`
	Edges           []map[string]any `json:"edges"`
	MissingIDs      []string         `json:"missing_ids"`
}

func edgeKey(e map[string]any) string {
	return asStr(e["edge_type"]) + "|" + asStr(e["from_id"]) + "|" + asStr(e["to_id"])
}

func asStr(v any) string {
	s, _ := v.(string)
	return s
}

func claimValidAsOf(c map[string]any, asOfTS string) bool {
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

// effectiveViews bundles the project and global views plus their reverse-
// alias maps (canonical_id -> alias ids) for scope="effective" lookups,
// where project data wins over global on conflicts.
type effectiveViews struct {
	proj, glob           *thoughtdb.View
	aliasesProj, aliasesGlob map[string]map[string]bool
}

func reverseAliases(v *thoughtdb.View) map[string]map[string]bool {
	rev := map[string]map[string]bool{}
	for dup := range v.RedirectsSameAs {
		canon := v.ResolveID(dup)
		if canon == "" || canon == dup {
			continue
		}
		if rev[canon] == nil {
			rev[canon] = map[string]bool{}
		}
		rev[canon][dup] = true
	}
	return rev
}

func viewKnowsID(v *thoughtdb.View, id string) bool {
	if id == "" {
		return false
	}
	if _, ok := v.ClaimsByID[id]; ok {
		return true
	}
	if _, ok := v.NodesByID[id]; ok {
		return true
	}
	_, ok := v.RedirectsSameAs[id]
	return ok
}

func resolveIDEffective(vProj, vGlob *thoughtdb.View, id string) string {
	if id == "" {
		return ""
	}
	if viewKnowsID(vProj, id) {
		return vProj.ResolveID(id)
	}
	if viewKnowsID(vGlob, id) {
		return vGlob.ResolveID(id)
	}
	return id
}

func (e *effectiveViews) resolveID(id string) string { return resolveIDEffective(e.proj, e.glob, id) }

func (e *effectiveViews) aliasKeysFor(canon string) map[string]bool {
	out := map[string]bool{}
	if canon == "" {
		return out
	}
	for k := range e.aliasesProj[canon] {
		out[k] = true
	}
	for k := range e.aliasesGlob[canon] {
		out[k] = true
	}
	return out
}

func (e *effectiveViews) findClaim(id string) (*thoughtdb.View, map[string]any) {
	if id == "" {
		return nil, nil
	}
	for _, v := range []*thoughtdb.View{e.proj, e.glob} {
		if c, ok := v.ClaimsByID[id]; ok {
			return v, c
		}
		if canon := v.ResolveID(id); canon != "" {
			if c, ok := v.ClaimsByID[canon]; ok {
				return v, c
			}
		}
	}
	return nil, nil
}

func (e *effectiveViews) findNode(id string) (*thoughtdb.View, map[string]any) {
	if id == "" {
		return nil, nil
	}
	for _, v := range []*thoughtdb.View{e.proj, e.glob} {
		if n, ok := v.NodesByID[id]; ok {
			return v, n
		}
		if canon := v.ResolveID(id); canon != "" {
			if n, ok := v.NodesByID[canon]; ok {
				return v, n
			}
		}
	}
	return nil, nil
}

func (e *effectiveViews) claimStatus(id string) (status, canon string) {
	if id == "" {
		return "", ""
	}
	for _, v := range []*thoughtdb.View{e.proj, e.glob} {
		if viewKnowsID(v, id) {
			canon = v.ResolveID(id)
			return v.ClaimStatus(canon), canon
		}
	}
	return "unknown", id
}

func (e *effectiveViews) nodeStatus(id string) (status, canon string) {
	if id == "" {
		return "", ""
	}
	for _, v := range []*thoughtdb.View{e.proj, e.glob} {
		if viewKnowsID(v, id) {
			canon = v.ResolveID(id)
			return v.NodeStatus(canon), canon
		}
	}
	return "unknown", id
}

func compactClaimOut(v *thoughtdb.View, cid, status, canonical string) map[string]any {
	c := v.ClaimsByID[cid]
	var tags []string
	for _, t := range stringListAny(c["tags"]) {
		if strings.TrimSpace(t) != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) > 24 {
		tags = tags[:24]
	}
	return map[string]any{
		"claim_id":         cid,
		"canonical_id":     canonical,
		"status":           status,
		"claim_type":       asStr(c["claim_type"]),
		"scope":            nonEmpty(asStr(c["scope"]), v.Scope),
		"visibility":       asStr(c["visibility"]),
		"asserted_ts":      asStr(c["asserted_ts"]),
		"valid_from":       c["valid_from"],
		"valid_to":         c["valid_to"],
		"text":             textindex.Truncate(asStr(c["text"]), 800),
		"tags":             tags,
		"source_event_ids": sourceEventIDs(c, 8),
	}
}

func compactNodeOut(v *thoughtdb.View, nid, status, canonical string) map[string]any {
	n := v.NodesByID[nid]
	var tags []string
	for _, t := range stringListAny(n["tags"]) {
		if strings.TrimSpace(t) != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) > 24 {
		tags = tags[:24]
	}
	return map[string]any{
		"node_id":          nid,
		"canonical_id":     canonical,
		"status":           status,
		"node_type":        asStr(n["node_type"]),
		"scope":            nonEmpty(asStr(n["scope"]), v.Scope),
		"visibility":       asStr(n["visibility"]),
		"asserted_ts":      asStr(n["asserted_ts"]),
		"title":            textindex.Truncate(asStr(n["title"]), 240),
		"text":             textindex.Truncate(asStr(n["text"]), 1000),
		"tags":             tags,
		"source_event_ids": sourceEventIDs(n, 8),
	}
}

func nonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
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

func edgeOut(e map[string]any, fromCanon, toCanon string, includeAliases bool) map[string]any {
	frm := asStr(e["from_id"])
	to := asStr(e["to_id"])
	out := map[string]any{
		"edge_id":     asStr(e["edge_id"]),
		"edge_type":   asStr(e["edge_type"]),
		"scope":       asStr(e["scope"]),
		"project_id":  asStr(e["project_id"]),
		"visibility":  asStr(e["visibility"]),
		"asserted_ts": asStr(e["asserted_ts"]),
		"notes":       asStr(e["notes"]),
		"source_refs": e["source_refs"],
		"from_id":     frm,
		"to_id":       to,
		"from_id_canonical": fromCanon,
		"to_id_canonical":   toCanon,
	}
	if !includeAliases {
		out["from_id"] = fromCanon
		out["to_id"] = toCanon
		if frm != "" && frm != fromCanon {
			out["from_id_raw"] = frm
		}
		if to != "" && to != toCanon {
			out["to_id_raw"] = to
		}
	}
	return out
}

func neighborsForEdge(e map[string]any, cur, direction string) []string {
	frm := asStr(e["from_id"])
	to := asStr(e["to_id"])
	if frm == "" || to == "" {
		return nil
	}
	var out []string
	if (direction == "out" || direction == "both") && frm == cur {
		out = append(out, to)
	}
	if (direction == "in" || direction == "both") && to == cur {
		out = append(out, frm)
	}
	return out
}

func iterEdgesForKeys(v *thoughtdb.View, keys map[string]bool, direction string) []map[string]any {
	wantOut := direction == "out" || direction == "both"
	wantIn := direction == "in" || direction == "both"
	seen := map[string]bool{}
	var out []map[string]any
	for k := range keys {
		if k == "" {
			continue
		}
		if wantOut {
			for _, e := range v.EdgesByFrom[k] {
				eid := asStr(e["edge_id"])
				if eid != "" && seen[eid] {
					continue
				}
				if eid != "" {
					seen[eid] = true
				}
				out = append(out, e)
			}
		}
		if wantIn {
			for _, e := range v.EdgesByTo[k] {
				eid := asStr(e["edge_id"])
				if eid != "" && seen[eid] {
					continue
				}
				if eid != "" {
					seen[eid] = true
				}
				out = append(out, e)
			}
		}
	}
	return out
}

type bfsItem struct {
	id    string
	depth int
}

// BuildSubgraph runs the bounded BFS traversal and materializes a compact,
// JSON-ready Subgraph.
func BuildSubgraph(tdb *thoughtdb.Store, opts Options) (Subgraph, error) {
	scope := strings.TrimSpace(opts.Scope)
	if scope != "project" && scope != "global" && scope != "effective" {
		scope = "project"
	}
	rid := strings.TrimSpace(opts.RootID)
	if rid == "" {
		return Subgraph{Direction: "both", Claims: []map[string]any{}, Nodes: []map[string]any{}, Edges: []map[string]any{}, MissingIDs: []string{}, EdgeTypes: []string{}}, nil
	}

	depth := opts.Depth
	if depth < 0 {
		depth = 0
	}
	if depth > 6 {
		depth = 6
	}

	direction := opts.Direction
	if direction != "out" && direction != "in" && direction != "both" {
		direction = "both"
	}

	asOf := strings.TrimSpace(opts.AsOfTS)
	if asOf == "" {
		asOf = storage.NowRFC3339()
	}

	var etypes map[string]bool
	if len(opts.EdgeTypes) > 0 {
		etypes = map[string]bool{}
		for k, on := range opts.EdgeTypes {
			if on && strings.TrimSpace(k) != "" {
				etypes[k] = true
			}
		}
	}

	var eff *effectiveViews
	var single *thoughtdb.View
	var aliasesSingle map[string]map[string]bool
	if scope == "effective" {
		vProj, err := tdb.LoadView("project")
		if err != nil {
			return Subgraph{}, err
		}
		vGlob, err := tdb.LoadView("global")
		if err != nil {
			return Subgraph{}, err
		}
		eff = &effectiveViews{proj: vProj, glob: vGlob, aliasesProj: reverseAliases(vProj), aliasesGlob: reverseAliases(vGlob)}
	} else {
		v, err := tdb.LoadView(scope)
		if err != nil {
			return Subgraph{}, err
		}
		single = v
		aliasesSingle = reverseAliases(v)
	}

	nodeKey := func(id string) string {
		if id == "" {
			return ""
		}
		if opts.IncludeAliases {
			return id
		}
		if eff != nil {
			return eff.resolveID(id)
		}
		return single.ResolveID(id)
	}

	equivalentEdgeLookupKeys := func(id string) map[string]bool {
		if id == "" {
			return map[string]bool{}
		}
		if opts.IncludeAliases {
			return map[string]bool{id: true}
		}
		canon := nodeKey(id)
		out := map[string]bool{id: true}
		if canon != "" {
			out[canon] = true
		}
		var aliases map[string]bool
		if eff != nil {
			aliases = eff.aliasKeysFor(canon)
		} else {
			aliases = aliasesSingle[canon]
		}
		for k := range aliases {
			out[k] = true
		}
		return out
	}

	statusAndKindFor := func(id string) (kind, status string, view *thoughtdb.View) {
		if id == "" {
			return "unknown", "unknown", nil
		}
		if eff != nil {
			if v, c := eff.findClaim(id); c != nil {
				st, _ := eff.claimStatus(id)
				return "claim", st, v
			}
			if v, n := eff.findNode(id); n != nil {
				st, _ := eff.nodeStatus(id)
				return "node", st, v
			}
			return "unknown", "unknown", nil
		}
		canon := single.ResolveID(id)
		if _, ok := single.ClaimsByID[canon]; ok || single.ClaimsByID[id] != nil {
			return "claim", single.ClaimStatus(canon), single
		}
		if _, ok := single.NodesByID[canon]; ok || single.NodesByID[id] != nil {
			return "node", single.NodeStatus(canon), single
		}
		return "unknown", "unknown", nil
	}

	claimObjFor := func(id string) (*thoughtdb.View, string) {
		if id == "" {
			return nil, ""
		}
		if eff != nil {
			if v, c := eff.findClaim(id); c != nil {
				return v, asStr(c["claim_id"])
			}
			return nil, ""
		}
		canon := single.ResolveID(id)
		if _, ok := single.ClaimsByID[canon]; ok {
			return single, canon
		}
		return nil, ""
	}

	nodeObjFor := func(id string) (*thoughtdb.View, string) {
		if id == "" {
			return nil, ""
		}
		if eff != nil {
			if v, n := eff.findNode(id); n != nil {
				return v, asStr(n["node_id"])
			}
			return nil, ""
		}
		canon := single.ResolveID(id)
		if _, ok := single.NodesByID[canon]; ok {
			return single, canon
		}
		return nil, ""
	}

	rootKey := nodeKey(rid)
	queue := []bfsItem{{id: rootKey, depth: 0}}
	seenDepth := map[string]int{rootKey: 0}
	included := map[string]bool{rootKey: true}
	collectedEdges := map[string]map[string]any{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.id == "" || cur.depth >= depth {
			continue
		}

		keys := equivalentEdgeLookupKeys(cur.id)

		var edgesToWalk []map[string]any
		if eff != nil {
			seenTriples := map[string]bool{}
			for _, e := range iterEdgesForKeys(eff.proj, keys, direction) {
				seenTriples[edgeKey(e)] = true
				edgesToWalk = append(edgesToWalk, e)
			}
			for _, e := range iterEdgesForKeys(eff.glob, keys, direction) {
				if seenTriples[edgeKey(e)] {
					continue
				}
				edgesToWalk = append(edgesToWalk, e)
			}
		} else {
			edgesToWalk = iterEdgesForKeys(single, keys, direction)
		}

		for _, e := range edgesToWalk {
			et := asStr(e["edge_type"])
			if etypes != nil && !etypes[et] {
				continue
			}
			var neighbors []string
			for k := range keys {
				neighbors = append(neighbors, neighborsForEdge(e, k, direction)...)
			}
			if len(neighbors) == 0 {
				continue
			}
			for _, nb := range neighbors {
				nb = strings.TrimSpace(nb)
				if nb == "" {
					continue
				}
				nbKey := nodeKey(nb)
				if nbKey == "" {
					continue
				}
				if nbKey != rootKey {
					kind, st, vUsed := statusAndKindFor(nbKey)
					if kind == "claim" && vUsed != nil {
						cid := vUsed.ResolveID(nbKey)
						cobj := vUsed.ClaimsByID[cid]
						if cobj != nil && !opts.IncludeInactive && (st != "active" || !claimValidAsOf(cobj, asOf)) {
							continue
						}
					} else if kind == "node" && !opts.IncludeInactive && st != "active" {
						continue
					}
				}

				included[nbKey] = true
				if prev, ok := seenDepth[nbKey]; !ok || cur.depth+1 < prev {
					seenDepth[nbKey] = cur.depth + 1
					queue = append(queue, bfsItem{id: nbKey, depth: cur.depth + 1})
				}

				eid := asStr(e["edge_id"])
				key2 := eid
				if key2 == "" {
					key2 = edgeKey(e)
				}
				if _, ok := collectedEdges[key2]; !ok {
					collectedEdges[key2] = e
				}
			}
		}
	}

	var claimsOut, nodesOut []map[string]any
	var missing []string

	idsSorted := make([]string, 0, len(included))
	for id := range included {
		idsSorted = append(idsSorted, id)
	}
	sort.Strings(idsSorted)

	for _, id := range idsSorted {
		if id == "" {
			continue
		}
		if v, cid := claimObjFor(id); v != nil && cid != "" {
			st := v.ClaimStatus(cid)
			canon := v.ResolveID(cid)
			cobj := v.ClaimsByID[cid]
			if id != rootKey && cobj != nil && !opts.IncludeInactive && (st != "active" || !claimValidAsOf(cobj, asOf)) {
				continue
			}
			claimsOut = append(claimsOut, compactClaimOut(v, cid, st, canon))
			continue
		}
		if v, nid := nodeObjFor(id); v != nil && nid != "" {
			st := v.NodeStatus(nid)
			canon := v.ResolveID(nid)
			if id != rootKey && !opts.IncludeInactive && st != "active" {
				continue
			}
			nodesOut = append(nodesOut, compactNodeOut(v, nid, st, canon))
			continue
		}
		missing = append(missing, id)
	}

	var edgesOut []map[string]any
	for _, e := range collectedEdges {
		frm := asStr(e["from_id"])
		to := asStr(e["to_id"])
		frmC := frm
		toC := to
		if frm != "" {
			frmC = nodeKey(frm)
		}
		if to != "" {
			toC = nodeKey(to)
		}
		edgesOut = append(edgesOut, edgeOut(e, frmC, toC, opts.IncludeAliases))
	}

	sort.SliceStable(edgesOut, func(i, j int) bool { return asStr(edgesOut[i]["asserted_ts"]) > asStr(edgesOut[j]["asserted_ts"]) })
	sort.SliceStable(claimsOut, func(i, j int) bool { return asStr(claimsOut[i]["asserted_ts"]) > asStr(claimsOut[j]["asserted_ts"]) })
	sort.SliceStable(nodesOut, func(i, j int) bool { return asStr(nodesOut[i]["asserted_ts"]) > asStr(nodesOut[j]["asserted_ts"]) })
	sort.Strings(missing)

	etypesOut := make([]string, 0, len(etypes))
	for k := range etypes {
		etypesOut = append(etypesOut, k)
	}
	sort.Strings(etypesOut)

	return Subgraph{
		RootID:          rid,
		RootIDCanonical: rootKey,
		Depth:           depth,
		Direction:       direction,
		EdgeTypes:       etypesOut,
		IncludeInactive: opts.IncludeInactive,
		IncludeAliases:  opts.IncludeAliases,
		AsOfTS:          asOf,
		Claims:          emptyIfNil(claimsOut),
		Nodes:           emptyIfNil(nodesOut),
		Edges:           emptyIfNil(edgesOut),
		MissingIDs:      emptyIfNilStr(missing),
	}, nil
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
