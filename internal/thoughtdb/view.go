package thoughtdb

import "strings"

// View is the materialized, read-only projection of one scope's claims,
// nodes, and edges: derived indices over the append-only JSONL stores, built
// by Store.LoadView and never mutated after construction (callers needing a
// fresher view call LoadView again).
type View struct {
	Scope     string
	ProjectID string

	ClaimsByID map[string]map[string]any
	NodesByID  map[string]map[string]any
	Edges      []map[string]any

	// ClaimOrder/NodeOrder preserve JSONL append order, mirroring the
	// reference implementation's reliance on Python dict insertion order
	// when iterating claims_by_id/nodes_by_id.
	ClaimOrder []string
	NodeOrder  []string

	RedirectsSameAs  map[string]string
	SupersededIDs    map[string]bool
	RetractedIDs     map[string]bool
	RetractedNodeIDs map[string]bool

	ClaimsByTag map[string][]string
	NodesByTag  map[string][]string
	EdgesByFrom map[string][]map[string]any
	EdgesByTo   map[string][]map[string]any

	ClaimIDsByAssertedTSDesc []string
	NodeIDsByAssertedTSDesc  []string
}

func newView(scope, projectID string) *View {
	return &View{
		Scope:            scope,
		ProjectID:        projectID,
		ClaimsByID:       map[string]map[string]any{},
		NodesByID:        map[string]map[string]any{},
		RedirectsSameAs:  map[string]string{},
		SupersededIDs:    map[string]bool{},
		RetractedIDs:     map[string]bool{},
		RetractedNodeIDs: map[string]bool{},
		ClaimsByTag:      map[string][]string{},
		NodesByTag:       map[string][]string{},
		EdgesByFrom:      map[string][]map[string]any{},
		EdgesByTo:        map[string][]map[string]any{},
	}
}

// ResolveID follows same_as redirects from id to its canonical target.
func (v *View) ResolveID(id string) string {
	return followRedirects(id, v.RedirectsSameAs, maxRedirectHops)
}

// ClaimStatus reports "retracted", "superseded", "active", or "unknown" for
// a claim id (resolving aliases first). An empty id is always "unknown".
func (v *View) ClaimStatus(claimID string) string {
	if strings.TrimSpace(claimID) == "" {
		return "unknown"
	}
	rid := v.ResolveID(claimID)
	switch {
	case v.RetractedIDs[rid]:
		return "retracted"
	case v.SupersededIDs[rid]:
		return "superseded"
	}
	if _, ok := v.ClaimsByID[rid]; ok {
		return "active"
	}
	return "unknown"
}

// NodeStatus reports "retracted" or "active"/"unknown" for a node id. Nodes
// have no supersedes/same_as semantics distinct from claims in this store,
// so aliasing resolution is shared via ResolveID.
func (v *View) NodeStatus(nodeID string) string {
	if strings.TrimSpace(nodeID) == "" {
		return "unknown"
	}
	rid := v.ResolveID(nodeID)
	if v.RetractedNodeIDs[rid] {
		return "retracted"
	}
	if _, ok := v.NodesByID[rid]; ok {
		return "active"
	}
	return "unknown"
}

func timeInRange(asOfTS, validFrom, validTo string) bool {
	if asOfTS == "" {
		return true
	}
	vf := strings.TrimSpace(validFrom)
	if vf != "" && vf > asOfTS {
		return false
	}
	vt := strings.TrimSpace(validTo)
	if vt != "" && asOfTS >= vt {
		return false
	}
	return true
}

// IterClaims yields every claim in JSONL append order, each annotated with
// its derived "status" and "canonical_id". Aliased claims (the source of a
// same_as redirect) are skipped unless includeAliases; non-active claims are
// skipped unless includeInactive; when asOfTS is non-empty, claims not valid
// at that instant are skipped.
func (v *View) IterClaims(includeInactive, includeAliases bool, asOfTS string) []map[string]any {
	out := make([]map[string]any, 0, len(v.ClaimOrder))
	for _, cid := range v.ClaimOrder {
		claim, ok := v.ClaimsByID[cid]
		if !ok {
			continue
		}
		if _, aliased := v.RedirectsSameAs[cid]; aliased && !includeAliases {
			continue
		}
		status := v.ClaimStatus(cid)
		if status != "active" && !includeInactive {
			continue
		}
		if asOfTS != "" && !timeInRange(asOfTS, asString(claim["valid_from"]), asString(claim["valid_to"])) {
			continue
		}
		rec := cloneRecord(claim)
		rec["status"] = status
		rec["canonical_id"] = v.ResolveID(cid)
		out = append(out, rec)
	}
	return out
}

// IterNodes mirrors IterClaims for nodes (no temporal filtering: nodes carry
// no valid_from/valid_to).
func (v *View) IterNodes(includeInactive, includeAliases bool) []map[string]any {
	out := make([]map[string]any, 0, len(v.NodeOrder))
	for _, nid := range v.NodeOrder {
		node, ok := v.NodesByID[nid]
		if !ok {
			continue
		}
		if _, aliased := v.RedirectsSameAs[nid]; aliased && !includeAliases {
			continue
		}
		status := v.NodeStatus(nid)
		if status != "active" && !includeInactive {
			continue
		}
		rec := cloneRecord(node)
		rec["status"] = status
		rec["canonical_id"] = v.ResolveID(nid)
		out = append(out, rec)
	}
	return out
}
