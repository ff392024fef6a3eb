package thoughtdb

import (
	"fmt"
	"sort"
	"strings"
)

// MinedOutput is the shape a mining pass (LLM or heuristic) reports back:
// candidate claims and edges to ingest, each carrying its own confidence and
// a local_id the edges section may reference.
type MinedOutput struct {
	Claims []MinedClaim `json:"claims"`
	Edges  []MinedEdge  `json:"edges"`
}

type MinedClaim struct {
	LocalID        string   `json:"local_id"`
	ClaimType      string   `json:"claim_type"`
	Text           string   `json:"text"`
	Scope          string   `json:"scope"`
	Visibility     string   `json:"visibility"`
	Tags           []string `json:"tags"`
	SourceEventIDs []string `json:"source_event_ids"`
	Confidence     float64  `json:"confidence"`
	Notes          string   `json:"notes"`
}

type MinedEdge struct {
	EdgeType       string   `json:"edge_type"`
	FromClaimID    string   `json:"from_claim_id"` // local_id or existing claim_id
	ToClaimID      string   `json:"to_claim_id"`
	SourceEventIDs []string `json:"source_event_ids"`
	Confidence     float64  `json:"confidence"`
	Notes          string   `json:"notes"`
}

// MiningSkip records why a mined candidate was rejected.
type MiningSkip struct {
	LocalID string `json:"local_id,omitempty"`
	EdgeRef string `json:"edge_ref,omitempty"`
	Reason  string `json:"reason"`
}

// MiningResult is the outcome of ApplyMinedOutput: which claims were
// written, which were linked to an existing duplicate, which edges were
// written, and everything that was skipped (with a reason).
type MiningResult struct {
	Written        []string     `json:"written"`
	LinkedExisting []string     `json:"linked_existing"`
	WrittenEdges   []string     `json:"written_edges"`
	Skipped        []MiningSkip `json:"skipped"`
}

// ApplyMinedClaims is a back-compat wrapper around ApplyMinedOutput that
// ingests claims only (no edges), returning just the written/skipped lists.
func (s *Store) ApplyMinedClaims(minedClaims []MinedClaim, allowedEventIDs []string, minConfidence float64, maxClaims int) (MiningResult, error) {
	res, err := s.ApplyMinedOutput(MinedOutput{Claims: minedClaims}, allowedEventIDs, minConfidence, maxClaims)
	if err != nil {
		return MiningResult{}, err
	}
	return MiningResult{Written: res.Written, Skipped: res.Skipped}, nil
}

// ApplyMinedOutput is the content-addressed ingestion pipeline for mined
// claims and edges: it filters by confidence, deduplicates against existing
// claim signatures (by scope), rejects cross-scope edges, clamps edge
// visibility to the minimum of its endpoints, and validates source_event_ids
// against the caller-supplied allow-list before writing anything.
func (s *Store) ApplyMinedOutput(output MinedOutput, allowedEventIDs []string, minConfidence float64, maxClaims int) (MiningResult, error) {
	minConf := minConfidence
	if minConf < 0 || minConf > 1 {
		minConf = 0.9
	}
	maxN := maxClaims
	if maxN < 0 {
		maxN = 0
	}
	if maxN > 20 {
		maxN = 20
	}

	allowed := map[string]bool{}
	for _, eid := range allowedEventIDs {
		allowed[eid] = true
	}

	res := MiningResult{Written: []string{}, LinkedExisting: []string{}, WrittenEdges: []string{}, Skipped: []MiningSkip{}}

	candidates := make([]MinedClaim, 0, len(output.Claims))
	for i, c := range output.Claims {
		if strings.TrimSpace(c.Text) == "" || c.Confidence < minConf {
			continue
		}
		if strings.TrimSpace(c.LocalID) == "" {
			c.LocalID = fmt.Sprintf("c%d", i+1)
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Confidence > candidates[j].Confidence })
	if len(candidates) > maxN {
		candidates = candidates[:maxN]
	}

	seenLocalIDs := map[string]bool{}
	// per-scope in-memory tracking for this batch, merged with on-disk state
	existingSigByScope := map[string]map[string]bool{}
	existingSigToIDByScope := map[string]map[string]string{}
	localToClaim := map[string]string{}
	localScope := map[string]string{}
	localVisibility := map[string]string{}

	scopeSigs := func(scope string) (map[string]bool, map[string]string, error) {
		if _, ok := existingSigByScope[scope]; !ok {
			sigs, err := s.ExistingSignatures(scope)
			if err != nil {
				return nil, nil, err
			}
			sigMap, err := s.ExistingSignatureMap(scope)
			if err != nil {
				return nil, nil, err
			}
			existingSigByScope[scope] = sigs
			existingSigToIDByScope[scope] = sigMap
		}
		return existingSigByScope[scope], existingSigToIDByScope[scope], nil
	}

	for _, c := range candidates {
		if seenLocalIDs[c.LocalID] {
			res.Skipped = append(res.Skipped, MiningSkip{LocalID: c.LocalID, Reason: "duplicate_local_id"})
			continue
		}
		seenLocalIDs[c.LocalID] = true

		scope, err := normalizeScope(c.Scope)
		if err != nil {
			scope = "project"
		}
		visibility := normalizeVisibility(c.Visibility)

		var validEventIDs []string
		for _, eid := range c.SourceEventIDs {
			if allowed[eid] {
				validEventIDs = append(validEventIDs, eid)
			}
		}
		if len(c.SourceEventIDs) > 0 && len(validEventIDs) == 0 {
			res.Skipped = append(res.Skipped, MiningSkip{LocalID: c.LocalID, Reason: "no_valid_source_event_ids"})
			continue
		}

		claimType := c.ClaimType
		if !claimTypes[claimType] {
			claimType = "fact"
		}
		sig := claimSignature(claimType, scope, s.projectIDForScope(scope), c.Text)

		sigs, sigToID, err := scopeSigs(scope)
		if err != nil {
			return res, err
		}
		if sigs[sig] {
			if existingID, ok := sigToID[sig]; ok {
				res.LinkedExisting = append(res.LinkedExisting, existingID)
				localToClaim[c.LocalID] = existingID
				localScope[c.LocalID] = scope
				localVisibility[c.LocalID] = visibility
			}
			res.Skipped = append(res.Skipped, MiningSkip{LocalID: c.LocalID, Reason: "duplicate_signature"})
			continue
		}

		claimID, err := s.AppendClaimCreate(ClaimInput{
			ClaimType:      claimType,
			Text:           c.Text,
			Scope:          scope,
			Visibility:     visibility,
			Tags:           c.Tags,
			SourceEventIDs: validEventIDs,
			Confidence:     c.Confidence,
			Notes:          c.Notes,
		})
		if err != nil {
			res.Skipped = append(res.Skipped, MiningSkip{LocalID: c.LocalID, Reason: "write_error:" + errTypeName(err)})
			continue
		}

		sigs[sig] = true
		sigToID[sig] = claimID
		localToClaim[c.LocalID] = claimID
		localScope[c.LocalID] = scope
		localVisibility[c.LocalID] = visibility
		res.Written = append(res.Written, claimID)
	}

	if len(output.Edges) == 0 {
		return res, nil
	}

	viewProject, err := s.LoadView("project")
	if err != nil {
		return res, err
	}
	viewGlobal, err := s.LoadView("global")
	if err != nil {
		return res, err
	}
	edgeKeysByScope := map[string]map[string]bool{}
	for _, scope := range []string{"project", "global"} {
		keys, err := s.ExistingEdgeKeys(scope)
		if err != nil {
			return res, err
		}
		edgeKeysByScope[scope] = keys
	}

	resolveRef := func(ref string) (scope, claimID, visibility string, ok bool) {
		if cid, found := localToClaim[ref]; found {
			return localScope[ref], cid, localVisibility[ref], true
		}
		if claim, found := viewProject.ClaimsByID[ref]; found {
			return "project", ref, normalizeVisibility(asString(claim["visibility"])), true
		}
		if claim, found := viewGlobal.ClaimsByID[ref]; found {
			return "global", ref, normalizeVisibility(asString(claim["visibility"])), true
		}
		return "", "", "", false
	}

	maxEdges := maxN * 6
	if maxEdges < 0 {
		maxEdges = 0
	}
	if maxEdges > 40 {
		maxEdges = 40
	}

	edges := output.Edges
	if len(edges) > maxEdges {
		edges = edges[:maxEdges]
	}

	for _, e := range edges {
		ref := e.FromClaimID + "->" + e.ToClaimID
		if !edgeTypes[e.EdgeType] || strings.TrimSpace(e.FromClaimID) == "" || strings.TrimSpace(e.ToClaimID) == "" {
			res.Skipped = append(res.Skipped, MiningSkip{EdgeRef: ref, Reason: "missing_fields"})
			continue
		}
		if e.Confidence < minConf {
			res.Skipped = append(res.Skipped, MiningSkip{EdgeRef: ref, Reason: "below_confidence"})
			continue
		}
		scope1, from, vis1, ok1 := resolveRef(e.FromClaimID)
		scope2, to, vis2, ok2 := resolveRef(e.ToClaimID)
		if !ok1 || !ok2 {
			res.Skipped = append(res.Skipped, MiningSkip{EdgeRef: ref, Reason: "unresolved_ref"})
			continue
		}
		if scope1 != scope2 {
			res.Skipped = append(res.Skipped, MiningSkip{EdgeRef: ref, Reason: "cross_scope"})
			continue
		}
		key := edgeKey(e.EdgeType, from, to)
		if edgeKeysByScope[scope1][key] {
			res.Skipped = append(res.Skipped, MiningSkip{EdgeRef: ref, Reason: "duplicate_edge"})
			continue
		}

		var validEventIDs []string
		for _, eid := range e.SourceEventIDs {
			if allowed[eid] {
				validEventIDs = append(validEventIDs, eid)
			}
		}
		if len(e.SourceEventIDs) > 0 && len(validEventIDs) == 0 {
			res.Skipped = append(res.Skipped, MiningSkip{EdgeRef: ref, Reason: "no_valid_source_event_ids"})
			continue
		}

		edgeID, err := s.AppendEdge(EdgeInput{
			EdgeType:       e.EdgeType,
			FromID:         from,
			ToID:           to,
			Scope:          scope1,
			Visibility:     minVisibility(vis1, vis2),
			SourceEventIDs: validEventIDs,
			Notes:          e.Notes,
		})
		if err != nil {
			res.Skipped = append(res.Skipped, MiningSkip{EdgeRef: ref, Reason: "write_error:" + errTypeName(err)})
			continue
		}
		edgeKeysByScope[scope1][key] = true
		res.WrittenEdges = append(res.WrittenEdges, edgeID)
	}

	return res, nil
}

func errTypeName(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%T", err)
}
