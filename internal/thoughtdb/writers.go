package thoughtdb

import (
	"fmt"
	"strings"

	"github.com/LinLinQiQi/mindcore/internal/core/ids"
	"github.com/LinLinQiQi/mindcore/internal/core/storage"
)

var claimTypes = map[string]bool{"fact": true, "preference": true, "assumption": true, "goal": true}
var visibilities = map[string]bool{"private": true, "project": true, "global": true}
var nodeTypes = map[string]bool{"decision": true, "action": true, "summary": true}
var edgeTypes = map[string]bool{
	"depends_on": true, "supports": true, "contradicts": true,
	"derived_from": true, "mentions": true, "supersedes": true, "same_as": true,
}

func normalizeVisibility(v string) string {
	if v == "" {
		return "project"
	}
	if !visibilities[v] {
		return "project"
	}
	return v
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func buildSourceRefs(eventIDs []string, cap int) []map[string]any {
	refs := make([]map[string]any, 0, cap)
	for _, eid := range eventIDs {
		if len(refs) >= cap {
			break
		}
		if strings.TrimSpace(eid) == "" {
			continue
		}
		refs = append(refs, map[string]any{"kind": "evidence_event", "event_id": eid})
	}
	return refs
}

func clampTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, tagsCap)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		out = dedupAppend(seen, out, tagsCap, t)
	}
	return out
}

// ClaimInput collects AppendClaimCreate's parameters.
type ClaimInput struct {
	ClaimType      string
	Text           string
	Scope          string
	Visibility     string
	ValidFrom      string
	ValidTo        string
	Tags           []string
	SourceEventIDs []string
	Confidence     float64
	Notes          string
}

// AppendClaimCreate validates and appends a new claim record, returning its
// freshly minted claim id.
func (s *Store) AppendClaimCreate(in ClaimInput) (string, error) {
	scope, err := normalizeScope(in.Scope)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", fmt.Errorf("thoughtdb: claim text is required")
	}
	claimType := in.ClaimType
	if !claimTypes[claimType] {
		claimType = "fact"
	}
	visibility := normalizeVisibility(in.Visibility)

	id := ids.NewClaimID()
	rec := map[string]any{
		"kind":        "claim",
		"version":     Version,
		"claim_id":    id,
		"claim_type":  claimType,
		"text":        text,
		"scope":       scope,
		"project_id":  s.projectIDForScope(scope),
		"visibility":  visibility,
		"asserted_ts": storage.NowRFC3339(),
		"status":      "active",
		"tags":        toAnySlice(clampTags(in.Tags)),
		"source_refs": toAnySliceMaps(buildSourceRefs(in.SourceEventIDs, claimSourceRefsCap)),
		"confidence":  clampConfidence(in.Confidence),
		"notes":       in.Notes,
	}
	if strings.TrimSpace(in.ValidFrom) != "" {
		rec["valid_from"] = in.ValidFrom
	} else {
		rec["valid_from"] = nil
	}
	if strings.TrimSpace(in.ValidTo) != "" {
		rec["valid_to"] = in.ValidTo
	} else {
		rec["valid_to"] = nil
	}

	if err := storage.AppendJSONL(s.claimsPath(scope), rec); err != nil {
		return "", fmt.Errorf("thoughtdb: append claim: %w", err)
	}
	return id, nil
}

// AppendClaimRetract appends a retraction record for claimID. Orphan
// retracts (no matching claim) are tolerated, not validated.
func (s *Store) AppendClaimRetract(claimID, scope, rationale string, sourceEventIDs []string) error {
	if strings.TrimSpace(claimID) == "" {
		return fmt.Errorf("thoughtdb: claim_id is required")
	}
	scope, err := normalizeScope(scope)
	if err != nil {
		return err
	}
	rec := map[string]any{
		"kind":        "claim_retract",
		"version":     Version,
		"ts":          storage.NowRFC3339(),
		"claim_id":    claimID,
		"rationale":   rationale,
		"source_refs": toAnySliceMaps(buildSourceRefs(sourceEventIDs, claimSourceRefsCap)),
	}
	if err := storage.AppendJSONL(s.claimsPath(scope), rec); err != nil {
		return fmt.Errorf("thoughtdb: append claim_retract: %w", err)
	}
	return nil
}

// NodeInput collects AppendNodeCreate's parameters.
type NodeInput struct {
	NodeType       string
	Title          string
	Text           string
	Scope          string
	Visibility     string
	Tags           []string
	SourceEventIDs []string
	Confidence     float64
	Notes          string
}

// AppendNodeCreate validates and appends a new node record, returning its
// freshly minted node id.
func (s *Store) AppendNodeCreate(in NodeInput) (string, error) {
	scope, err := normalizeScope(in.Scope)
	if err != nil {
		return "", err
	}
	if !nodeTypes[in.NodeType] {
		return "", fmt.Errorf("thoughtdb: invalid node_type %q (expected decision/action/summary)", in.NodeType)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", fmt.Errorf("thoughtdb: node text is required")
	}
	visibility := normalizeVisibility(in.Visibility)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		if lines := strings.SplitN(text, "\n", 2); len(lines) > 0 {
			title = strings.TrimSpace(lines[0])
		}
	}
	if len(title) > titleMaxLen {
		title = title[:titleMaxLen-3] + "..."
	}

	id := ids.NewNodeID()
	rec := map[string]any{
		"kind":        "node",
		"version":     Version,
		"node_id":     id,
		"node_type":   in.NodeType,
		"title":       title,
		"text":        text,
		"scope":       scope,
		"project_id":  s.projectIDForScope(scope),
		"visibility":  visibility,
		"asserted_ts": storage.NowRFC3339(),
		"status":      "active",
		"tags":        toAnySlice(clampTags(in.Tags)),
		"source_refs": toAnySliceMaps(buildSourceRefs(in.SourceEventIDs, nodeCreateSourceCap)),
		"confidence":  clampConfidence(in.Confidence),
		"notes":       in.Notes,
	}

	if err := storage.AppendJSONL(s.nodesPath(scope), rec); err != nil {
		return "", fmt.Errorf("thoughtdb: append node: %w", err)
	}
	return id, nil
}

// AppendNodeRetract appends a retraction record for nodeID.
func (s *Store) AppendNodeRetract(nodeID, scope, rationale string, sourceEventIDs []string) error {
	if strings.TrimSpace(nodeID) == "" {
		return fmt.Errorf("thoughtdb: node_id is required")
	}
	scope, err := normalizeScope(scope)
	if err != nil {
		return err
	}
	rec := map[string]any{
		"kind":        "node_retract",
		"version":     Version,
		"ts":          storage.NowRFC3339(),
		"node_id":     nodeID,
		"rationale":   rationale,
		"source_refs": toAnySliceMaps(buildSourceRefs(sourceEventIDs, claimSourceRefsCap)),
	}
	if err := storage.AppendJSONL(s.nodesPath(scope), rec); err != nil {
		return fmt.Errorf("thoughtdb: append node_retract: %w", err)
	}
	return nil
}

// EdgeInput collects AppendEdge's parameters.
type EdgeInput struct {
	EdgeType       string
	FromID         string
	ToID           string
	Scope          string
	Visibility     string
	SourceEventIDs []string
	Notes          string
}

// AppendEdge validates and appends a new edge record, returning its freshly
// minted edge id.
func (s *Store) AppendEdge(in EdgeInput) (string, error) {
	scope, err := normalizeScope(in.Scope)
	if err != nil {
		return "", err
	}
	if !edgeTypes[in.EdgeType] {
		return "", fmt.Errorf("thoughtdb: invalid edge_type %q", in.EdgeType)
	}
	if strings.TrimSpace(in.FromID) == "" || strings.TrimSpace(in.ToID) == "" {
		return "", fmt.Errorf("thoughtdb: from_id and to_id are required")
	}
	visibility := normalizeVisibility(in.Visibility)

	id := ids.NewEdgeID()
	rec := map[string]any{
		"kind":        "edge",
		"version":     Version,
		"edge_id":     id,
		"edge_type":   in.EdgeType,
		"from_id":     in.FromID,
		"to_id":       in.ToID,
		"scope":       scope,
		"project_id":  s.projectIDForScope(scope),
		"visibility":  visibility,
		"asserted_ts": storage.NowRFC3339(),
		"source_refs": toAnySliceMaps(buildSourceRefs(in.SourceEventIDs, claimSourceRefsCap)),
		"notes":       in.Notes,
	}

	if err := storage.AppendJSONL(s.edgesPath(scope), rec); err != nil {
		return "", fmt.Errorf("thoughtdb: append edge: %w", err)
	}
	return id, nil
}

func toAnySlice(in []string) []any {
	if in == nil {
		return []any{}
	}
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func toAnySliceMaps(in []map[string]any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
