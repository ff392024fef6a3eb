package thoughtdb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/LinLinQiQi/mindcore/internal/core/storage"
	"github.com/LinLinQiQi/mindcore/internal/paths"
)

// Store owns the three JSONL files (claims/edges/nodes) for one scope pair
// (a project scope backed by ProjectPaths, and the cross-project global
// scope backed by GlobalPaths) and materializes View reads over them,
// cached in-process and mirrored to an on-disk snapshot.
//
// Store is safe for concurrent use from multiple goroutines in the same
// process; it does not coordinate with other processes (see spec §5 — the
// CLI's optional internal/lock wraps multi-step command sequences instead).
type Store struct {
	mu           sync.Mutex
	projectPaths paths.ProjectPaths
	globalPaths  paths.GlobalPaths
	cache        map[string]*cacheEntry
}

type cacheEntry struct {
	view  *View
	metas scopeMetas
}

type scopeMetas struct {
	Claims storage.FileMeta
	Edges  storage.FileMeta
	Nodes  storage.FileMeta
}

// NewStore builds a Store rooted at homeDir, scoped to projectRoot for
// "project"-scope operations ("global"-scope operations never consult
// projectRoot).
func NewStore(homeDir, projectRoot string) *Store {
	return &Store{
		projectPaths: paths.NewProjectPaths(homeDir, projectRoot),
		globalPaths:  paths.NewGlobalPaths(homeDir),
		cache:        map[string]*cacheEntry{},
	}
}

// InvalidateCache drops the in-process cached View for scope, forcing the
// next LoadView to re-stat sources and rebuild. This is purely a
// performance hint for callers that attach an internal/watch.Watcher:
// LoadView's own metas comparison already detects on-disk changes on its
// own, so correctness never depends on this being called.
func (s *Store) InvalidateCache(scope string) {
	norm, err := normalizeScope(scope)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.cache, norm)
	s.mu.Unlock()
}

func normalizeScope(scope string) (string, error) {
	if scope == "" {
		return "project", nil
	}
	if scope != "project" && scope != "global" {
		return "", fmt.Errorf("thoughtdb: invalid scope %q (expected \"project\" or \"global\")", scope)
	}
	return scope, nil
}

func (s *Store) claimsPath(scope string) string {
	if scope == "global" {
		return s.globalPaths.ThoughtdbGlobalClaimsPath()
	}
	return s.projectPaths.ThoughtdbClaimsPath()
}

func (s *Store) edgesPath(scope string) string {
	if scope == "global" {
		return s.globalPaths.ThoughtdbGlobalEdgesPath()
	}
	return s.projectPaths.ThoughtdbEdgesPath()
}

func (s *Store) nodesPath(scope string) string {
	if scope == "global" {
		return s.globalPaths.ThoughtdbGlobalNodesPath()
	}
	return s.projectPaths.ThoughtdbNodesPath()
}

func (s *Store) viewSnapshotPath(scope string) string {
	if scope == "global" {
		return s.globalPaths.ThoughtdbGlobalViewSnapshotPath()
	}
	return s.projectPaths.ThoughtdbViewSnapshotPath()
}

func (s *Store) projectIDForScope(scope string) string {
	if scope == "global" {
		return ""
	}
	return s.projectPaths.ProjectID()
}

func (s *Store) scopeFileMetas(scope string) (scopeMetas, error) {
	cm, err := storage.StatMeta(s.claimsPath(scope))
	if err != nil {
		return scopeMetas{}, err
	}
	em, err := storage.StatMeta(s.edgesPath(scope))
	if err != nil {
		return scopeMetas{}, err
	}
	nm, err := storage.StatMeta(s.nodesPath(scope))
	if err != nil {
		return scopeMetas{}, err
	}
	return scopeMetas{Claims: cm, Edges: em, Nodes: nm}, nil
}

// LoadView returns the materialized View for scope ("project" or "global"),
// serving from the in-process cache when the source files are unchanged,
// falling back to the on-disk snapshot, and rebuilding from the JSONL
// sources as a last resort. A freshly rebuilt view is best-effort persisted
// back to the snapshot file; failure to do so is never fatal.
func (s *Store) LoadView(scope string) (*View, error) {
	scope, err := normalizeScope(scope)
	if err != nil {
		return nil, err
	}

	metas, err := s.scopeFileMetas(scope)
	if err != nil {
		return nil, fmt.Errorf("thoughtdb: stat sources for scope %s: %w", scope, err)
	}

	s.mu.Lock()
	if entry, ok := s.cache[scope]; ok && entry.metas == metas {
		s.mu.Unlock()
		return entry.view, nil
	}
	s.mu.Unlock()

	if view := s.loadViewSnapshot(scope, metas); view != nil {
		s.mu.Lock()
		s.cache[scope] = &cacheEntry{view: view, metas: metas}
		s.mu.Unlock()
		return view, nil
	}

	view, err := s.rebuildView(scope, metas)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[scope] = &cacheEntry{view: view, metas: metas}
	s.mu.Unlock()

	_ = s.writeViewSnapshot(scope, metas, view) // best-effort

	return view, nil
}

func (s *Store) rebuildView(scope string, metas scopeMetas) (*View, error) {
	view := newView(scope, s.projectIDForScope(scope))

	claimRecs, err := storage.IterJSONL(s.claimsPath(scope))
	if err != nil {
		return nil, fmt.Errorf("thoughtdb: read claims for scope %s: %w", scope, err)
	}
	for _, rec := range claimRecs {
		switch asString(rec["kind"]) {
		case "claim":
			cid := asString(rec["claim_id"])
			if cid == "" {
				continue
			}
			view.ClaimsByID[cid] = rec
			view.ClaimOrder = append(view.ClaimOrder, cid)
			for _, tag := range stringList(rec["tags"]) {
				view.ClaimsByTag[tag] = append(view.ClaimsByTag[tag], cid)
			}
		case "claim_retract":
			if cid := asString(rec["claim_id"]); cid != "" {
				view.RetractedIDs[cid] = true
			}
		}
	}

	nodeRecs, err := storage.IterJSONL(s.nodesPath(scope))
	if err != nil {
		return nil, fmt.Errorf("thoughtdb: read nodes for scope %s: %w", scope, err)
	}
	for _, rec := range nodeRecs {
		switch asString(rec["kind"]) {
		case "node":
			nid := asString(rec["node_id"])
			if nid == "" {
				continue
			}
			view.NodesByID[nid] = rec
			view.NodeOrder = append(view.NodeOrder, nid)
			for _, tag := range stringList(rec["tags"]) {
				view.NodesByTag[tag] = append(view.NodesByTag[tag], nid)
			}
		case "node_retract":
			if nid := asString(rec["node_id"]); nid != "" {
				view.RetractedNodeIDs[nid] = true
			}
		}
	}

	edgeRecs, err := storage.IterJSONL(s.edgesPath(scope))
	if err != nil {
		return nil, fmt.Errorf("thoughtdb: read edges for scope %s: %w", scope, err)
	}
	for _, rec := range edgeRecs {
		if asString(rec["kind"]) != "edge" {
			continue
		}
		from := asString(rec["from_id"])
		to := asString(rec["to_id"])
		view.Edges = append(view.Edges, rec)
		if from != "" {
			view.EdgesByFrom[from] = append(view.EdgesByFrom[from], rec)
		}
		if to != "" {
			view.EdgesByTo[to] = append(view.EdgesByTo[to], rec)
		}
		switch asString(rec["edge_type"]) {
		case "same_as":
			if from != "" && to != "" {
				view.RedirectsSameAs[from] = to
			}
		case "supersedes":
			if from != "" {
				view.SupersededIDs[from] = true
			}
		}
	}

	view.ClaimIDsByAssertedTSDesc = sortByAssertedTSDesc(view.ClaimOrder, view.ClaimsByID)
	view.NodeIDsByAssertedTSDesc = sortByAssertedTSDesc(view.NodeOrder, view.NodesByID)

	return view, nil
}

func sortByAssertedTSDesc(order []string, byID map[string]map[string]any) []string {
	out := make([]string, len(order))
	copy(out, order)
	sort.SliceStable(out, func(i, j int) bool {
		ti := asString(byID[out[i]]["asserted_ts"])
		tj := asString(byID[out[j]]["asserted_ts"])
		return ti > tj
	})
	return out
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ExistingSignatures returns the set of content-address signatures of every
// claim currently visible in scope (including inactive and aliased ones, so
// dedup catches retracted/superseded duplicates too).
func (s *Store) ExistingSignatures(scope string) (map[string]bool, error) {
	view, err := s.LoadView(scope)
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, claim := range view.IterClaims(true, true, "") {
		sig := claimSignature(asString(claim["claim_type"]), asString(claim["scope"]), asString(claim["project_id"]), asString(claim["text"]))
		out[sig] = true
	}
	return out, nil
}

// ExistingSignatureMap maps each distinct, non-aliased claim signature in
// scope to the first (canonical) claim id that carries it.
func (s *Store) ExistingSignatureMap(scope string) (map[string]string, error) {
	view, err := s.LoadView(scope)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, cid := range view.ClaimOrder {
		if _, aliased := view.RedirectsSameAs[cid]; aliased {
			continue
		}
		claim := view.ClaimsByID[cid]
		sig := claimSignature(asString(claim["claim_type"]), asString(claim["scope"]), asString(claim["project_id"]), asString(claim["text"]))
		if _, exists := out[sig]; !exists {
			out[sig] = cid
		}
	}
	return out, nil
}

// ExistingEdgeKeys returns the set of edge_key()s of every edge in scope.
func (s *Store) ExistingEdgeKeys(scope string) (map[string]bool, error) {
	view, err := s.LoadView(scope)
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, e := range view.Edges {
		out[edgeKey(asString(e["edge_type"]), asString(e["from_id"]), asString(e["to_id"]))] = true
	}
	return out, nil
}
