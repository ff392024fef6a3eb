package thoughtdb

import (
	"sort"

	"github.com/LinLinQiQi/mindcore/internal/core/storage"
)

type snapshotFileMeta struct {
	Size    int64 `json:"size"`
	MtimeNS int64 `json:"mtime_ns"`
}

type snapshotSourceMetas struct {
	Claims snapshotFileMeta `json:"claims"`
	Edges  snapshotFileMeta `json:"edges"`
	Nodes  snapshotFileMeta `json:"nodes"`
}

type snapshotView struct {
	ClaimsByID       map[string]map[string]any `json:"claims_by_id"`
	NodesByID        map[string]map[string]any `json:"nodes_by_id"`
	Edges            []map[string]any          `json:"edges"`
	RedirectsSameAs  map[string]string          `json:"redirects_same_as"`
	SupersededIDs    []string                   `json:"superseded_ids"`
	RetractedIDs     []string                   `json:"retracted_ids"`
	RetractedNodeIDs []string                   `json:"retracted_node_ids"`
	ClaimOrder       []string                   `json:"claim_order"`
	NodeOrder        []string                   `json:"node_order"`
}

type snapshotFile struct {
	Kind        string              `json:"kind"`
	Version     string              `json:"version"`
	BuiltTS     string              `json:"built_ts"`
	Scope       string              `json:"scope"`
	ProjectID   string              `json:"project_id"`
	SourceMetas snapshotSourceMetas `json:"source_metas"`
	View        snapshotView        `json:"view"`
}

func toSnapshotMeta(m storage.FileMeta) snapshotFileMeta {
	return snapshotFileMeta{Size: m.Size, MtimeNS: m.MtimeNS}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// writeViewSnapshot best-effort persists view to the scope's snapshot file.
func (s *Store) writeViewSnapshot(scope string, metas scopeMetas, view *View) error {
	snap := snapshotFile{
		Kind:      viewSnapshotKind,
		Version:   viewSnapshotVersion,
		BuiltTS:   storage.NowRFC3339(),
		Scope:     scope,
		ProjectID: s.projectIDForScope(scope),
		SourceMetas: snapshotSourceMetas{
			Claims: toSnapshotMeta(metas.Claims),
			Edges:  toSnapshotMeta(metas.Edges),
			Nodes:  toSnapshotMeta(metas.Nodes),
		},
		View: snapshotView{
			ClaimsByID:       view.ClaimsByID,
			NodesByID:        view.NodesByID,
			Edges:            view.Edges,
			RedirectsSameAs:  view.RedirectsSameAs,
			SupersededIDs:    sortedKeys(view.SupersededIDs),
			RetractedIDs:     sortedKeys(view.RetractedIDs),
			RetractedNodeIDs: sortedKeys(view.RetractedNodeIDs),
			ClaimOrder:       view.ClaimOrder,
			NodeOrder:        view.NodeOrder,
		},
	}
	return storage.AtomicWriteJSON(s.viewSnapshotPath(scope), snap)
}

// loadViewSnapshot reads and validates the scope's persisted snapshot,
// returning nil (never an error) on any structural mismatch or read
// failure — the caller falls back to a full JSONL rebuild.
func (s *Store) loadViewSnapshot(scope string, metas scopeMetas) *View {
	var snap snapshotFile
	if err := storage.ReadJSON(s.viewSnapshotPath(scope), &snap); err != nil {
		return nil
	}
	if snap.Kind != viewSnapshotKind || snap.Version != viewSnapshotVersion || snap.Scope != scope {
		return nil
	}
	want := snapshotSourceMetas{
		Claims: toSnapshotMeta(metas.Claims),
		Edges:  toSnapshotMeta(metas.Edges),
		Nodes:  toSnapshotMeta(metas.Nodes),
	}
	if snap.SourceMetas != want {
		return nil
	}

	view := newView(scope, snap.ProjectID)
	view.ClaimsByID = snap.View.ClaimsByID
	if view.ClaimsByID == nil {
		view.ClaimsByID = map[string]map[string]any{}
	}
	view.NodesByID = snap.View.NodesByID
	if view.NodesByID == nil {
		view.NodesByID = map[string]map[string]any{}
	}
	view.Edges = snap.View.Edges
	view.RedirectsSameAs = snap.View.RedirectsSameAs
	if view.RedirectsSameAs == nil {
		view.RedirectsSameAs = map[string]string{}
	}
	for _, id := range snap.View.SupersededIDs {
		view.SupersededIDs[id] = true
	}
	for _, id := range snap.View.RetractedIDs {
		view.RetractedIDs[id] = true
	}
	for _, id := range snap.View.RetractedNodeIDs {
		view.RetractedNodeIDs[id] = true
	}
	view.ClaimOrder = snap.View.ClaimOrder
	view.NodeOrder = snap.View.NodeOrder
	if view.ClaimOrder == nil && len(view.ClaimsByID) > 0 {
		return nil // structurally inconsistent snapshot, rebuild from scratch
	}
	if view.NodeOrder == nil && len(view.NodesByID) > 0 {
		return nil
	}

	for cid, claim := range view.ClaimsByID {
		for _, tag := range stringList(claim["tags"]) {
			view.ClaimsByTag[tag] = append(view.ClaimsByTag[tag], cid)
		}
	}
	for nid, node := range view.NodesByID {
		for _, tag := range stringList(node["tags"]) {
			view.NodesByTag[tag] = append(view.NodesByTag[tag], nid)
		}
	}
	for _, e := range view.Edges {
		from := asString(e["from_id"])
		to := asString(e["to_id"])
		if from != "" {
			view.EdgesByFrom[from] = append(view.EdgesByFrom[from], e)
		}
		if to != "" {
			view.EdgesByTo[to] = append(view.EdgesByTo[to], e)
		}
	}

	view.ClaimIDsByAssertedTSDesc = sortByAssertedTSDesc(view.ClaimOrder, view.ClaimsByID)
	view.NodeIDsByAssertedTSDesc = sortByAssertedTSDesc(view.NodeOrder, view.NodesByID)

	return view
}
