package textindex

import "github.com/LinLinQiQi/mindcore/internal/thoughtdb"

// IndexViews builds a fresh Index over every active claim and node visible
// in vProj and vGlob. Callers rebuild it from the current View on demand
// (the same way Store.LoadView itself is rebuilt from on-disk metas)
// instead of maintaining it incrementally off a writer hook, so it can never
// drift from whatever the Views last observed.
func IndexViews(vProj, vGlob *thoughtdb.View) *Index {
	idx := NewIndex()
	indexOne := func(v *thoughtdb.View, scope string) {
		if v == nil {
			return
		}
		for _, c := range v.IterClaims(false, false, "") {
			cid := viewAsStr(c["claim_id"])
			if cid == "" {
				continue
			}
			idx.Add("claim:"+scope+":"+cid, "claim", scope, v.ProjectID, viewAsStr(c["text"]))
		}
		for _, n := range v.IterNodes(false, false) {
			nid := viewAsStr(n["node_id"])
			if nid == "" {
				continue
			}
			text := viewAsStr(n["title"]) + "\n" + viewAsStr(n["text"])
			idx.Add("node:"+scope+":"+nid, "node", scope, v.ProjectID, text)
		}
	}
	indexOne(vProj, "project")
	indexOne(vGlob, "global")
	return idx
}

func viewAsStr(v any) string {
	s, _ := v.(string)
	return s
}
