package textindex

import (
	"context"
	"sort"
)

// Hit is one match returned by TextIndex.Search, carrying enough metadata
// that callers never need to reconstruct scope/kind from the item id.
type Hit struct {
	ItemID    string
	Kind      string // "claim" or "node"
	Scope     string // "project" or "global"
	ProjectID string
}

// TextIndex is the injected memory-search capability retrieval (§4.4 step 4)
// and WhyTrace (§4.5 step 2d) seed their candidate lists through. Index
// below is the default, standalone implementation; callers may substitute
// their own (an external FTS service, a vector store) behind this interface.
type TextIndex interface {
	Search(ctx context.Context, query string, topK int, kinds []string, includeGlobal bool, excludeProjectID string) ([]Hit, error)
}

type doc struct {
	kind      string
	scope     string
	projectID string
	text      string
}

// Index is a tiny in-memory inverted index over (item_id, text) documents,
// each tagged with the kind/scope/project_id metadata Search needs to filter
// and return directly.
type Index struct {
	postings map[string]map[string]bool // token -> set of item ids
	docs     map[string]doc
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{postings: map[string]map[string]bool{}, docs: map[string]doc{}}
}

// Add indexes (or re-indexes) itemID under the given metadata and text.
func (x *Index) Add(itemID, kind, scope, projectID, text string) {
	x.Remove(itemID)
	x.docs[itemID] = doc{kind: kind, scope: scope, projectID: projectID, text: text}
	for _, tok := range TokenizeQuery(text, 256) {
		if x.postings[tok] == nil {
			x.postings[tok] = map[string]bool{}
		}
		x.postings[tok][itemID] = true
	}
}

// Remove drops itemID from the index, if present.
func (x *Index) Remove(itemID string) {
	d, ok := x.docs[itemID]
	if !ok {
		return
	}
	for _, tok := range TokenizeQuery(d.text, 256) {
		delete(x.postings[tok], itemID)
	}
	delete(x.docs, itemID)
}

// Search scores every indexed document by the count of query's tokens it
// contains, filters by kinds (any kind when empty), includeGlobal, and
// excludeProjectID, then returns up to topK hits sorted by score descending,
// then item id ascending for determinism. ctx is accepted for parity with
// out-of-process TextIndex implementations; this one never blocks.
func (x *Index) Search(_ context.Context, query string, topK int, kinds []string, includeGlobal bool, excludeProjectID string) ([]Hit, error) {
	tokens := TokenizeQuery(query, 18)
	kindAllow := map[string]bool{}
	for _, k := range kinds {
		kindAllow[k] = true
	}

	scores := map[string]int{}
	for _, tok := range tokens {
		for id := range x.postings[tok] {
			scores[id]++
		}
	}

	type scored struct {
		id    string
		score int
	}
	ranked := make([]scored, 0, len(scores))
	for id, score := range scores {
		d := x.docs[id]
		if len(kindAllow) > 0 && !kindAllow[d.kind] {
			continue
		}
		if d.scope == "global" {
			if !includeGlobal {
				continue
			}
		} else if excludeProjectID != "" && d.projectID == excludeProjectID {
			continue
		}
		ranked = append(ranked, scored{id: id, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]Hit, 0, len(ranked))
	for _, r := range ranked {
		d := x.docs[r.id]
		out = append(out, Hit{ItemID: r.id, Kind: d.kind, Scope: d.scope, ProjectID: d.projectID})
	}
	return out, nil
}

// Len returns the number of indexed documents.
func (x *Index) Len() int { return len(x.docs) }
