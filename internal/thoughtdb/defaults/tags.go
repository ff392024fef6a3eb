// Package defaults resolves MindCore's operational defaults (ask-when-
// uncertain, refactor intent) and values lifecycle tags from canonical
// ThoughtDB preference/goal claims, with project claims overriding global
// ones.
//
// Grounded on original_source/mi/thoughtdb/pins.py,
// original_source/mi/thoughtdb/values.py, and
// original_source/mi/thoughtdb/operational_defaults.py.
package defaults

// Pinned preference/goal tags: claims carrying one of these are always
// surfaced by retrieval regardless of recency or query overlap.
const (
	TestlessStrategyTag  = "mi:testless_verification_strategy"
	AskWhenUncertainTag  = "mi:setting:ask_when_uncertain"
	RefactorIntentTag    = "mi:setting:refactor_intent"
)

// PinnedPrefGoalTags is the set retrieval checks against when deciding
// whether a preference/goal claim must be pinned into context.
var PinnedPrefGoalTags = map[string]bool{
	TestlessStrategyTag: true,
	AskWhenUncertainTag: true,
	RefactorIntentTag:   true,
}

// Values lifecycle tags (values.py): VALUES_BASE marks the canonical set of
// value claims surfaced in every retrieval pass; VALUES_RAW marks freeform
// mined value text excluded from query-ranked results; VALUES_SUMMARY marks
// the compacted global summary node.
const (
	ValuesBaseTag    = "values:base"
	ValuesRawTag     = "values:raw"
	ValuesSummaryTag = "values:summary"
)

const DefaultsEventKind = "mi_defaults_set"
