package defaults

import (
	"fmt"
	"strings"

	"github.com/LinLinQiQi/mindcore/internal/core/storage"
	"github.com/LinLinQiQi/mindcore/internal/evidence"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

const (
	askPrefix = "MI setting: ask_when_uncertain ="
	refPrefix = "MI setting: refactor_intent ="
)

func normSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func settingValueFromText(prefix, text string) string {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		s := strings.TrimSpace(line)
		if strings.HasPrefix(s, prefix) {
			return normSpace(s[len(prefix):])
		}
	}
	return ""
}

// AskWhenUncertainClaimText renders the canonical claim text for the
// ask-when-uncertain setting.
func AskWhenUncertainClaimText(value bool) string {
	verb := "proceed"
	if value {
		verb = "ask"
	}
	return fmt.Sprintf("%s %s", askPrefix, verb)
}

// RefactorIntentClaimText renders the canonical claim text for the
// refactor-intent setting, coercing invalid values to "behavior_preserving".
func RefactorIntentClaimText(value string) string {
	v := strings.TrimSpace(value)
	if v != "behavior_preserving" && v != "behavior_changing" {
		v = "behavior_preserving"
	}
	return fmt.Sprintf("%s %s", refPrefix, v)
}

func parseAskWhenUncertain(text string) (bool, bool) {
	v := strings.ToLower(settingValueFromText(askPrefix, text))
	switch v {
	case "ask", "true", "yes", "1":
		return true, true
	case "proceed", "false", "no", "0":
		return false, true
	}
	return false, false
}

func parseRefactorIntent(text string) string {
	v := strings.TrimSpace(settingValueFromText(refPrefix, text))
	if v == "behavior_preserving" || v == "behavior_changing" {
		return v
	}
	return ""
}

func tagSet(rec map[string]any) map[string]bool {
	out := map[string]bool{}
	for _, t := range stringListAny(rec["tags"]) {
		out[t] = true
	}
	return out
}

func stringListAny(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// findTaggedClaim finds the newest active, canonical preference/goal claim
// carrying tag in view (best-effort; returns nil if none found).
func findTaggedClaim(view *thoughtdb.View, asOfTS, tag string) map[string]any {
	var best map[string]any
	bestTS := ""
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	for _, c := range view.IterClaims(false, false, asOfTS) {
		ct, _ := c["claim_type"].(string)
		if ct != "preference" && ct != "goal" {
			continue
		}
		if !tagSet(c)[tag] {
			continue
		}
		ts, _ := c["asserted_ts"].(string)
		if ts >= bestTS {
			best = c
			bestTS = ts
		}
	}
	return best
}

// Source names which scope+claim an operational default was resolved from.
type Source struct {
	Scope   string `json:"scope"`
	ClaimID string `json:"claim_id"`
}

// OperationalDefaults is the resolved {refactor_intent, ask_when_uncertain}
// pair, with provenance for each.
type OperationalDefaults struct {
	RefactorIntent          string
	AskWhenUncertain        bool
	RefactorIntentSource    Source
	AskWhenUncertainSource  Source
}

// ResolveOperationalDefaults resolves the effective operational defaults:
// project-scope tagged claims win over global-scope ones, which in turn win
// over mindspecBase's static fallback.
func ResolveOperationalDefaults(tdb *thoughtdb.Store, mindspecBase map[string]any, asOfTS string) (OperationalDefaults, error) {
	fbRef := "behavior_preserving"
	fbAsk := true
	if base := mindspecBase; base != nil {
		if d, ok := base["defaults"].(map[string]any); ok {
			if r, ok := d["refactor_intent"].(string); ok && r != "" {
				fbRef = r
			}
			if a, ok := d["ask_when_uncertain"].(bool); ok {
				fbAsk = a
			}
		}
	}
	if fbRef != "behavior_preserving" && fbRef != "behavior_changing" {
		fbRef = "behavior_preserving"
	}

	vProj, err := tdb.LoadView("project")
	if err != nil {
		return OperationalDefaults{}, err
	}
	vGlob, err := tdb.LoadView("global")
	if err != nil {
		return OperationalDefaults{}, err
	}

	askVal, refVal := fbAsk, fbRef
	var askSrc, refSrc Source

	for _, pair := range []struct {
		view  *thoughtdb.View
		scope string
	}{{vProj, "project"}, {vGlob, "global"}} {
		c := findTaggedClaim(pair.view, asOfTS, AskWhenUncertainTag)
		if c == nil {
			continue
		}
		if parsed, ok := parseAskWhenUncertain(asString(c["text"])); ok {
			askVal = parsed
			askSrc = Source{Scope: pair.scope, ClaimID: asString(c["claim_id"])}
			break
		}
	}
	for _, pair := range []struct {
		view  *thoughtdb.View
		scope string
	}{{vProj, "project"}, {vGlob, "global"}} {
		c := findTaggedClaim(pair.view, asOfTS, RefactorIntentTag)
		if c == nil {
			continue
		}
		if parsed := parseRefactorIntent(asString(c["text"])); parsed != "" {
			refVal = parsed
			refSrc = Source{Scope: pair.scope, ClaimID: asString(c["claim_id"])}
			break
		}
	}

	return OperationalDefaults{
		RefactorIntent:         refVal,
		AskWhenUncertain:       askVal,
		RefactorIntentSource:   refSrc,
		AskWhenUncertainSource: askSrc,
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// EnsureResult reports what EnsureOperationalDefaultsClaimsCurrent did.
type EnsureResult struct {
	OK           bool           `json:"ok"`
	Changed      bool           `json:"changed"`
	Mode         string         `json:"mode"`
	EventID      string         `json:"event_id"`
	Desired      map[string]any `json:"desired"`
	WrittenIDs   []string       `json:"written_claim_ids,omitempty"`
	Superseded   []map[string]string `json:"superseded,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// EnsureOperationalDefaultsClaimsCurrent makes the global operational
// defaults canonical preference claims, append-only. mode "seed_missing"
// writes only when no tagged claim exists yet; mode "sync" keeps the global
// claims in sync with mindspecBase.defaults, superseding on change.
func EnsureOperationalDefaultsClaimsCurrent(globalEvidencePath string, tdb *thoughtdb.Store, mindspecBase map[string]any, mode, eventNotes, claimNotesPrefix string) (EnsureResult, error) {
	desiredRef := "behavior_preserving"
	desiredAsk := true
	if base := mindspecBase; base != nil {
		if d, ok := base["defaults"].(map[string]any); ok {
			if r, ok := d["refactor_intent"].(string); ok && r != "" {
				desiredRef = r
			}
			if a, ok := d["ask_when_uncertain"].(bool); ok {
				desiredAsk = a
			}
		}
	}
	if desiredRef != "behavior_preserving" && desiredRef != "behavior_changing" {
		desiredRef = "behavior_preserving"
	}
	desired := map[string]any{"refactor_intent": desiredRef, "ask_when_uncertain": desiredAsk}

	asOf := storage.NowRFC3339()
	vGlob, err := tdb.LoadView("global")
	if err != nil {
		return EnsureResult{}, err
	}

	globAsk := findTaggedClaim(vGlob, asOf, AskWhenUncertainTag)
	globAskID := ""
	var globAskVal *bool
	if globAsk != nil {
		globAskID = asString(globAsk["claim_id"])
		if v, ok := parseAskWhenUncertain(asString(globAsk["text"])); ok {
			globAskVal = &v
		}
	}

	globRef := findTaggedClaim(vGlob, asOf, RefactorIntentTag)
	globRefID := ""
	globRefVal := ""
	if globRef != nil {
		globRefID = asString(globRef["claim_id"])
		globRefVal = parseRefactorIntent(asString(globRef["text"]))
	}

	var need bool
	if mode == "seed_missing" {
		need = globAskID == "" || globRefID == ""
	} else {
		need = globAskID == "" || globAskVal == nil || *globAskVal != desiredAsk ||
			globRefID == "" || globRefVal == "" || globRefVal != desiredRef
	}

	if !need {
		return EnsureResult{OK: true, Changed: false, Mode: mode, Desired: desired}, nil
	}

	lastID, lastPayload := lastDefaultsEvent(globalEvidencePath)
	eventID := ""
	if lastID != "" && defaultsEqual(lastPayload, desired) {
		eventID = lastID
	}
	if eventID == "" {
		note := strings.TrimSpace(eventNotes)
		if note == "" {
			note = "auto_migrate"
		}
		rec, err := evidence.Append(globalEvidencePath, DefaultsEventKind, map[string]any{"defaults": desired, "notes": note})
		if err != nil {
			return EnsureResult{OK: false, Mode: mode, Desired: desired, Error: err.Error()}, nil
		}
		eventID = asString(rec["event_id"])
	}
	if eventID == "" {
		return EnsureResult{OK: false, Mode: mode, Desired: desired, Error: "failed to write defaults_set event"}, nil
	}

	sigMap, err := tdb.ExistingSignatureMap("global")
	if err != nil {
		return EnsureResult{}, err
	}

	var written []string
	var superseded []map[string]string

	upsert := func(tag, text, existingClaimID string) string {
		sig := thoughtdb.ClaimSignature("preference", "global", "", text)
		if cid0, ok := sigMap[sig]; ok {
			if existingClaimID != "" && existingClaimID != cid0 {
				if _, err := tdb.AppendEdge(thoughtdb.EdgeInput{
					EdgeType: "supersedes", FromID: existingClaimID, ToID: cid0,
					Scope: "global", Visibility: "global", SourceEventIDs: []string{eventID},
					Notes: "operational defaults dedupe",
				}); err == nil {
					superseded = append(superseded, map[string]string{"from": existingClaimID, "to": cid0})
				}
			}
			return cid0
		}

		notePrefix := strings.TrimSpace(claimNotesPrefix)
		if notePrefix == "" {
			notePrefix = "auto_migrate"
		}
		cid, err := tdb.AppendClaimCreate(thoughtdb.ClaimInput{
			ClaimType:      "preference",
			Text:           text,
			Scope:          "global",
			Visibility:     "global",
			Tags:           []string{tag, "mi:setting", "mi:defaults"},
			SourceEventIDs: []string{eventID},
			Confidence:     1.0,
			Notes:          fmt.Sprintf("%s %s %s", notePrefix, DefaultsEventKind, eventID),
		})
		if err != nil {
			return ""
		}
		written = append(written, cid)
		sigMap[sig] = cid

		if existingClaimID != "" {
			if _, err := tdb.AppendEdge(thoughtdb.EdgeInput{
				EdgeType: "supersedes", FromID: existingClaimID, ToID: cid,
				Scope: "global", Visibility: "global", SourceEventIDs: []string{eventID},
				Notes: "operational defaults update",
			}); err == nil {
				superseded = append(superseded, map[string]string{"from": existingClaimID, "to": cid})
			}
		}
		return cid
	}

	upsert(AskWhenUncertainTag, AskWhenUncertainClaimText(desiredAsk), globAskID)
	upsert(RefactorIntentTag, RefactorIntentClaimText(desiredRef), globRefID)

	return EnsureResult{
		OK: true, Changed: true, Mode: mode, EventID: eventID, Desired: desired,
		WrittenIDs: written, Superseded: superseded,
	}, nil
}

func lastDefaultsEvent(globalEvidencePath string) (string, map[string]any) {
	events, err := evidence.IterEvents(globalEvidencePath)
	if err != nil {
		return "", nil
	}
	lastID := ""
	var lastPayload map[string]any
	for _, ev := range events {
		if asString(ev["kind"]) != DefaultsEventKind {
			continue
		}
		lastID = asString(ev["event_id"])
		if p, ok := ev["payload"].(map[string]any); ok {
			lastPayload = p
		}
	}
	return lastID, lastPayload
}

func defaultsEqual(payload map[string]any, desired map[string]any) bool {
	d, ok := payload["defaults"].(map[string]any)
	if !ok {
		return false
	}
	return asString(d["refactor_intent"]) == asString(desired["refactor_intent"]) &&
		boolEqual(d["ask_when_uncertain"], desired["ask_when_uncertain"])
}

func boolEqual(a, b any) bool {
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if !aok || !bok {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return ab == bb
}

