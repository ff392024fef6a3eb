package whytrace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// whyTracePrompt renders the why_trace prompt: the target evidence event,
// the as-of timestamp, and the bounded candidate claim list, asking the
// model to choose which candidates (by claim_id) justify the target.
func whyTracePrompt(target map[string]any, asOfTS string, candidateClaims []map[string]any) string {
	targetJSON, _ := json.MarshalIndent(target, "", "  ")
	candidatesJSON, _ := json.MarshalIndent(candidateClaims, "", "  ")

	var b strings.Builder
	b.WriteString("You are WhyTrace. Given a target evidence event and a bounded list of candidate\n")
	b.WriteString("claims, decide which candidates (if any) justify the target event.\n\n")
	fmt.Fprintf(&b, "as_of_ts: %s\n\n", asOfTS)
	b.WriteString("target:\n")
	b.Write(targetJSON)
	b.WriteString("\n\ncandidate_claims:\n")
	b.Write(candidatesJSON)
	b.WriteString("\n\nRespond with a JSON object matching the why_trace schema: ")
	b.WriteString(`{"status": "ok"|"insufficient", "confidence": 0..1, "chosen_claim_ids": [claim_id...], "explanation": string, "notes": string}.`)
	b.WriteString("\nOnly choose claim_ids that appear in candidate_claims.")
	return b.String()
}
