// Package ids generates the namespaced identifiers used throughout the
// Knowledge Core: event ids (ev_), claim ids (cl_), node ids (nd_), edge ids
// (ed_), and run ids, all built from the wall-clock time in nanoseconds plus a
// random hex suffix to stay unique even across processes sharing a path.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to a
		// time-derived suffix rather than panicking the writer.
		return fmt.Sprintf("%0*x", n*2, time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// NewRunID returns an opaque, process-unique run identifier for one
// EvidenceLog writer session, e.g. "run_1706000000000000000_a1b2c3d4".
func NewRunID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), randomHex(4))
}

// NewClaimID returns a fresh claim id, "cl_<ns-time>_<8 hex digits>".
func NewClaimID() string { return nsTimeID("cl") }

// NewNodeID returns a fresh node id, "nd_<ns-time>_<8 hex digits>".
func NewNodeID() string { return nsTimeID("nd") }

// NewEdgeID returns a fresh edge id, "ed_<ns-time>_<8 hex digits>".
func NewEdgeID() string { return nsTimeID("ed") }

func nsTimeID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), randomHex(4))
}

// FormatEventID formats an EvidenceLog event id: "ev_<run_id>_<6-digit-seq>".
func FormatEventID(runID string, seq int) string {
	return fmt.Sprintf("ev_%s_%06d", runID, seq)
}
