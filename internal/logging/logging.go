// Package logging provides the warnings-sink policy shared by callers that
// surface best-effort diagnostics (corrupt-state quarantines, compaction
// notes, WhyTrace skips) without making stderr output mandatory, plus a
// rotating file logger for the CLI's optional long-running diagnostics.
package logging

import (
	"fmt"
	"os"

	"github.com/LinLinQiQi/mindcore/internal/core/storage"
)

// Policy is the tri-state MI_STATE_WARNINGS_STDERR policy from spec §6.4:
// Always forces stderr printing regardless of sink, Never suppresses it
// regardless of sink, and OnlyIfNoSink (the default) prints only when the
// caller supplied no Sink to inspect the warning programmatically.
type Policy int

const (
	OnlyIfNoSink Policy = iota
	Always
	Never
)

// WarningsStderrPolicy reads MI_STATE_WARNINGS_STDERR the same way
// storage.TristateBool does, returning the resolved Policy.
func WarningsStderrPolicy() Policy {
	switch v := storage.TristateBool("MI_STATE_WARNINGS_STDERR"); {
	case v == nil:
		return OnlyIfNoSink
	case *v:
		return Always
	default:
		return Never
	}
}

// Sink receives warnings a caller wants to inspect programmatically instead
// of (or in addition to) seeing on stderr.
type Sink interface {
	Warn(msg string, fields map[string]any)
}

// StderrSink writes warnings to stderr immediately; passing one to Emit
// means "I have a sink" for policy purposes but still prints.
type StderrSink struct{}

func (StderrSink) Warn(msg string, fields map[string]any) {
	fmt.Fprintf(os.Stderr, "[mindcore] %s %v\n", msg, fields)
}

// SliceSink appends every warning it receives, for callers (tests, the CLI's
// --json mode) that want to inspect warnings without stderr noise.
type SliceSink struct {
	Warnings []Warning
}

type Warning struct {
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields,omitempty"`
}

func NewSliceSink() *SliceSink {
	return &SliceSink{}
}

func (s *SliceSink) Warn(msg string, fields map[string]any) {
	s.Warnings = append(s.Warnings, Warning{Msg: msg, Fields: fields})
}

// Emit reports msg/fields to sink (when non-nil) and, per policy, to stderr:
// Always always prints, Never never prints, OnlyIfNoSink prints only when
// sink is nil. The tri-state env var always wins over this default, which
// callers get for free by resolving policy via WarningsStderrPolicy.
func Emit(sink Sink, policy Policy, msg string, fields map[string]any) {
	if sink != nil {
		sink.Warn(msg, fields)
	}

	var shouldPrint bool
	switch policy {
	case Always:
		shouldPrint = true
	case Never:
		shouldPrint = false
	default: // OnlyIfNoSink
		shouldPrint = sink == nil
	}
	if shouldPrint {
		fmt.Fprintf(os.Stderr, "[mindcore] %s %v\n", msg, fields)
	}
}
