// Package storage implements the filesystem primitives every other package in
// this module is built on: atomic JSON/JSONL writes, best-effort corrupt-file
// quarantine, and the RFC3339 timestamp conventions used throughout the
// Knowledge Core.
//
// # Atomicity
//
//   - AtomicWriteJSON and AtomicWriteText write to a sibling temp file and
//     rename it into place, so readers never observe a partially written file.
//   - AppendJSONL performs exactly one os.OpenFile+Write call per record, so
//     partial lines never occur even if the process is killed mid-append.
//
// # Corrupt state files
//
// ReadJSONBestEffort is for MI-owned state (view snapshots, project
// selection, candidate maps) — never for user-authored config. On a read or
// parse failure it quarantines the file (renames it to
// "<path>.corrupt.<ts>[.<n>]") and returns the caller's default, optionally
// appending a warning to a caller-supplied slice.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ReadJSON reads and unmarshals the JSON object at path into v. A missing
// file is not an error; v is left unmodified.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("storage: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: parse %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes obj to path as indented, sort-keys JSON, non-atomically.
func WriteJSON(path string, obj any) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := marshalSorted(obj, true)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// AppendJSONL appends one compact JSON line to path, creating parent dirs
// and the file itself if needed.
func AppendJSONL(path string, obj any) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := marshalSorted(obj, false)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("storage: append %s: %w", path, err)
	}
	return nil
}

// IterJSONL reads every line of path and unmarshals it into a
// map[string]any, skipping blank lines. A missing file yields an empty,
// nil-error result.
func IterJSONL(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	var out []map[string]any
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, fmt.Errorf("storage: parse line in %s: %w", path, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// NowRFC3339 returns the current UTC time formatted as
// "2006-01-02T15:04:05Z" (second precision, matching the reference
// implementation's deliberate omission of sub-second digits).
func NowRFC3339() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// AtomicWriteText writes text to path via a sibling temp file plus rename.
func AtomicWriteText(path string, text string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("storage: write temp for %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: rename temp for %s: %w", path, err)
	}
	return nil
}

// AtomicWriteJSON writes obj to path atomically (indented, sort-keys JSON).
func AtomicWriteJSON(path string, obj any) error {
	data, err := marshalSorted(obj, true)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", path, err)
	}
	return AtomicWriteText(path, string(data)+"\n")
}

// FilenameSafeTS converts an RFC3339 timestamp into a filename-safe stamp,
// e.g. "2026-02-22T12:34:56Z" -> "20260222T123456Z".
func FilenameSafeTS(ts string) string {
	s := ts
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, ":", "")
	return s
}

// FileMeta is the (size, mtime_ns) pair used to validate view snapshots.
type FileMeta struct {
	Size    int64 `json:"size"`
	MtimeNS int64 `json:"mtime_ns"`
}

// StatMeta returns the (size, mtime_ns) of path, or the zero value if the
// file does not exist.
func StatMeta(path string) (FileMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileMeta{}, nil
		}
		return FileMeta{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return FileMeta{Size: info.Size(), MtimeNS: info.ModTime().UnixNano()}, nil
}

// Sha256File returns the lowercase hex SHA-256 digest of path's contents.
func Sha256File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("storage: sha256 read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// TristateBool parses an environment variable into a tri-state boolean:
// unset/empty -> nil, truthy -> true, falsy -> false, any other non-empty
// value -> true (prefer being loud over silently hiding warnings).
func TristateBool(name string) *bool {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	switch s {
	case "1", "true", "yes", "y", "on":
		v := true
		return &v
	case "0", "false", "no", "n", "off":
		v := false
		return &v
	default:
		v := true
		return &v
	}
}

// QuarantineCorruptFile best-effort renames path to
// "<path>.corrupt.<ts>[.<n>]", trying suffixes 1..99 until an unused name is
// found. Returns the destination path, or "" if quarantine itself failed.
func QuarantineCorruptFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	stamp := FilenameSafeTS(NowRFC3339())
	base := fmt.Sprintf("%s.corrupt.%s", abs, stamp)
	dest := base
	for i := 1; i < 100; i++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = fmt.Sprintf("%s.%d", base, i)
	}
	if err := os.Rename(abs, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Warning records one best-effort state-file quarantine event, in the shape
// callers may append to a warnings slice or cite in a state_corrupt evidence
// record.
type Warning struct {
	Path            string `json:"path"`
	Label           string `json:"label"`
	Error           string `json:"error"`
	QuarantinedTo   string `json:"quarantined_to"`
	QuarantineError string `json:"quarantine_error"`
	UsedDefault     bool   `json:"used_default"`
}

// ReadJSONBestEffort reads the JSON object at path into v, tolerating
// corruption: on any read or parse failure it quarantines the file and
// leaves v untouched (the caller's zero/default value stands), optionally
// appending a Warning to warnings. Label defaults to the file's base name.
//
// Per spec §6.4 / §7: when warnings is nil, stderr printing defaults to "on"
// (no sink supplied to inspect the warning programmatically); when warnings
// is non-nil, stderr printing is suppressed unless MI_STATE_WARNINGS_STDERR
// forces it. The tri-state env var always overrides this default.
func ReadJSONBestEffort(path string, v any, label string, warnings *[]Warning) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			quarantineAndWarn(path, label, err, warnings)
		}
		return // missing file: caller's default/zero value stands
	}

	if err := json.Unmarshal(data, v); err == nil {
		return
	} else {
		quarantineAndWarn(path, label, err, warnings)
	}
}

func quarantineAndWarn(path, label string, readErr error, warnings *[]Warning) {
	dest, qerr := QuarantineCorruptFile(path)
	lbl := strings.TrimSpace(label)
	if lbl == "" {
		lbl = filepath.Base(path)
	}
	w := Warning{
		Path:        path,
		Label:       lbl,
		Error:       readErr.Error(),
		UsedDefault: true,
	}
	w.QuarantinedTo = dest
	if qerr != nil {
		w.QuarantineError = qerr.Error()
	}
	if warnings != nil {
		*warnings = append(*warnings, w)
	}

	force := TristateBool("MI_STATE_WARNINGS_STDERR")
	shouldPrint := warnings == nil
	if force != nil {
		shouldPrint = *force
	}
	if shouldPrint {
		fmt.Fprintf(os.Stderr, "[mindcore] state read failed; quarantined and continued. label=%s path=%s\n", w.Label, w.Path)
	}
}

func marshalSorted(obj any, indent bool) ([]byte, error) {
	// encoding/json already sorts map[string]any keys; struct field order is
	// preserved as declared, matching the "sorted keys" intent for the
	// map-shaped records this module writes.
	if indent {
		return json.MarshalIndent(obj, "", "  ")
	}
	return json.Marshal(obj)
}
