// Package compaction rewrites a Thought DB directory's claims/edges/nodes
// JSONL files into a compacted form: one current record per claim/node id,
// one current record per edge key, trailing retractions preserved in
// observed order. The previous files are archived gzip-compressed first,
// and the view snapshot is deleted so the next LoadView rebuilds it.
//
// Grounded on original_source/mi/thoughtdb/compaction.py.
package compaction

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/LinLinQiQi/mindcore/internal/core/storage"
)

const manifestKind = "mi.thoughtdb.compaction_manifest"
const manifestVersion = "v1"

// FileResult records the archive + rewrite outcome for one of the three
// JSONL files.
type FileResult struct {
	Archive      ArchiveResult `json:"archive"`
	CompactStats CompactStats  `json:"compact_stats"`
	Write        WriteResult   `json:"write"`
}

// ArchiveResult reports what happened when archiving one source file.
type ArchiveResult struct {
	Path          string `json:"path"`
	Status        string `json:"status"` // skip | plan | archived
	Reason        string `json:"reason,omitempty"`
	ArchivePath   string `json:"archive_path,omitempty"`
	OriginalBytes int64  `json:"original_bytes,omitempty"`
	GzipBytes     int64  `json:"gzip_bytes,omitempty"`
	SHA256        string `json:"sha256,omitempty"`
}

// CompactStats reports per-file input/output line counts.
type CompactStats struct {
	InputLines  int `json:"input_lines"`
	OutputLines int `json:"output_lines"`
	Kept        int `json:"kept,omitempty"`
	Retracts    int `json:"retracts,omitempty"`
	UniqueKeys  int `json:"unique_keys,omitempty"`
}

// WriteResult reports what happened writing the compacted file.
type WriteResult struct {
	Path   string `json:"path"`
	Status string `json:"status"` // plan | written
	Lines  int    `json:"lines"`
	Bytes  int64  `json:"bytes"`
}

// SnapshotResult reports the view-snapshot invalidation outcome.
type SnapshotResult struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
	Status  string `json:"status,omitempty"`
}

// Result is the full report returned by CompactThoughtDBDir.
type Result struct {
	OK            bool                  `json:"ok"`
	DryRun        bool                  `json:"dry_run"`
	ThoughtDBDir  string                `json:"thoughtdb_dir"`
	ArchiveDir    string                `json:"archive_dir"`
	Files         map[string]FileResult `json:"files"`
	Snapshot      SnapshotResult        `json:"snapshot"`
	ManifestPath  string                `json:"manifest_path,omitempty"`
}

func asStr(v any) string {
	s, _ := v.(string)
	return s
}

func sha256FileOrEmpty(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	sum, err := storage.Sha256File(path)
	if err != nil {
		return ""
	}
	return sum
}

func compactClaimsJSONL(path string) ([]map[string]any, CompactStats, error) {
	recs, err := storage.IterJSONL(path)
	if err != nil {
		return nil, CompactStats{}, err
	}

	claimsByID := map[string]map[string]any{}
	claimOrder := []string{}
	type idxRec struct {
		idx int
		obj map[string]any
	}
	retractLast := map[string]idxRec{}
	unknown := map[string]bool{}

	for idx, obj := range recs {
		kind := strings.TrimSpace(asStr(obj["kind"]))
		switch kind {
		case "claim":
			cid := strings.TrimSpace(asStr(obj["claim_id"]))
			if cid != "" {
				if _, exists := claimsByID[cid]; !exists {
					claimOrder = append(claimOrder, cid)
				}
				claimsByID[cid] = obj
			}
		case "claim_retract":
			cid := strings.TrimSpace(asStr(obj["claim_id"]))
			if cid != "" {
				retractLast[cid] = idxRec{idx: idx, obj: obj}
			}
		case "":
		default:
			unknown[kind] = true
		}
	}
	if len(unknown) > 0 {
		return nil, CompactStats{}, fmt.Errorf("compaction: unknown claims record kinds: %v", sortedKeys(unknown))
	}

	creates := make([]map[string]any, 0, len(claimOrder))
	for _, cid := range claimOrder {
		creates = append(creates, claimsByID[cid])
	}
	sort.SliceStable(creates, func(i, j int) bool {
		ti, tj := asStr(creates[i]["asserted_ts"]), asStr(creates[j]["asserted_ts"])
		if ti != tj {
			return ti < tj
		}
		return asStr(creates[i]["claim_id"]) < asStr(creates[j]["claim_id"])
	})

	retractRows := make([]idxRec, 0, len(retractLast))
	for _, r := range retractLast {
		retractRows = append(retractRows, r)
	}
	sort.Slice(retractRows, func(i, j int) bool { return retractRows[i].idx < retractRows[j].idx })

	rows := make([]map[string]any, 0, len(creates)+len(retractRows))
	rows = append(rows, creates...)
	for _, r := range retractRows {
		rows = append(rows, r.obj)
	}

	stats := CompactStats{InputLines: len(recs), OutputLines: len(rows), Kept: len(claimsByID), Retracts: len(retractLast)}
	return rows, stats, nil
}

func compactNodesJSONL(path string) ([]map[string]any, CompactStats, error) {
	recs, err := storage.IterJSONL(path)
	if err != nil {
		return nil, CompactStats{}, err
	}

	nodesByID := map[string]map[string]any{}
	nodeOrder := []string{}
	type idxRec struct {
		idx int
		obj map[string]any
	}
	retractLast := map[string]idxRec{}
	unknown := map[string]bool{}

	for idx, obj := range recs {
		kind := strings.TrimSpace(asStr(obj["kind"]))
		switch kind {
		case "node":
			nid := strings.TrimSpace(asStr(obj["node_id"]))
			if nid != "" {
				if _, exists := nodesByID[nid]; !exists {
					nodeOrder = append(nodeOrder, nid)
				}
				nodesByID[nid] = obj
			}
		case "node_retract":
			nid := strings.TrimSpace(asStr(obj["node_id"]))
			if nid != "" {
				retractLast[nid] = idxRec{idx: idx, obj: obj}
			}
		case "":
		default:
			unknown[kind] = true
		}
	}
	if len(unknown) > 0 {
		return nil, CompactStats{}, fmt.Errorf("compaction: unknown nodes record kinds: %v", sortedKeys(unknown))
	}

	creates := make([]map[string]any, 0, len(nodeOrder))
	for _, nid := range nodeOrder {
		creates = append(creates, nodesByID[nid])
	}
	sort.SliceStable(creates, func(i, j int) bool {
		ti, tj := asStr(creates[i]["asserted_ts"]), asStr(creates[j]["asserted_ts"])
		if ti != tj {
			return ti < tj
		}
		return asStr(creates[i]["node_id"]) < asStr(creates[j]["node_id"])
	})

	retractRows := make([]idxRec, 0, len(retractLast))
	for _, r := range retractLast {
		retractRows = append(retractRows, r)
	}
	sort.Slice(retractRows, func(i, j int) bool { return retractRows[i].idx < retractRows[j].idx })

	rows := make([]map[string]any, 0, len(creates)+len(retractRows))
	rows = append(rows, creates...)
	for _, r := range retractRows {
		rows = append(rows, r.obj)
	}

	stats := CompactStats{InputLines: len(recs), OutputLines: len(rows), Kept: len(nodesByID), Retracts: len(retractLast)}
	return rows, stats, nil
}

func edgeKeyForRecord(obj map[string]any, idx int) string {
	et := strings.TrimSpace(asStr(obj["edge_type"]))
	frm := strings.TrimSpace(asStr(obj["from_id"]))
	to := strings.TrimSpace(asStr(obj["to_id"]))
	if et != "" && frm != "" && to != "" {
		return et + "|" + frm + "|" + to
	}
	if eid := strings.TrimSpace(asStr(obj["edge_id"])); eid != "" {
		return "edge_id:" + eid
	}
	return fmt.Sprintf("idx:%d", idx)
}

func compactEdgesJSONL(path string) ([]map[string]any, CompactStats, error) {
	recs, err := storage.IterJSONL(path)
	if err != nil {
		return nil, CompactStats{}, err
	}

	unknown := map[string]bool{}
	lastIndex := map[string]int{}
	for idx, obj := range recs {
		kind := strings.TrimSpace(asStr(obj["kind"]))
		if kind != "edge" {
			if kind != "" {
				unknown[kind] = true
			}
			continue
		}
		lastIndex[edgeKeyForRecord(obj, idx)] = idx
	}
	if len(unknown) > 0 {
		return nil, CompactStats{}, fmt.Errorf("compaction: unknown edges record kinds: %v", sortedKeys(unknown))
	}

	var out []map[string]any
	for idx, obj := range recs {
		if strings.TrimSpace(asStr(obj["kind"])) != "edge" {
			continue
		}
		key := edgeKeyForRecord(obj, idx)
		if lastIndex[key] == idx {
			out = append(out, obj)
		}
	}

	stats := CompactStats{InputLines: len(recs), OutputLines: len(out), UniqueKeys: len(lastIndex)}
	return out, stats, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func archiveGzip(src, destGz string, dryRun bool) (ArchiveResult, error) {
	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return ArchiveResult{Path: src, Status: "skip", Reason: "missing"}, nil
	}
	if _, err := os.Stat(destGz); err == nil {
		return ArchiveResult{Path: src, Status: "skip", Reason: "archive_exists", ArchivePath: destGz}, nil
	}
	if dryRun {
		return ArchiveResult{Path: src, Status: "plan", ArchivePath: destGz, OriginalBytes: info.Size()}, nil
	}

	if err := storage.EnsureDir(filepath.Dir(destGz)); err != nil {
		return ArchiveResult{}, fmt.Errorf("compaction: ensure archive dir: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("compaction: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(destGz)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("compaction: create %s: %w", destGz, err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	written, err := io.Copy(gz, in)
	if err != nil {
		gz.Close()
		return ArchiveResult{}, fmt.Errorf("compaction: gzip %s: %w", src, err)
	}
	if err := gz.Close(); err != nil {
		return ArchiveResult{}, fmt.Errorf("compaction: close gzip %s: %w", destGz, err)
	}

	sum, err := storage.Sha256File(src)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("compaction: sha256 %s: %w", src, err)
	}
	gzInfo, _ := os.Stat(destGz)
	var gzBytes int64
	if gzInfo != nil {
		gzBytes = gzInfo.Size()
	}
	return ArchiveResult{Path: src, Status: "archived", ArchivePath: destGz, OriginalBytes: written, GzipBytes: gzBytes, SHA256: sum}, nil
}

func atomicWriteJSONL(path string, rows []map[string]any, dryRun bool) (WriteResult, error) {
	var n int
	var bytesOut int64
	if dryRun {
		for _, obj := range rows {
			line, err := json.Marshal(sortedObj(obj))
			if err != nil {
				return WriteResult{}, fmt.Errorf("compaction: marshal dry-run row: %w", err)
			}
			bytesOut += int64(len(line)) + 1
			n++
		}
		return WriteResult{Path: path, Status: "plan", Lines: n, Bytes: bytesOut}, nil
	}

	if err := storage.EnsureDir(filepath.Dir(path)); err != nil {
		return WriteResult{}, fmt.Errorf("compaction: ensure dir: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	f, err := os.Create(tmp)
	if err != nil {
		return WriteResult{}, fmt.Errorf("compaction: create temp file: %w", err)
	}
	for _, obj := range rows {
		line, err := json.Marshal(sortedObj(obj))
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return WriteResult{}, fmt.Errorf("compaction: marshal row: %w", err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			f.Close()
			os.Remove(tmp)
			return WriteResult{}, fmt.Errorf("compaction: write row: %w", err)
		}
		bytesOut += int64(len(line)) + 1
		n++
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return WriteResult{}, fmt.Errorf("compaction: close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return WriteResult{}, fmt.Errorf("compaction: rename into place: %w", err)
	}
	return WriteResult{Path: path, Status: "written", Lines: n, Bytes: bytesOut}, nil
}

// sortedObj is a no-op placeholder for key-sorted JSON encoding: Go's
// encoding/json already emits map keys sorted, unlike Python's dict
// iteration order, so no separate sort step is required here.
func sortedObj(obj map[string]any) map[string]any { return obj }

type manifestFile struct {
	Path   string `json:"path" toml:"path"`
	SHA256 string `json:"sha256" toml:"sha256"`
}

type manifest struct {
	Kind         string                  `json:"kind" toml:"kind"`
	Version      string                  `json:"version" toml:"version"`
	TS           string                  `json:"ts" toml:"ts"`
	ThoughtDBDir string                  `json:"thoughtdb_dir" toml:"thoughtdb_dir"`
	Files        map[string]manifestFile `json:"files" toml:"files"`
}

// CompactThoughtDBDir archives thoughtdbDir's three JSONL files under
// <thoughtdbDir>/archive/<ts>/ as gzip, rewrites them compacted, and deletes
// snapshotPath so the next LoadView rebuilds from the compacted files.
// dryRun computes the full plan (including archive skip/plan dispositions
// and output line/byte counts) without writing or deleting anything.
func CompactThoughtDBDir(thoughtdbDir, snapshotPath string, dryRun bool) (Result, error) {
	claimsPath := filepath.Join(thoughtdbDir, "claims.jsonl")
	edgesPath := filepath.Join(thoughtdbDir, "edges.jsonl")
	nodesPath := filepath.Join(thoughtdbDir, "nodes.jsonl")

	stamp := storage.FilenameSafeTS(storage.NowRFC3339())
	archiveDir := filepath.Join(thoughtdbDir, "archive", stamp)

	result := Result{
		OK: true, DryRun: dryRun, ThoughtDBDir: thoughtdbDir, ArchiveDir: archiveDir,
		Files:    map[string]FileResult{},
		Snapshot: SnapshotResult{Path: snapshotPath, Deleted: false},
	}

	claimsRows, claimsStats, err := compactClaimsJSONL(claimsPath)
	if err != nil {
		return Result{}, err
	}
	edgesRows, edgesStats, err := compactEdgesJSONL(edgesPath)
	if err != nil {
		return Result{}, err
	}
	nodesRows, nodesStats, err := compactNodesJSONL(nodesPath)
	if err != nil {
		return Result{}, err
	}

	claimsArchive, err := archiveGzip(claimsPath, filepath.Join(archiveDir, "claims.jsonl.gz"), dryRun)
	if err != nil {
		return Result{}, err
	}
	edgesArchive, err := archiveGzip(edgesPath, filepath.Join(archiveDir, "edges.jsonl.gz"), dryRun)
	if err != nil {
		return Result{}, err
	}
	nodesArchive, err := archiveGzip(nodesPath, filepath.Join(archiveDir, "nodes.jsonl.gz"), dryRun)
	if err != nil {
		return Result{}, err
	}

	claimsWrite, err := atomicWriteJSONL(claimsPath, claimsRows, dryRun)
	if err != nil {
		return Result{}, err
	}
	edgesWrite, err := atomicWriteJSONL(edgesPath, edgesRows, dryRun)
	if err != nil {
		return Result{}, err
	}
	nodesWrite, err := atomicWriteJSONL(nodesPath, nodesRows, dryRun)
	if err != nil {
		return Result{}, err
	}

	result.Files["claims"] = FileResult{Archive: claimsArchive, CompactStats: claimsStats, Write: claimsWrite}
	result.Files["edges"] = FileResult{Archive: edgesArchive, CompactStats: edgesStats, Write: edgesWrite}
	result.Files["nodes"] = FileResult{Archive: nodesArchive, CompactStats: nodesStats, Write: nodesWrite}

	if _, err := os.Stat(snapshotPath); err == nil {
		if dryRun {
			result.Snapshot.Deleted = true
			result.Snapshot.Status = "plan_delete"
		} else if rmErr := os.Remove(snapshotPath); rmErr != nil {
			result.Snapshot.Status = "delete_failed:" + rmErr.Error()
		} else {
			result.Snapshot.Deleted = true
			result.Snapshot.Status = "deleted"
		}
	}

	if !dryRun {
		man := manifest{
			Kind: manifestKind, Version: manifestVersion, TS: storage.NowRFC3339(), ThoughtDBDir: thoughtdbDir,
			Files: map[string]manifestFile{
				"claims": {Path: claimsPath, SHA256: sha256FileOrEmpty(claimsPath)},
				"edges":  {Path: edgesPath, SHA256: sha256FileOrEmpty(edgesPath)},
				"nodes":  {Path: nodesPath, SHA256: sha256FileOrEmpty(nodesPath)},
			},
		}
		if err := storage.EnsureDir(archiveDir); err == nil {
			manifestPath := filepath.Join(archiveDir, "manifest.json")
			if writeErr := storage.WriteJSON(manifestPath, man); writeErr == nil {
				result.ManifestPath = manifestPath
			}
			// Best-effort human-auditable TOML mirror, never authoritative:
			// compaction idempotence always re-reads manifest.json.
			tomlPath := filepath.Join(archiveDir, "manifest.toml")
			if f, tErr := os.Create(tomlPath); tErr == nil {
				_ = toml.NewEncoder(f).Encode(man)
				_ = f.Close()
			}
		}
	}

	return result, nil
}
