package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/LinLinQiQi/mindcore/internal/core/storage"
)

const projectSelectionVersion = "v1"

var aliasNameRx = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// SelectionEntry is one "@last"/"@pinned"/alias entry in the project
// selection registry.
type SelectionEntry struct {
	TS        string   `json:"ts"`
	RootPath  string   `json:"root_path"`
	ProjectID string   `json:"project_id"`
	Identity  Identity `json:"identity"`
}

type selectionRegistry struct {
	Version string                     `json:"version"`
	Last    *SelectionEntry            `json:"last,omitempty"`
	Pinned  *SelectionEntry            `json:"pinned,omitempty"`
	Aliases map[string]*SelectionEntry `json:"aliases"`
}

func defaultSelectionRegistry() *selectionRegistry {
	return &selectionRegistry{Version: projectSelectionVersion, Aliases: map[string]*SelectionEntry{}}
}

// ProjectSelectionPath returns the path to the non-canonical project
// selection registry under homeDir.
func ProjectSelectionPath(homeDir string) string {
	return NewGlobalPaths(homeDir).ProjectSelectionPath()
}

// LoadProjectSelection loads the registry, best-effort: corrupt or missing
// state never errors, it just yields an empty registry.
func LoadProjectSelection(homeDir string) *selectionRegistry {
	path := ProjectSelectionPath(homeDir)
	out := defaultSelectionRegistry()
	var warnings []storage.Warning
	storage.ReadJSONBestEffort(path, out, "project_selection", &warnings)
	if out.Aliases == nil {
		out.Aliases = map[string]*SelectionEntry{}
	}
	if out.Version == "" {
		out.Version = projectSelectionVersion
	}
	return out
}

func writeProjectSelection(homeDir string, reg *selectionRegistry) error {
	return storage.AtomicWriteJSON(ProjectSelectionPath(homeDir), reg)
}

func selectionEntryForRoot(homeDir, projectRoot string) (SelectionEntry, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return SelectionEntry{}, err
	}
	pp := NewProjectPaths(homeDir, root)
	ident := ComputeIdentity(root)
	return SelectionEntry{
		TS:        storage.NowRFC3339(),
		RootPath:  root,
		ProjectID: pp.ProjectID(),
		Identity:  ident,
	}, nil
}

// RecordLastProjectSelection sets the "@last" project (best-effort).
func RecordLastProjectSelection(homeDir, projectRoot string) (SelectionEntry, error) {
	entry, err := selectionEntryForRoot(homeDir, projectRoot)
	if err != nil {
		return entry, fmt.Errorf("paths: record last selection: %w", err)
	}
	reg := LoadProjectSelection(homeDir)
	reg.Last = &entry
	if err := writeProjectSelection(homeDir, reg); err != nil {
		return entry, fmt.Errorf("paths: record last selection: %w", err)
	}
	return entry, nil
}

// SetPinnedProjectSelection sets the "@pinned" project (best-effort).
func SetPinnedProjectSelection(homeDir, projectRoot string) (SelectionEntry, error) {
	entry, err := selectionEntryForRoot(homeDir, projectRoot)
	if err != nil {
		return entry, fmt.Errorf("paths: set pinned selection: %w", err)
	}
	reg := LoadProjectSelection(homeDir)
	reg.Pinned = &entry
	if err := writeProjectSelection(homeDir, reg); err != nil {
		return entry, fmt.Errorf("paths: set pinned selection: %w", err)
	}
	return entry, nil
}

// ClearPinnedProjectSelection removes the "@pinned" entry.
func ClearPinnedProjectSelection(homeDir string) error {
	reg := LoadProjectSelection(homeDir)
	reg.Pinned = nil
	return writeProjectSelection(homeDir, reg)
}

// NormalizeProjectAlias validates name against the alias charset
// ([A-Za-z0-9][A-Za-z0-9._-]{0,63}), returning "" if invalid.
func NormalizeProjectAlias(name string) string {
	n := strings.TrimSpace(name)
	if n == "" || !aliasNameRx.MatchString(n) {
		return ""
	}
	return n
}

// SetProjectAlias adds or updates an alias entry.
func SetProjectAlias(homeDir, name, projectRoot string) (SelectionEntry, error) {
	alias := NormalizeProjectAlias(name)
	if alias == "" {
		return SelectionEntry{}, fmt.Errorf("paths: invalid alias name (expected [A-Za-z0-9][A-Za-z0-9._-]{0,63})")
	}
	entry, err := selectionEntryForRoot(homeDir, projectRoot)
	if err != nil {
		return entry, fmt.Errorf("paths: set alias %s: %w", alias, err)
	}
	reg := LoadProjectSelection(homeDir)
	reg.Aliases[alias] = &entry
	if err := writeProjectSelection(homeDir, reg); err != nil {
		return entry, fmt.Errorf("paths: set alias %s: %w", alias, err)
	}
	return entry, nil
}

// RemoveProjectAlias deletes an alias entry, reporting whether it existed.
func RemoveProjectAlias(homeDir, name string) bool {
	alias := NormalizeProjectAlias(name)
	if alias == "" {
		return false
	}
	reg := LoadProjectSelection(homeDir)
	if _, ok := reg.Aliases[alias]; !ok {
		return false
	}
	delete(reg.Aliases, alias)
	_ = writeProjectSelection(homeDir, reg)
	return true
}

// ListProjectAliases returns all registered aliases.
func ListProjectAliases(homeDir string) map[string]SelectionEntry {
	reg := LoadProjectSelection(homeDir)
	out := make(map[string]SelectionEntry, len(reg.Aliases))
	for k, v := range reg.Aliases {
		if v != nil && strings.TrimSpace(k) != "" {
			out[k] = *v
		}
	}
	return out
}

// ResolveProjectSelectionToken resolves "@last", "@pinned", or "@<alias>"
// into an existing root path, or "" if unresolved/stale.
func ResolveProjectSelectionToken(homeDir, token string) string {
	tok := strings.TrimSpace(token)
	tok = strings.TrimPrefix(tok, "@")
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ""
	}

	reg := LoadProjectSelection(homeDir)
	var entry *SelectionEntry
	switch tok {
	case "last":
		entry = reg.Last
	case "pinned":
		entry = reg.Pinned
	default:
		entry = reg.Aliases[tok]
	}
	if entry == nil || strings.TrimSpace(entry.RootPath) == "" {
		return ""
	}
	if _, err := os.Stat(entry.RootPath); err != nil {
		return ""
	}
	return entry.RootPath
}

// ResolveCLIProjectRoot resolves the effective project root for CLI
// commands. Resolution order: explicit cd (supporting @last/@pinned/@alias)
// > here (force cwd) > $MI_CD > known cwd project root > git toplevel >
// pinned > last > cwd. Returns (root, reason).
func ResolveCLIProjectRoot(homeDir, cd, cwd string, here bool) (string, string) {
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}

	cdS := strings.TrimSpace(cd)
	if cdS != "" {
		if strings.HasPrefix(cdS, "@") {
			if p := ResolveProjectSelectionToken(homeDir, cdS); p != "" {
				return p, "arg:" + cdS
			}
			abs, _ := filepath.Abs(cwd)
			return abs, "error:alias_missing:" + cdS
		}
		abs, err := filepath.Abs(expandUser(cdS))
		if err != nil {
			abs = cdS
		}
		return abs, "arg"
	}

	cur, err := filepath.Abs(cwd)
	if err != nil {
		cur = cwd
	}
	if here {
		return cur, "here"
	}

	if envCD := strings.TrimSpace(os.Getenv("MI_CD")); envCD != "" {
		if strings.HasPrefix(envCD, "@") {
			if p := ResolveProjectSelectionToken(homeDir, envCD); p != "" {
				return p, "env:MI_CD:" + envCD
			}
		} else if abs, err := filepath.Abs(expandUser(envCD)); err == nil {
			if _, statErr := os.Stat(abs); statErr == nil {
				return abs, "env:MI_CD"
			}
		}
	}

	identCur := ComputeIdentity(cur)
	pidCur := ProjectIDForIdentityKey(identCur.Key)
	if pidCur != "" {
		if info, err := os.Stat(filepath.Join(projectsDir(homeDir), pidCur)); err == nil && info.IsDir() {
			return cur, "known:cwd"
		}
	}

	if identCur.GitToplevel != "" {
		top := identCur.GitToplevel
		if top != cur {
			identTop := ComputeIdentity(top)
			pidTop := ProjectIDForIdentityKey(identTop.Key)
			if pidTop != "" {
				if info, err := os.Stat(filepath.Join(projectsDir(homeDir), pidTop)); err == nil && info.IsDir() {
					return top, "known:git_toplevel"
				}
			}
			return top, "git_toplevel"
		}
	}

	if pinned := ResolveProjectSelectionToken(homeDir, "@pinned"); pinned != "" {
		return pinned, "pinned"
	}
	if last := ResolveProjectSelectionToken(homeDir, "@last"); last != "" {
		return last, "last"
	}

	return cur, "cwd"
}

func expandUser(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}
