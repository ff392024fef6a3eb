// Package paths resolves the Knowledge Core's filesystem layout: the home
// directory, per-project state directories keyed by a deterministic project
// id, and the global (cross-project) store.
//
// Grounded on original_source/mi/core/paths.py.
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultHomeDir returns $MI_HOME, or ~/.mind-incarnation when unset.
func DefaultHomeDir() string {
	if h := strings.TrimSpace(os.Getenv("MI_HOME")); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".mind-incarnation")
}

// ProjectIDForIdentityKey derives a deterministic 16-hex-char project id from
// a project identity key (see Identity). Empty input yields "".
func ProjectIDForIdentityKey(identityKey string) string {
	key := strings.TrimSpace(identityKey)
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

func projectsDir(homeDir string) string {
	return filepath.Join(homeDir, "projects")
}

var scpLikeRx = regexp.MustCompile(`^[^@]+@([^:]+):(.+)$`)

// normalizeGitRemote reduces a git remote URL to a stable "host/path" key so
// the same repo cloned via different URL forms maps to one identity.
func normalizeGitRemote(url string) string {
	u := strings.TrimSpace(url)
	if u == "" {
		return ""
	}
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, ".git")

	if m := scpLikeRx.FindStringSubmatch(u); m != nil {
		host := strings.ToLower(strings.TrimSpace(m[1]))
		path := strings.TrimLeft(strings.TrimSpace(m[2]), "/")
		return host + "/" + path
	}

	if strings.Contains(u, "://") {
		if idx := strings.Index(u, "://"); idx >= 0 {
			rest := u[idx+3:]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				host := strings.ToLower(strings.TrimSpace(rest[:slash]))
				path := strings.TrimLeft(strings.TrimSpace(rest[slash+1:]), "/")
				if host != "" && path != "" {
					return host + "/" + path
				}
			}
		}
	}
	return u
}

// Identity is the best-effort project identity computed by ComputeIdentity.
type Identity struct {
	Kind          string `json:"kind"` // "git" or "path"
	Key           string `json:"key"`
	RepoKey       string `json:"repo_key,omitempty"`
	GitToplevel   string `json:"git_toplevel,omitempty"`
	GitRelpath    string `json:"git_relpath,omitempty"`
	GitOrigin     string `json:"git_origin,omitempty"`
	GitOriginNorm string `json:"git_origin_norm,omitempty"`
	GitRootCommit string `json:"git_root_commit,omitempty"`
	RootPath      string `json:"root_path"`
}

var commitIDRx = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// ComputeIdentity computes a best-effort identity for projectRoot: for git
// repos it uses the remote origin URL (or, failing that, the repo's root
// commit or toplevel path) plus a stable relpath within the repo, so
// subprojects of a monorepo don't collide; for non-git trees it falls back to
// the resolved absolute path.
func ComputeIdentity(projectRoot string) Identity {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		root = projectRoot
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	inside := gitAvailable() && strings.EqualFold(runGit(root, []string{"rev-parse", "--is-inside-work-tree"}, 2000), "true")
	if !inside {
		return Identity{Kind: "path", Key: "path:" + root, RootPath: root}
	}

	toplevel := strings.TrimSpace(runGit(root, []string{"rev-parse", "--show-toplevel"}, 2000))
	toplevelAbs := root
	if toplevel != "" {
		if abs, err := filepath.Abs(toplevel); err == nil {
			toplevelAbs = abs
		}
	}

	origin := strings.TrimSpace(runGit(toplevelAbs, []string{"config", "--get", "remote.origin.url"}, 2000))
	originNorm := normalizeGitRemote(origin)

	rootCommitOut := runGit(toplevelAbs, []string{"rev-list", "--max-parents=0", "HEAD"}, 3000)
	rootCommit := ""
	if lines := strings.Split(rootCommitOut, "\n"); len(lines) > 0 {
		rootCommit = strings.TrimSpace(lines[0])
	}
	if rootCommit != "" && !commitIDRx.MatchString(rootCommit) {
		rootCommit = ""
	}

	rel, err := filepath.Rel(toplevelAbs, root)
	if err != nil {
		rel = ""
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		rel = ""
	}

	repoKey := ""
	switch {
	case originNorm != "":
		repoKey = "origin:" + originNorm
	case rootCommit != "":
		repoKey = "root:" + rootCommit
	default:
		repoKey = "toplevel:" + toplevelAbs
	}

	key := "git:" + repoKey
	if rel != "" {
		key += ":" + rel
	}

	return Identity{
		Kind:          "git",
		Key:           key,
		RepoKey:       repoKey,
		GitToplevel:   toplevelAbs,
		GitRelpath:    rel,
		GitOrigin:     origin,
		GitOriginNorm: originNorm,
		GitRootCommit: rootCommit,
		RootPath:      root,
	}
}

// ResolveProjectID resolves the deterministic project id for projectRoot.
// Stable across path moves/clones for git repos (via identity key), falling
// back to a hash of the absolute path in the defensive case.
func ResolveProjectID(projectRoot string) string {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		root = projectRoot
	}
	ident := ComputeIdentity(root)
	if pid := ProjectIDForIdentityKey(ident.Key); pid != "" {
		return pid
	}
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:])[:16]
}

// ProjectPaths resolves the on-disk layout for one project under homeDir.
type ProjectPaths struct {
	HomeDir     string
	ProjectRoot string
	projectID   string
}

// NewProjectPaths resolves projectID (via ResolveProjectID) and returns a
// ProjectPaths rooted at homeDir.
func NewProjectPaths(homeDir, projectRoot string) ProjectPaths {
	return ProjectPaths{HomeDir: homeDir, ProjectRoot: projectRoot, projectID: ResolveProjectID(projectRoot)}
}

// NewProjectPathsWithID builds a ProjectPaths for an already-known project
// id, skipping identity resolution (used when the id is read back from the
// project selection registry).
func NewProjectPathsWithID(homeDir, projectRoot, projectID string) ProjectPaths {
	return ProjectPaths{HomeDir: homeDir, ProjectRoot: projectRoot, projectID: projectID}
}

func (p ProjectPaths) ProjectID() string { return p.projectID }

func (p ProjectPaths) ProjectDir() string { return filepath.Join(projectsDir(p.HomeDir), p.projectID) }

func (p ProjectPaths) OverlayPath() string { return filepath.Join(p.ProjectDir(), "overlay.json") }

func (p ProjectPaths) EvidenceLogPath() string { return filepath.Join(p.ProjectDir(), "evidence.jsonl") }

func (p ProjectPaths) TranscriptsDir() string { return filepath.Join(p.ProjectDir(), "transcripts") }

func (p ProjectPaths) WorkflowsDir() string { return filepath.Join(p.ProjectDir(), "workflows") }

func (p ProjectPaths) ThoughtdbDir() string { return filepath.Join(p.ProjectDir(), "thoughtdb") }

func (p ProjectPaths) ThoughtdbClaimsPath() string { return filepath.Join(p.ThoughtdbDir(), "claims.jsonl") }

func (p ProjectPaths) ThoughtdbEdgesPath() string { return filepath.Join(p.ThoughtdbDir(), "edges.jsonl") }

func (p ProjectPaths) ThoughtdbNodesPath() string { return filepath.Join(p.ThoughtdbDir(), "nodes.jsonl") }

func (p ProjectPaths) ThoughtdbViewSnapshotPath() string {
	return filepath.Join(p.ThoughtdbDir(), "view.snapshot.json")
}

func (p ProjectPaths) WorkflowCandidatesPath() string {
	return filepath.Join(p.ProjectDir(), "workflow_candidates.json")
}

func (p ProjectPaths) PreferenceCandidatesPath() string {
	return filepath.Join(p.ProjectDir(), "preference_candidates.json")
}

func (p ProjectPaths) SegmentStatePath() string { return filepath.Join(p.ProjectDir(), "segment_state.json") }

// GlobalPaths resolves the on-disk layout for cross-project state.
type GlobalPaths struct {
	HomeDir string
}

func NewGlobalPaths(homeDir string) GlobalPaths { return GlobalPaths{HomeDir: homeDir} }

func (g GlobalPaths) GlobalDir() string { return filepath.Join(g.HomeDir, "global") }

func (g GlobalPaths) GlobalEvidenceLogPath() string {
	return filepath.Join(g.GlobalDir(), "evidence.jsonl")
}

func (g GlobalPaths) ProjectSelectionPath() string {
	return filepath.Join(g.GlobalDir(), "project_selection.json")
}

func (g GlobalPaths) GlobalWorkflowsDir() string { return filepath.Join(g.HomeDir, "workflows", "global") }

func (g GlobalPaths) IndexesDir() string { return filepath.Join(g.HomeDir, "indexes") }

func (g GlobalPaths) ThoughtdbDir() string { return filepath.Join(g.HomeDir, "thoughtdb") }

func (g GlobalPaths) ThoughtdbGlobalDir() string { return filepath.Join(g.ThoughtdbDir(), "global") }

func (g GlobalPaths) ThoughtdbGlobalClaimsPath() string {
	return filepath.Join(g.ThoughtdbGlobalDir(), "claims.jsonl")
}

func (g GlobalPaths) ThoughtdbGlobalEdgesPath() string {
	return filepath.Join(g.ThoughtdbGlobalDir(), "edges.jsonl")
}

func (g GlobalPaths) ThoughtdbGlobalNodesPath() string {
	return filepath.Join(g.ThoughtdbGlobalDir(), "nodes.jsonl")
}

func (g GlobalPaths) ThoughtdbGlobalViewSnapshotPath() string {
	return filepath.Join(g.ThoughtdbGlobalDir(), "view.snapshot.json")
}
