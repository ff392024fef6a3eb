package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/config"
	"github.com/LinLinQiQi/mindcore/internal/paths"
	"github.com/LinLinQiQi/mindcore/internal/textindex"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

var rootCmd = &cobra.Command{
	Use:   "mindctl",
	Short: "Inspect and mutate a mindcore Knowledge Core store",
	Long: `mindctl is a thin command-line front end over the mindcore library:
EvidenceLog, ThoughtDB claims/nodes/edges, retrieval context, WhyTrace,
subgraph extraction, and compaction. Each subcommand performs exactly one
core operation and prints its result as JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Initialize()
	},
}

func init() {
	rootCmd.PersistentFlags().String("home", "", "mindcore home directory (default: the configured home / MIND_HOME, else MI_HOME, else ~/.mind-incarnation)")
	rootCmd.PersistentFlags().String("project", "", "project root directory (default: current directory)")
	rootCmd.PersistentFlags().Bool("json", true, "print results as JSON (default on; mindctl has no other output mode)")
	rootCmd.PersistentFlags().Bool("lock", false, "acquire an advisory file lock around the write")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mindctl:", err)
		return err
	}
	return nil
}

func resolveHomeDir(cmd *cobra.Command) string {
	if h, _ := cmd.Flags().GetString("home"); h != "" {
		return h
	}
	if h := config.Home(); h != "" {
		return h
	}
	return paths.DefaultHomeDir()
}

func resolveProjectRoot(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("project"); p != "" {
		return p
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func newStore(cmd *cobra.Command) (*thoughtdb.Store, paths.ProjectPaths, paths.GlobalPaths) {
	home := resolveHomeDir(cmd)
	root := resolveProjectRoot(cmd)
	return thoughtdb.NewStore(home, root), paths.NewProjectPaths(home, root), paths.NewGlobalPaths(home)
}

// buildTextIndex loads store's project and global Views and rebuilds a
// fresh in-memory TextIndex over their claims and nodes, the way every CLI
// command that injects a memory_index keeps it in sync with the current
// store state instead of handing retrieval/WhyTrace a permanently empty one.
func buildTextIndex(store *thoughtdb.Store) (textindex.TextIndex, error) {
	vProj, err := store.LoadView("project")
	if err != nil {
		return nil, err
	}
	vGlob, err := store.LoadView("global")
	if err != nil {
		return nil, err
	}
	return textindex.IndexViews(vProj, vGlob), nil
}

func lockTimeout(cmd *cobra.Command) time.Duration {
	return config.LockTimeout()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
