package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/lock"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb/compaction"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact a ThoughtDB scope directory",
}

var compactRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Rewrite a scope's JSONL files to last-writer-wins form, archiving the originals",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, projectPaths, globalPaths := newStore(cmd)
		scope, _ := cmd.Flags().GetString("scope")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		useLock, _ := cmd.Flags().GetBool("lock")

		dir := projectPaths.ThoughtdbDir()
		snapshotPath := projectPaths.ThoughtdbViewSnapshotPath()
		if strings.EqualFold(scope, "global") {
			dir = globalPaths.ThoughtdbGlobalDir()
			snapshotPath = globalPaths.ThoughtdbGlobalViewSnapshotPath()
		}

		var result compaction.Result
		run := func() error {
			var err error
			result, err = compaction.CompactThoughtDBDir(dir, snapshotPath, dryRun)
			return err
		}

		var err error
		if useLock {
			err = lock.WithLock(dir, lockTimeout(cmd), run)
		} else {
			err = run()
		}
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	compactRunCmd.Flags().String("scope", "project", "project|global")
	compactRunCmd.Flags().Bool("dry-run", false, "plan the compaction without writing or archiving anything")

	compactCmd.AddCommand(compactRunCmd)
	rootCmd.AddCommand(compactCmd)
}
