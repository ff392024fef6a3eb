package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/paths"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage project selection (last/pinned/aliases)",
}

var projectSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Record the current project as the @last selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		home := resolveHomeDir(cmd)
		root := resolveProjectRoot(cmd)
		entry, err := paths.RecordLastProjectSelection(home, root)
		if err != nil {
			return err
		}
		return printJSON(entry)
	},
}

var projectPinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Pin the current project as the @pinned selection (use --clear to unpin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		home := resolveHomeDir(cmd)
		clear, _ := cmd.Flags().GetBool("clear")
		if clear {
			if err := paths.ClearPinnedProjectSelection(home); err != nil {
				return err
			}
			return printJSON(map[string]any{"status": "unpinned"})
		}
		root := resolveProjectRoot(cmd)
		entry, err := paths.SetPinnedProjectSelection(home, root)
		if err != nil {
			return err
		}
		return printJSON(entry)
	},
}

var projectAliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Set, remove, or list project aliases",
	RunE: func(cmd *cobra.Command, args []string) error {
		home := resolveHomeDir(cmd)
		name, _ := cmd.Flags().GetString("name")
		remove, _ := cmd.Flags().GetBool("remove")

		if name == "" {
			return printJSON(paths.ListProjectAliases(home))
		}
		if remove {
			removed := paths.RemoveProjectAlias(home, name)
			return printJSON(map[string]any{"alias": name, "removed": removed})
		}
		root := resolveProjectRoot(cmd)
		entry, err := paths.SetProjectAlias(home, name, root)
		if err != nil {
			return fmt.Errorf("setting alias %q: %w", name, err)
		}
		return printJSON(entry)
	},
}

func init() {
	projectPinCmd.Flags().Bool("clear", false, "remove the current @pinned selection instead of setting one")

	projectAliasCmd.Flags().String("name", "", "alias name (omit to list all aliases)")
	projectAliasCmd.Flags().Bool("remove", false, "remove the named alias instead of setting it")

	projectCmd.AddCommand(projectSelectCmd, projectPinCmd, projectAliasCmd)
	rootCmd.AddCommand(projectCmd)
}
