package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/lock"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Create ThoughtDB edges",
}

var edgeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Append a new edge",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _ := newStore(cmd)
		edgeType, _ := cmd.Flags().GetString("type")
		fromID, _ := cmd.Flags().GetString("from")
		toID, _ := cmd.Flags().GetString("to")
		scope, _ := cmd.Flags().GetString("scope")
		visibility, _ := cmd.Flags().GetString("visibility")
		sourceEventIDs, _ := cmd.Flags().GetStringSlice("source-event")
		notes, _ := cmd.Flags().GetString("notes")
		useLock, _ := cmd.Flags().GetBool("lock")

		in := thoughtdb.EdgeInput{
			EdgeType:       edgeType,
			FromID:         fromID,
			ToID:           toID,
			Scope:          scope,
			Visibility:     visibility,
			SourceEventIDs: sourceEventIDs,
			Notes:          notes,
		}

		var id string
		write := func() error {
			var err error
			id, err = store.AppendEdge(in)
			return err
		}

		var err error
		if useLock {
			err = lock.WithLock(edgesLockPath(cmd, scope), lockTimeout(cmd), write)
		} else {
			err = write()
		}
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"edge_id": id})
	},
}

func edgesLockPath(cmd *cobra.Command, scope string) string {
	_, projectPaths, globalPaths := newStore(cmd)
	if strings.EqualFold(scope, "global") {
		return globalPaths.ThoughtdbGlobalEdgesPath()
	}
	return projectPaths.ThoughtdbEdgesPath()
}

func init() {
	edgeCreateCmd.Flags().String("type", "", "edge_type (supports/contradicts/depends_on/...)")
	edgeCreateCmd.Flags().String("from", "", "from_id")
	edgeCreateCmd.Flags().String("to", "", "to_id")
	edgeCreateCmd.Flags().String("scope", "project", "project|global")
	edgeCreateCmd.Flags().String("visibility", "", "private|project|global (default: project)")
	edgeCreateCmd.Flags().StringSlice("source-event", nil, "source evidence event id (repeatable)")
	edgeCreateCmd.Flags().String("notes", "", "free-form notes")

	edgeCmd.AddCommand(edgeCreateCmd)
	thoughtdbCmd.AddCommand(edgeCmd)
}
