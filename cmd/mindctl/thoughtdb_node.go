package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/lock"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Create or retract ThoughtDB nodes",
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Append a new node",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _ := newStore(cmd)
		nodeType, _ := cmd.Flags().GetString("type")
		title, _ := cmd.Flags().GetString("title")
		text, _ := cmd.Flags().GetString("text")
		scope, _ := cmd.Flags().GetString("scope")
		visibility, _ := cmd.Flags().GetString("visibility")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		sourceEventIDs, _ := cmd.Flags().GetStringSlice("source-event")
		confidence, _ := cmd.Flags().GetFloat64("confidence")
		notes, _ := cmd.Flags().GetString("notes")
		useLock, _ := cmd.Flags().GetBool("lock")

		in := thoughtdb.NodeInput{
			NodeType:       nodeType,
			Title:          title,
			Text:           text,
			Scope:          scope,
			Visibility:     visibility,
			Tags:           tags,
			SourceEventIDs: sourceEventIDs,
			Confidence:     confidence,
			Notes:          notes,
		}

		var id string
		write := func() error {
			var err error
			id, err = store.AppendNodeCreate(in)
			return err
		}

		var err error
		if useLock {
			err = lock.WithLock(nodesLockPath(cmd, scope), lockTimeout(cmd), write)
		} else {
			err = write()
		}
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"node_id": id})
	},
}

var nodeRetractCmd = &cobra.Command{
	Use:   "retract",
	Short: "Retract an existing node",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _ := newStore(cmd)
		nodeID, _ := cmd.Flags().GetString("node-id")
		scope, _ := cmd.Flags().GetString("scope")
		rationale, _ := cmd.Flags().GetString("rationale")
		sourceEventIDs, _ := cmd.Flags().GetStringSlice("source-event")
		useLock, _ := cmd.Flags().GetBool("lock")

		write := func() error {
			return store.AppendNodeRetract(nodeID, scope, rationale, sourceEventIDs)
		}

		var err error
		if useLock {
			err = lock.WithLock(nodesLockPath(cmd, scope), lockTimeout(cmd), write)
		} else {
			err = write()
		}
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"node_id": nodeID, "status": "retracted"})
	},
}

func nodesLockPath(cmd *cobra.Command, scope string) string {
	_, projectPaths, globalPaths := newStore(cmd)
	if strings.EqualFold(scope, "global") {
		return globalPaths.ThoughtdbGlobalNodesPath()
	}
	return projectPaths.ThoughtdbNodesPath()
}

func init() {
	nodeCreateCmd.Flags().String("type", "summary", "node_type (decision/action/summary)")
	nodeCreateCmd.Flags().String("title", "", "node title (default: first line of text)")
	nodeCreateCmd.Flags().String("text", "", "node text")
	nodeCreateCmd.Flags().String("scope", "project", "project|global")
	nodeCreateCmd.Flags().String("visibility", "", "private|project|global (default: project)")
	nodeCreateCmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	nodeCreateCmd.Flags().StringSlice("source-event", nil, "source evidence event id (repeatable)")
	nodeCreateCmd.Flags().Float64("confidence", 1.0, "confidence in [0,1]")
	nodeCreateCmd.Flags().String("notes", "", "free-form notes")

	nodeRetractCmd.Flags().String("node-id", "", "node id to retract")
	nodeRetractCmd.Flags().String("scope", "project", "project|global")
	nodeRetractCmd.Flags().String("rationale", "", "why this node is being retracted")
	nodeRetractCmd.Flags().StringSlice("source-event", nil, "source evidence event id (repeatable)")

	nodeCmd.AddCommand(nodeCreateCmd, nodeRetractCmd)
	thoughtdbCmd.AddCommand(nodeCmd)
}
