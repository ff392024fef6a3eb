package main

import (
	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/subgraph"
)

var subgraphCmd = &cobra.Command{
	Use:   "subgraph",
	Short: "Extract a bounded-depth subgraph around a node or claim",
}

var subgraphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Walk out from a root id and return the reachable claims/nodes/edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _ := newStore(cmd)
		scope, _ := cmd.Flags().GetString("scope")
		rootID, _ := cmd.Flags().GetString("root-id")
		depth, _ := cmd.Flags().GetInt("depth")
		direction, _ := cmd.Flags().GetString("direction")
		edgeTypes, _ := cmd.Flags().GetStringSlice("edge-type")
		includeInactive, _ := cmd.Flags().GetBool("include-inactive")
		includeAliases, _ := cmd.Flags().GetBool("include-aliases")
		asOfTS, _ := cmd.Flags().GetString("as-of")

		edgeTypeSet := map[string]bool{}
		for _, et := range edgeTypes {
			edgeTypeSet[et] = true
		}

		sg, err := subgraph.BuildSubgraph(store, subgraph.Options{
			Scope:           scope,
			RootID:          rootID,
			Depth:           depth,
			Direction:       direction,
			EdgeTypes:       edgeTypeSet,
			IncludeInactive: includeInactive,
			IncludeAliases:  includeAliases,
			AsOfTS:          asOfTS,
		})
		if err != nil {
			return err
		}
		return printJSON(sg)
	},
}

func init() {
	subgraphBuildCmd.Flags().String("scope", "effective", "project|global|effective")
	subgraphBuildCmd.Flags().String("root-id", "", "claim_id or node_id to walk out from")
	subgraphBuildCmd.Flags().Int("depth", 1, "maximum BFS depth")
	subgraphBuildCmd.Flags().String("direction", "both", "out|in|both")
	subgraphBuildCmd.Flags().StringSlice("edge-type", nil, "restrict traversal to these edge types (repeatable)")
	subgraphBuildCmd.Flags().Bool("include-inactive", false, "include retracted/expired claims and nodes")
	subgraphBuildCmd.Flags().Bool("include-aliases", true, "keep same_as alias ids as distinct entities (false canonicalizes them)")
	subgraphBuildCmd.Flags().String("as-of", "", "RFC3339 as-of timestamp (default: now)")

	subgraphCmd.AddCommand(subgraphBuildCmd)
	rootCmd.AddCommand(subgraphCmd)
}
