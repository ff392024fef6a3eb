package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/config"
	"github.com/LinLinQiQi/mindcore/internal/retrieval"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Build retrieval context for a decision point",
}

var contextDecideNextCmd = &cobra.Command{
	Use:   "decide-next",
	Short: "Build the budgeted decide_next retrieval context",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _ := newStore(cmd)
		asOfTS, _ := cmd.Flags().GetString("as-of")
		task, _ := cmd.Flags().GetString("task")
		handsLastMessage, _ := cmd.Flags().GetString("hands-last-message")

		index, err := buildTextIndex(store)
		if err != nil {
			return fmt.Errorf("building memory index: %w", err)
		}
		out, err := retrieval.BuildDecideNextContext(context.Background(), store, asOfTS, task, handsLastMessage, nil, index, config.RetrievalBudgetsFromConfig())
		if err != nil {
			return err
		}
		return printJSON(out.ToPromptObj())
	},
}

func init() {
	contextDecideNextCmd.Flags().String("as-of", "", "RFC3339 as-of timestamp (default: now)")
	contextDecideNextCmd.Flags().String("task", "", "current task text")
	contextDecideNextCmd.Flags().String("hands-last-message", "", "last hands message text")

	contextCmd.AddCommand(contextDecideNextCmd)
	rootCmd.AddCommand(contextCmd)
}
