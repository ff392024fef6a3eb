package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/config"
	"github.com/LinLinQiQi/mindcore/internal/mindprovider"
	"github.com/LinLinQiQi/mindcore/internal/whytrace"
)

var whyTraceCmd = &cobra.Command{
	Use:   "why-trace",
	Short: "Trace which claims justify an evidence event",
}

var whyTraceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run WhyTrace against an evidence event",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, projectPaths, _ := newStore(cmd)
		eventID, _ := cmd.Flags().GetString("event-id")
		asOfTS, _ := cmd.Flags().GetString("as-of")
		model, _ := cmd.Flags().GetString("model")

		target, err := whytrace.FindEvidenceEvent(projectPaths.EvidenceLogPath(), eventID)
		if err != nil {
			return fmt.Errorf("loading target event: %w", err)
		}

		query := whytrace.QueryFromEvidenceEvent(target)
		ctx := context.Background()
		index, err := buildTextIndex(store)
		if err != nil {
			return fmt.Errorf("building memory index: %w", err)
		}
		candidates, err := whytrace.CollectCandidateClaimsForTarget(ctx, store, index, target, query, config.WhyTraceTopK(), asOfTS, eventID)
		if err != nil {
			return fmt.Errorf("collecting candidate claims: %w", err)
		}

		provider, err := mindprovider.NewAnthropicProvider("", model)
		if err != nil {
			return fmt.Errorf("constructing model provider: %w", err)
		}

		outcome, err := whytrace.RunWhyTrace(ctx, provider, store, target, candidates, asOfTS, eventID, config.MinWriteConfidence())
		if err != nil {
			return err
		}
		return printJSON(outcome)
	},
}

func init() {
	whyTraceRunCmd.Flags().String("event-id", "", "evidence event_id to explain")
	whyTraceRunCmd.Flags().String("as-of", "", "RFC3339 as-of timestamp (default: now)")
	whyTraceRunCmd.Flags().String("model", "", "override the model provider's default model")

	whyTraceCmd.AddCommand(whyTraceRunCmd)
	rootCmd.AddCommand(whyTraceCmd)
}
