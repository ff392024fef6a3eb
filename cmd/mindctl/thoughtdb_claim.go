package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/lock"
	"github.com/LinLinQiQi/mindcore/internal/thoughtdb"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Create or retract ThoughtDB claims",
}

var claimCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Append a new claim",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _ := newStore(cmd)
		claimType, _ := cmd.Flags().GetString("type")
		text, _ := cmd.Flags().GetString("text")
		scope, _ := cmd.Flags().GetString("scope")
		visibility, _ := cmd.Flags().GetString("visibility")
		validFrom, _ := cmd.Flags().GetString("valid-from")
		validTo, _ := cmd.Flags().GetString("valid-to")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		sourceEventIDs, _ := cmd.Flags().GetStringSlice("source-event")
		confidence, _ := cmd.Flags().GetFloat64("confidence")
		notes, _ := cmd.Flags().GetString("notes")
		useLock, _ := cmd.Flags().GetBool("lock")

		in := thoughtdb.ClaimInput{
			ClaimType:      claimType,
			Text:           text,
			Scope:          scope,
			Visibility:     visibility,
			ValidFrom:      validFrom,
			ValidTo:        validTo,
			Tags:           tags,
			SourceEventIDs: sourceEventIDs,
			Confidence:     confidence,
			Notes:          notes,
		}

		var id string
		write := func() error {
			var err error
			id, err = store.AppendClaimCreate(in)
			return err
		}

		var err error
		if useLock {
			err = lock.WithLock(claimsLockPath(cmd, scope), lockTimeout(cmd), write)
		} else {
			err = write()
		}
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"claim_id": id})
	},
}

var claimRetractCmd = &cobra.Command{
	Use:   "retract",
	Short: "Retract an existing claim",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _ := newStore(cmd)
		claimID, _ := cmd.Flags().GetString("claim-id")
		scope, _ := cmd.Flags().GetString("scope")
		rationale, _ := cmd.Flags().GetString("rationale")
		sourceEventIDs, _ := cmd.Flags().GetStringSlice("source-event")
		useLock, _ := cmd.Flags().GetBool("lock")

		write := func() error {
			return store.AppendClaimRetract(claimID, scope, rationale, sourceEventIDs)
		}

		var err error
		if useLock {
			err = lock.WithLock(claimsLockPath(cmd, scope), lockTimeout(cmd), write)
		} else {
			err = write()
		}
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"claim_id": claimID, "status": "retracted"})
	},
}

func claimsLockPath(cmd *cobra.Command, scope string) string {
	_, projectPaths, globalPaths := newStore(cmd)
	if strings.EqualFold(scope, "global") {
		return globalPaths.ThoughtdbGlobalClaimsPath()
	}
	return projectPaths.ThoughtdbClaimsPath()
}

func init() {
	claimCreateCmd.Flags().String("type", "fact", "claim_type (fact/preference/goal/...)")
	claimCreateCmd.Flags().String("text", "", "claim text")
	claimCreateCmd.Flags().String("scope", "project", "project|global")
	claimCreateCmd.Flags().String("visibility", "", "private|project|global (default: project)")
	claimCreateCmd.Flags().String("valid-from", "", "RFC3339 validity start")
	claimCreateCmd.Flags().String("valid-to", "", "RFC3339 validity end")
	claimCreateCmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	claimCreateCmd.Flags().StringSlice("source-event", nil, "source evidence event id (repeatable)")
	claimCreateCmd.Flags().Float64("confidence", 1.0, "confidence in [0,1]")
	claimCreateCmd.Flags().String("notes", "", "free-form notes")

	claimRetractCmd.Flags().String("claim-id", "", "claim id to retract")
	claimRetractCmd.Flags().String("scope", "project", "project|global")
	claimRetractCmd.Flags().String("rationale", "", "why this claim is being retracted")
	claimRetractCmd.Flags().StringSlice("source-event", nil, "source evidence event id (repeatable)")

	claimCmd.AddCommand(claimCreateCmd, claimRetractCmd)
	thoughtdbCmd.AddCommand(claimCmd)
}
