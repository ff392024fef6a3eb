package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LinLinQiQi/mindcore/internal/evidence"
	"github.com/LinLinQiQi/mindcore/internal/lock"
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Append to an EvidenceLog",
}

var evidenceAppendCmd = &cobra.Command{
	Use:   "append",
	Short: "Append one evidence record",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		payloadRaw, _ := cmd.Flags().GetString("payload")
		global, _ := cmd.Flags().GetBool("global")
		useLock, _ := cmd.Flags().GetBool("lock")

		var payload map[string]any
		if payloadRaw != "" {
			if err := json.Unmarshal([]byte(payloadRaw), &payload); err != nil {
				return fmt.Errorf("parsing --payload as JSON: %w", err)
			}
		}
		if payload == nil {
			payload = map[string]any{}
		}
		payload["kind"] = kind

		_, projectPaths, globalPaths := newStore(cmd)
		logPath := projectPaths.EvidenceLogPath()
		if global {
			logPath = globalPaths.GlobalEvidenceLogPath()
		}

		var rec map[string]any
		write := func() error {
			var err error
			rec, err = evidence.Append(logPath, kind, payload)
			return err
		}

		var err error
		if useLock {
			err = lock.WithLock(logPath, lockTimeout(cmd), write)
		} else {
			err = write()
		}
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

func init() {
	evidenceAppendCmd.Flags().String("kind", "", "evidence record kind (e.g. hands_input, tool_call, state_corrupt)")
	evidenceAppendCmd.Flags().String("payload", "{}", "JSON object stored under the record's payload key")
	evidenceAppendCmd.Flags().Bool("global", false, "append to the global evidence log instead of the project one")
	evidenceCmd.AddCommand(evidenceAppendCmd)
	rootCmd.AddCommand(evidenceCmd)
}
