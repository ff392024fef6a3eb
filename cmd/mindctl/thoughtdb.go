package main

import "github.com/spf13/cobra"

var thoughtdbCmd = &cobra.Command{
	Use:   "thoughtdb",
	Short: "Inspect and mutate ThoughtDB claims, nodes, and edges",
}

func init() {
	rootCmd.AddCommand(thoughtdbCmd)
}
