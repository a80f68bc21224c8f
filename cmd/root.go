package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowbot",
	Short: "Conversational front end for the Flow tracking service",
	Long:  "Flowbot resolves chat messages into tracking actions: goals, daily tasks, habits, and journals.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
