package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Conversational agent for business data operations",
	Long: `Kestrel turns natural-language requests into executable read and write
operations against your business API.

It extracts tasks from each request, tracks their dependencies, resolves
operation parameters from the conversation, prior results, and your user
context, and drives every task to completion.

With no arguments, launches an interactive chat session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
