// Package cli provides the command-line interface for the chat relay.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/chatrelay/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		// SilenceErrors keeps cobra from printing it first.
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	global := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "chatrelay",
		Short: "Relay chat feedback and evaluate agents",
		Long: `chatrelay sits between an embedded chat widget and its agent.

It stores thumbs-up/down feedback in Db2 on Cloud or SQLite, exports the
feedback log as CSV, and runs question sets against a watsonx Orchestrate
agent to produce evaluation reports.

Settings come from the environment and, with --config, a YAML file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&global.ConfigPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&global.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(commands.NewServeCommand(global))
	rootCmd.AddCommand(commands.NewLogsCommand(global))
	rootCmd.AddCommand(commands.NewEvaluateCommand(global))
	rootCmd.AddCommand(commands.NewAskCommand(global))
	rootCmd.AddCommand(commands.NewFeedbackCommand(global))
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
