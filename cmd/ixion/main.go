// Package main provides the ixion CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/ixion/cli"
)

var (
	// Global flags
	provider   string
	maxTurns   int
	verbose    bool
	showReport bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "ixion",
		Short: "Tool-using LLM agent loop with interceptor and breakpoint hooks",
		Long: `A CLI for running a model/tools agent loop.

The loop invokes the model, executes requested tool calls in parallel,
feeds results back, and repeats until the model answers. Interceptor and
breakpoint hooks can rewrite or observe every stage without destabilizing
the run.`,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().IntVarP(&maxTurns, "max-turns", "m", 0, "Maximum model turns per run (0 uses AGENT_MAX_TURNS or 10)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")
	rootCmd.PersistentFlags().BoolVar(&showReport, "report", false, "Print telemetry report after the run")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:   provider,
		MaxTurns:   maxTurns,
		Verbose:    verbose,
		ShowReport: showReport,
	}
}

func runCmd() *cobra.Command {
	var threadID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Execute a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunTask(context.Background(), args[0], threadID, dbPath, options())
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "Thread ID for checkpoint persistence")
	cmd.Flags().StringVar(&dbPath, "db", "", "Checkpoint database path")

	return cmd
}

func chatCmd() *cobra.Command {
	var threadID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), threadID, dbPath, options())
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "Thread ID for checkpoint persistence")
	cmd.Flags().StringVar(&dbPath, "db", "", "Checkpoint database path")

	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		Run: func(cmd *cobra.Command, args []string) {
			cli.ListTools(verbose)
		},
	}
}
