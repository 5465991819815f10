// Package main provides the imagegen-mcp command: an MCP server on stdio that
// generates images through the ElevenLabs web app, plus a few subcommands for
// managing the browser session by hand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entrhq/imagegen-mcp/pkg/config"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/server"
)

var (
	flagConfig   string
	flagLogLevel string
	flagHeadful  bool

	// cfg is loaded once by the root command's pre-run hook
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "imagegen-mcp",
	Short: "MCP server for ElevenLabs image generation",
	Long: `imagegen-mcp drives the ElevenLabs Image & Video web app in a headless
browser and exposes it to MCP clients over stdio.

Quick start:
  imagegen-mcp login                     # Sign in once, session is persisted
  imagegen-mcp                           # Serve MCP on stdio
  imagegen-mcp generate "a red fox"      # One-off generation
  imagegen-mcp models                    # List available models

Credentials are read from ELEVENLABS_EMAIL and ELEVENLABS_PASSWORD (or a .env
file) when not passed explicitly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagHeadful {
			loaded.Headless = false
		}
		if flagLogLevel != "" {
			loaded.Log.Level = flagLogLevel
		}
		if err := logging.Configure(loaded.Log.Dir, loaded.Log.Level); err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}
		cfg = loaded
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&flagHeadful, "headful", false, "Show the browser window")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if shutdownErr := logging.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if err != nil {
		// stdout may carry the protocol, so errors go to stderr only
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	// Skip config loading
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", server.Name, server.Version)
	},
}
