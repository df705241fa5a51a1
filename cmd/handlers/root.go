// Package handlers wires the CLI commands.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gridbrief/internal/config"
	"gridbrief/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridbrief",
		Short: "Energy-transition news ingestion and grounded question answering",
		Long: `gridbrief ingests energy-transition news from feeds and site scrapers,
tags and embeds the articles, and answers questions about them with
citations. Run 'gridbrief serve' for the HTTP API with a built-in
ingestion scheduler, or use the subcommands for one-shot operations.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gridbrief.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewIngestCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewSourcesCmd())
	rootCmd.AddCommand(NewChatCmd())
	rootCmd.AddCommand(NewBriefCmd())
	rootCmd.AddCommand(NewBackfillCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads the config file and environment.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Logging.Level)
}
