// Package cmd implements the CLI commands for quillpipe using Cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gaurav-prasanna/quillpipe/internal/config"
	"github.com/spf13/cobra"
)

// Global flag variables.
var (
	flagConfig  string
	flagVerbose bool
	flagEngine  string
)

// Populated by PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quillpipe",
	Short: "quillpipe — load Quill template bundles and export rendered documents",
	Long: `quillpipe loads zipped Quill template bundles, renders markdown through a
template engine, and exports the result as a file, a data URL, or an HTML
preview.

Usage:
  quillpipe bundle <archive|url> [flags]
  quillpipe render <input> --template <archive|url> [flags]
  quillpipe preview <input> --template <archive|url> [flags]`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		c, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		cfg = c
		logger.Debug("loaded config", "output_dir", cfg.OutputDir, "engine", cfg.Engine.Module)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./"+config.FileName+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "", "Renderer .wasm module (default: built-in engine)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
