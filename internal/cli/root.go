// Package cli implements the numbering command-line tool.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docnum/pkg/logger"
)

// RootOptions holds global flags for all commands.
// Store selection flags are read through viper, see resolveConfig.
type RootOptions struct {
	Format  string // "text" | "json" | "yaml"
	Verbose bool

	// resolved in PersistentPreRunE
	config Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "numbering",
		Short: "Document number patterns and counters",
		Long: `Validate numbering patterns, preview and allocate document numbers,
and inspect or seed the counters behind them.

Counters live in PostgreSQL, a local SQLite file, or memory (one invocation only).

Flags override NUMBERING_* environment variables, which override the --config file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			opts.config = cfg

			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			log, err := logger.New(logger.Config{Level: level, OutputPaths: []string{"stderr"}, Component: "cli"})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			cmd.SetContext(logger.WithLogger(contextOf(cmd), log))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().String("config", "", "YAML config file (env NUMBERING_CONFIG)")
	cmd.PersistentFlags().String("driver", "", "counter store: memory|sqlite|postgres (default sqlite)")
	cmd.PersistentFlags().String("dsn", "", "database path or URL")
	cmd.PersistentFlags().String("account", "", "account id")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewCountersCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
