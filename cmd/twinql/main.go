package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dan-f/twinql/internal/config"
)

// rootOptions holds the global flags
type rootOptions struct {
	ConfigPath string
	Verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "twinql",
		Short: "Query linked data graphs",
		Long: `twinql evaluates graph queries against local RDF data or against
documents fetched from the web on demand.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(opts.logger)

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newParseCommand(opts))
	cmd.AddCommand(newLexCommand(opts))
	cmd.AddCommand(newCacheCommand(opts))

	return cmd
}
