package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dan-f/twinql/internal/server"
	"github.com/dan-f/twinql/pkg/lang/lexer"
	"github.com/dan-f/twinql/pkg/lang/parser"
)

// readQuery returns the query given as argument, or stdin when the argument
// is missing or "-"
func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read query: %w", err)
	}
	return string(data), nil
}

type queryOptions struct {
	*rootOptions
	Backend string
	Compact bool
}

func newQueryCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &queryOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [query|-]",
		Short: "Run a query and print the result as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readQuery(cmd, args)
			if err != nil {
				return err
			}
			if opts.Backend != "" {
				opts.cfg.Backend = opts.Backend
				if err := opts.cfg.Validate(); err != nil {
					return err
				}
			}

			a, err := newApp(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.executor.Query(cmd.Context(), text)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !opts.Compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "", "backend to query (memory|web|ldp), overriding the config")
	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "print JSON on a single line")

	return cmd
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				rootOpts.cfg.Server.Addr = addr
			}
			a, err := newApp(rootOpts.cfg, rootOpts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := server.New(a.executor, rootOpts.cfg.Server.Addr,
				server.WithGraphStore(a.backend),
				server.WithLogger(rootOpts.logger),
			)
			return s.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overriding the config")

	return cmd
}

func newParseCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [query|-]",
		Short: "Parse a query and print it in canonical form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readQuery(cmd, args)
			if err != nil {
				return err
			}
			q, err := parser.Parse(text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), q.String())
			return err
		},
	}
}

func newLexCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lex [query|-]",
		Short: "Print the tokens of a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readQuery(cmd, args)
			if err != nil {
				return err
			}
			tokens, err := lexer.Lex(text)
			if err != nil {
				return err
			}

			var b strings.Builder
			for _, tok := range tokens {
				fmt.Fprintf(&b, "%d:%d\t%s\t%s\n", tok.Line, tok.Column, tok.Type, tok.Value)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), b.String())
			return err
		},
	}
}
