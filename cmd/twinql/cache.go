package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dan-f/twinql/internal/storage"
)

var errNoCache = errors.New("no persistent fetch cache configured (set fetch.cache.enabled and fetch.cache.path)")

func newCacheCommand(rootOpts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the fetch cache",
	}
	cmd.AddCommand(newCacheListCommand(rootOpts))
	cmd.AddCommand(newCachePurgeCommand(rootOpts))
	return cmd
}

// openCache opens the configured persistent response cache
func openCache(opts *rootOptions) (*storage.ResponseCache, func() error, error) {
	c := opts.cfg.Fetch.Cache
	if !c.Enabled || c.Path == "" {
		return nil, nil, errNoCache
	}
	st, err := storage.NewBadgerStorage(c.Path)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewResponseCache(st, opts.logger), st.Close, nil
}

func newCacheListCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the cached URIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, closeCache, err := openCache(rootOpts)
			if err != nil {
				return err
			}
			defer closeCache()

			uris, err := cache.URIs()
			if err != nil {
				return err
			}
			for _, uri := range uris {
				fmt.Fprintln(cmd.OutOrStdout(), uri)
			}
			return nil
		},
	}
}

func newCachePurgeCommand(rootOpts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "purge [uri...]",
		Short: "Remove cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("give either URIs or --all")
			}
			cache, closeCache, err := openCache(rootOpts)
			if err != nil {
				return err
			}
			defer closeCache()

			uris := args
			if all {
				if uris, err = cache.URIs(); err != nil {
					return err
				}
			}
			for _, uri := range uris {
				if err := cache.Purge(uri); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries\n", len(uris))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remove every cached response")

	return cmd
}
