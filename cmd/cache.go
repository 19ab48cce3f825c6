package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curasense/triage-cli/internal/lookupcache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "DBpedia lookup cache maintenance",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lookup cache size",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		n, err := c.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "driver:  %s\nentries: %d\nttl:     %s\n", cfg.Store.Driver, n, c.TTL())
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete lookup cache entries older than the TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeFn, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		n, err := c.Prune(cmd.Context())
		if err != nil {
			return err
		}
		zap.L().Info("lookup cache pruned", zap.Int("deleted", n))
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired entries\n", n)
		return nil
	},
}

func openCache(cmd *cobra.Command) (*lookupcache.Cache, func(), error) {
	if err := cfg.Validate("cache"); err != nil {
		return nil, nil, err
	}
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	c := lookupcache.New(st, nil, lookupcache.WithTTL(cfg.DBpedia.CacheTTL()))
	return c, func() { _ = st.Close() }, nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
