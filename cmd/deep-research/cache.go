// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the search result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached search results",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cache.New(cacheConfig(cmd))
		if err != nil {
			return err
		}
		removed, err := c.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d cached result(s)\n", removed)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of cached search results",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cache.New(cacheConfig(cmd))
		if err != nil {
			return err
		}
		n, err := c.Len()
		if err != nil {
			return err
		}
		fmt.Printf("%d cached result(s) in %s\n", n, c.Dir())
		return nil
	},
}

func cacheConfig(cmd *cobra.Command) types.CacheConfig {
	dir, _ := cmd.Flags().GetString("cache-dir")
	return types.CacheConfig{Dir: dir}
}

func init() {
	cacheCmd.PersistentFlags().String("cache-dir", "search_cache", "directory for cached search results")
	cacheCmd.AddCommand(cacheClearCmd, cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
