// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the answer cache",
	Long: `Cache manages the store of final answers that ask reuses for repeated
or equivalent questions. The backend (memory or sqlite) comes from the
cache section of the config file.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			st, err := a.cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return yaml.NewEncoder(os.Stdout).Encode(st)
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached answer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.cache.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Cache cleared")
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(cacheCmd)
}
