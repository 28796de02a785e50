package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seen/internal/driver"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk plan cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached region plan",
	RunE:  runCacheClean,
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd)
}

func runCacheClean(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	cache, err := driver.OpenPlanCache("seen-mem")
	if err != nil {
		return fmt.Errorf("cannot open plan cache: %w", err)
	}
	if err := cache.Clear(); err != nil {
		return fmt.Errorf("cannot clear plan cache: %w", err)
	}
	fmt.Println("plan cache cleared")
	return nil
}
