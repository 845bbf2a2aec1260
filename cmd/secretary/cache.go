package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cachepkg "github.com/aitarf0921/AI-Secretary/pkg/cache/sqlite"
)

func newCacheCmd() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the sqlite answer cache",
	}

	open := func() (*cachepkg.Cache, error) {
		cfg, err := loadConfig(configPath, envFile)
		if err != nil {
			return nil, err
		}
		return cachepkg.New(cfg.Cache.DBPath)
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\n", stats.Entries)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			n, err := c.Clear(cmd.Context(), expiredOnly)
			if err != nil {
				return err
			}
			if expiredOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d expired cache entries.\n", n)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries.\n", n)
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "secretary.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
