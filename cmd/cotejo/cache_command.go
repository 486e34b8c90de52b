package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the arbiter verdict cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show how many verdicts are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctn, err := ctx.requireStore()
			if err != nil {
				return err
			}
			defer ctx.close()

			count, err := ctn.Store.CountVerdicts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached verdicts: %d\n", count)
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all cached verdicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctn, err := ctx.requireStore()
			if err != nil {
				return err
			}
			defer ctx.close()

			if err := ctn.Store.ClearVerdicts(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Verdict cache cleared")
			return nil
		},
	})
	return cacheCmd
}
