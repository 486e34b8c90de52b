package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "cotejo",
		Short:         "Reconcile records of two datasets",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: auto, text, json")
	rootCmd.PersistentFlags().StringVar(&flags.databasePath, "db", "", "SQLite database for run history and verdict cache")

	rootCmd.AddCommand(newReconcileCommand(ctx))
	rootCmd.AddCommand(newCorrectCommand(ctx))
	rootCmd.AddCommand(newColumnsCommand())
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newGenTestdataCommand())

	return rootCmd
}
