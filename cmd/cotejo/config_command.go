package main

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"cotejo/internal/config"
	"cotejo/internal/infrastructure/ai"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigCheckCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	return configCmd
}

func newConfigCheckCommand(ctx *commandContext) *cobra.Command {
	var ping bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.flags.configPath != "" {
				fmt.Fprintf(out, "Config file: %s\n", ctx.flags.configPath)
			} else {
				fmt.Fprintln(out, "Config file: none, defaults and environment were used")
			}
			fmt.Fprintln(out, "Configuration valid")

			if !ping {
				return nil
			}
			ctn, err := ctx.ensureContainer()
			if err != nil {
				return err
			}
			defer ctx.close()
			if err := ctn.RequireArbiter(cfg.Matching.UseArbiter); err != nil {
				return err
			}
			if ctn.Arbiter == nil {
				fmt.Fprintln(out, "Arbiter: disabled")
				return nil
			}
			if err := ai.Ping(cmd.Context(), ctn.Arbiter); err != nil {
				return fmt.Errorf("arbiter %s/%s: %w", ctn.Arbiter.Provider(), ctn.Arbiter.Model(), err)
			}
			fmt.Fprintf(out, "Arbiter %s/%s: ok\n", ctn.Arbiter.Provider(), ctn.Arbiter.Model())
			return nil
		},
	}

	cmd.Flags().BoolVar(&ping, "ping", false, "Also send a probe pair to the arbiter")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML (API key hidden)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Arbiter.APIKey != "" {
				shown.Arbiter.APIKey = "***"
			}
			shown.Arbiter.Fallbacks = make([]config.ArbiterEndpoint, len(cfg.Arbiter.Fallbacks))
			for i, f := range cfg.Arbiter.Fallbacks {
				if f.APIKey != "" {
					f.APIKey = "***"
				}
				shown.Arbiter.Fallbacks[i] = f
			}
			data, err := toml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
