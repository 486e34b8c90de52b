package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cotejo/exporter"
	"cotejo/internal/fixtures"
)

func newGenTestdataCommand() *cobra.Command {
	var (
		dir    string
		format string
		opts   = fixtures.Options{Seed: 1, SourceRows: 1000, TargetRows: 1000, NoiseRate: 0.3, OrphanRate: 0.1}
	)

	cmd := &cobra.Command{
		Use:         "gen-testdata",
		Short:       "Generate a synthetic source/target catalogue pair",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			if ext == exporter.FormatJSON {
				return fmt.Errorf("format %q cannot be read back by reconcile; use xlsx or csv", format)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}

			catalog := fixtures.Generate(opts)
			sourcePath := filepath.Join(dir, "origem."+string(ext))
			targetPath := filepath.Join(dir, "destino."+string(ext))
			if err := exporter.WriteFile(sourcePath, exporter.RecordsTable("origem", catalog.Source)); err != nil {
				return err
			}
			if err := exporter.WriteFile(targetPath, exporter.RecordsTable("destino", catalog.Target)); err != nil {
				return err
			}

			schema := fixtures.Schema()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d source rows to %s\n", len(catalog.Source), sourcePath)
			fmt.Fprintf(out, "Wrote %d target rows to %s\n", len(catalog.Target), targetPath)
			fmt.Fprintf(out, "Columns: --source-description %s --source-id %s --target-description %s --target-status %s --target-id %s\n",
				schema.SourceDescription, schema.SourceID, schema.TargetDescription, schema.TargetStatus, schema.TargetID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&dir, "dir", "d", "testdata", "Output directory")
	f.StringVar(&format, "format", "xlsx", "File format: xlsx or csv")
	f.Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	f.IntVar(&opts.SourceRows, "source-rows", opts.SourceRows, "Source rows")
	f.IntVar(&opts.TargetRows, "target-rows", opts.TargetRows, "Target rows")
	f.Float64Var(&opts.NoiseRate, "noise", opts.NoiseRate, "Share of target rows with typos and reordered words")
	f.Float64Var(&opts.OrphanRate, "orphans", opts.OrphanRate, "Share of target rows with no source pair")
	return cmd
}
