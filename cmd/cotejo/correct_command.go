package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cotejo/exporter"
	"cotejo/importer"
	"cotejo/proofreading"
)

func newCorrectCommand(ctx *commandContext) *cobra.Command {
	var (
		column       string
		outputColumn string
		output       string
		sheet        string
		stripMarkup  bool
		text         string
	)

	cmd := &cobra.Command{
		Use:   "correct [file]",
		Short: "Proofread a text column of a dataset (or a single --text)",
		Long: "Sends every cell of the column to LanguageTool and writes the corrected text to a\n" +
			"new column (<column>_corrigida by default). Cells that fail to correct keep the\n" +
			"original text.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if text == "" && len(args) == 0 {
				return errors.New("pass a file or --text")
			}

			ctn, err := ctx.ensureContainer()
			if err != nil {
				return err
			}
			defer ctx.close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if text != "" {
				corrected, err := ctn.ReconciliationUseCase.CorrectText(runCtx, text)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, corrected)
				return nil
			}

			if strings.TrimSpace(column) == "" {
				return errors.New("--column is required")
			}
			path := args[0]
			sheetData, err := importer.ReadFile(path, importer.ReadOptions{Sheet: sheet, StripMarkup: stripMarkup})
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if output == "" {
				output = correctedPath(path)
			}
			if _, err := exporter.DetectFormat(output); err != nil {
				return err
			}

			stats, runErr := ctn.ReconciliationUseCase.CorrectColumn(runCtx, sheetData.Records, proofreading.ColumnOptions{
				Column:      column,
				Output:      outputColumn,
				Concurrency: cfg.Proofreading.Concurrency,
				GroupDelay:  cfg.Proofreading.GroupDelay.Std(),
			})
			if stats.Output == "" {
				return runErr
			}

			if err := exporter.WriteFile(output, exporter.RecordsTable(sheetData.Name, sheetData.Records)); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			fmt.Fprintln(out, renderKeyValues([][2]string{
				{"Rows", strconv.Itoa(stats.Rows)},
				{"Changed", strconv.Itoa(stats.Changed)},
				{"Unchanged", strconv.Itoa(stats.Unchanged)},
				{"Blank", strconv.Itoa(stats.Blank)},
				{"Output column", stats.Output},
				{"Elapsed", formatSeconds(stats.Elapsed)},
				{"Output", output},
			}))
			return runErr
		},
	}

	f := cmd.Flags()
	f.StringVar(&column, "column", "", "Column to correct")
	f.StringVar(&outputColumn, "output-column", "", "Column for the corrected text (default <column>"+proofreading.OutputSuffix+")")
	f.StringVarP(&output, "output", "o", "", "Output file (default <file>_corrigido.xlsx)")
	f.StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	f.BoolVar(&stripMarkup, "strip-markup", false, "Strip HTML markup from cells")
	f.StringVar(&text, "text", "", "Correct a single text and print it")
	return cmd
}

func correctedPath(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + "_corrigido." + string(exporter.FormatExcel)
}
