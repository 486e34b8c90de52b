package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cotejo/exporter"
	reconciliationapp "cotejo/internal/application/reconciliation"
	"cotejo/internal/config"
	"cotejo/importer"
	"cotejo/matching"
)

type reconcileFlags struct {
	sourceSheet string
	targetSheet string
	stripMarkup bool
	columns     config.ColumnsConfig

	prefilter     float64
	confidence    float64
	batchSize     int
	maxCandidates int
	batchDelay    time.Duration
	noArbiter     bool

	output   string
	jsonOut  bool
	showRows int
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var flags reconcileFlags

	cmd := &cobra.Command{
		Use:   "reconcile <source-file> <target-file>",
		Short: "Match target rows against source rows and export accepted pairs",
		Long: "Reads two datasets (xlsx or csv), finds for every target row the most similar\n" +
			"source row, optionally confirms pairs with the arbiter and writes the accepted\n" +
			"pairs to the output file. Each source row is matched at most once.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := reconcileOptions(cmd, cfg, flags)
			schema := flags.columns.Merge(cfg.Columns).Schema()

			source, err := importer.ReadFile(args[0], importer.ReadOptions{Sheet: flags.sourceSheet, StripMarkup: flags.stripMarkup})
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			target, err := importer.ReadFile(args[1], importer.ReadOptions{Sheet: flags.targetSheet, StripMarkup: flags.stripMarkup})
			if err != nil {
				return fmt.Errorf("read target: %w", err)
			}

			ctn, err := ctx.ensureContainer()
			if err != nil {
				return err
			}
			defer ctx.close()
			if err := ctn.RequireArbiter(opts.UseArbiter); err != nil {
				return fmt.Errorf("%w; pass --no-arbiter to reconcile by similarity only", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, runErr := ctn.ReconciliationUseCase.Reconcile(runCtx, reconciliationapp.ReconcileRequest{
				SourceName: filepath.Base(args[0]),
				TargetName: filepath.Base(args[1]),
				Source:     source.Records,
				Target:     target.Records,
				Schema:     schema,
				Options:    opts,
			})
			if result == nil || result.Report == nil {
				return runErr
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
				return runErr
			}

			if flags.output != "" {
				if err := exporter.WriteFile(flags.output, exporter.ResultsTable(result.Report.Results)); err != nil {
					return fmt.Errorf("write results: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if flags.jsonOut {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				printReconcileSummary(out, result, flags.output)
				printMatches(out, result.Report.Results, flags.showRows)
			}
			if runErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Reconciliation interrupted; partial results were written")
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.sourceSheet, "source-sheet", "", "Source sheet name (default: first sheet)")
	f.StringVar(&flags.targetSheet, "target-sheet", "", "Target sheet name (default: first sheet)")
	f.BoolVar(&flags.stripMarkup, "strip-markup", false, "Strip HTML markup from cells")
	f.StringVar(&flags.columns.SourceDescription, "source-description", "", "Source description column")
	f.StringVar(&flags.columns.SourceID, "source-id", "", "Source identifier column")
	f.StringVar(&flags.columns.TargetDescription, "target-description", "", "Target description column")
	f.StringVar(&flags.columns.TargetStatus, "target-status", "", "Target status column")
	f.StringVar(&flags.columns.TargetID, "target-id", "", "Target identifier column")
	f.Float64Var(&flags.prefilter, "prefilter", matching.DefaultPreFilterThreshold, "Minimum Jaccard similarity of a candidate (0..1)")
	f.Float64Var(&flags.confidence, "confidence", matching.DefaultConfidenceThreshold, "Minimum arbiter confidence (0..1)")
	f.IntVar(&flags.batchSize, "batch-size", matching.DefaultBatchSize, "Pairs per arbiter call")
	f.IntVar(&flags.maxCandidates, "max-candidates", matching.DefaultMaxCandidates, "Candidates retrieved per target row")
	f.DurationVar(&flags.batchDelay, "batch-delay", matching.DefaultBatchDelay, "Pause after each full arbiter batch")
	f.BoolVar(&flags.noArbiter, "no-arbiter", false, "Accept pairs by similarity only")
	f.StringVarP(&flags.output, "output", "o", exporter.DefaultResultsFile, "Results file (.xlsx, .csv or .json); empty to skip")
	f.BoolVar(&flags.jsonOut, "json", false, "Print the run report as JSON")
	f.IntVar(&flags.showRows, "show", 10, "Matches to print after the summary")
	return cmd
}

// reconcileOptions берет параметры из конфигурации и перекрывает явно заданными флагами
func reconcileOptions(cmd *cobra.Command, cfg *config.Config, flags reconcileFlags) matching.Options {
	opts := cfg.ToOptions()
	f := cmd.Flags()
	if f.Changed("prefilter") {
		opts.PreFilterThreshold = flags.prefilter
	}
	if f.Changed("confidence") {
		opts.ConfidenceThreshold = flags.confidence
	}
	if f.Changed("batch-size") {
		opts.BatchSize = flags.batchSize
	}
	if f.Changed("max-candidates") {
		opts.MaxCandidates = flags.maxCandidates
	}
	if f.Changed("batch-delay") {
		opts.BatchDelay = flags.batchDelay
	}
	if flags.noArbiter {
		opts.UseArbiter = false
	}
	return opts
}

func printReconcileSummary(out io.Writer, result *reconciliationapp.ReconcileResult, output string) {
	stats := result.Report.Stats
	pairs := [][2]string{}
	if result.RunID != "" {
		pairs = append(pairs, [2]string{"Run", result.RunID})
	}
	pairs = append(pairs,
		[2]string{"Source rows", strconv.Itoa(stats.SourceRows)},
		[2]string{"Target rows", strconv.Itoa(stats.TargetRows)},
		[2]string{"Processed", strconv.Itoa(stats.Processed)},
		[2]string{"Matches", fmt.Sprintf("%d / %d", stats.Matches, stats.TargetRows)},
		[2]string{"No candidates", strconv.Itoa(stats.NoCandidates)},
		[2]string{"Below threshold", strconv.Itoa(stats.BelowThreshold)},
		[2]string{"Already matched", strconv.Itoa(stats.DirectDuplicates + stats.Validator.Duplicates)},
		[2]string{"Row errors", strconv.Itoa(stats.RowErrors)},
	)
	if stats.Validator.Enqueued > 0 {
		v := stats.Validator
		pairs = append(pairs,
			[2]string{"Arbiter batches", fmt.Sprintf("%d (%d failed)", v.Batches, v.FailedBatches)},
			[2]string{"Arbiter accepted", fmt.Sprintf("%d of %d", v.Accepted, v.Enqueued)},
		)
	}
	pairs = append(pairs,
		[2]string{"Index build", formatSeconds(stats.IndexBuild)},
		[2]string{"Elapsed", formatSeconds(stats.Elapsed)},
		[2]string{"Items/sec", fmt.Sprintf("%.2f", stats.ItemsPerSecond())},
	)
	if output != "" {
		pairs = append(pairs, [2]string{"Output", output})
	}
	fmt.Fprintln(out, renderKeyValues(pairs))
}

func printMatches(out io.Writer, results []matching.MatchResult, limit int) {
	if limit <= 0 || len(results) == 0 {
		return
	}
	rows := make([][]string, 0, min(limit, len(results)))
	for _, r := range results[:min(limit, len(results))] {
		confidence := "-"
		if r.ArbiterConfidence != nil {
			confidence = fmt.Sprintf("%d%%", *r.ArbiterConfidence)
		}
		rows = append(rows, []string{
			r.TargetID,
			truncateText(r.TargetDescription, 40),
			r.SourceID,
			truncateText(r.SourceDescription, 40),
			fmt.Sprintf("%d%%", r.Similarity),
			confidence,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Target", "Target description", "Source", "Source description", "Similarity", "Confidence"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	if len(results) > limit {
		fmt.Fprintf(out, "... and %d more\n", len(results)-limit)
	}
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
