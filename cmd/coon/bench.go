package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/logging"
	"github.com/fyrsmithlabs/coon/internal/samples"
	"github.com/fyrsmithlabs/coon/internal/strategy"
)

// benchRow is one input compressed with one strategy.
type benchRow struct {
	Input            string        `json:"input"`
	Strategy         strategy.ID   `json:"strategy"`
	OriginalTokens   int           `json:"original_tokens"`
	CompressedTokens int           `json:"compressed_tokens"`
	Ratio            float64       `json:"compression_ratio"`
	Reversible       bool          `json:"reversible"`
	Similarity       float64       `json:"similarity"`
	Elapsed          time.Duration `json:"elapsed_ns"`
}

type benchReport struct {
	RunID      string             `json:"run_id"`
	Rows       []benchRow         `json:"rows"`
	Strategies []strategy.Metrics `json:"strategies"`
}

type benchInput struct {
	name   string
	source string
}

func (c *cli) benchCmd() *cobra.Command {
	var (
		iterations int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "bench [file...]",
		Short: "Compare every strategy on the built-in samples or given files",
		Long: `Compress each input with every strategy, validate each round trip, and
report per-input results followed by the strategy ranking built from the
recorded metrics. Strategy metrics start from their seeded values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := benchInputs(cmd, args)
			if err != nil {
				return err
			}
			if iterations < 1 {
				iterations = 1
			}

			runID := uuid.NewString()
			ctx := logging.WithRequestID(cmd.Context(), runID)
			svc := c.app.svc
			svc.Store().Reset()

			ids := strategy.Concrete()
			rows := make([]benchRow, len(inputs)*len(ids))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(c.app.cfg.Compression.BatchConcurrency)

			for i, in := range inputs {
				for j, id := range ids {
					slot := &rows[i*len(ids)+j]
					g.Go(func() error {
						var res *compression.Result
						for n := 0; n < iterations; n++ {
							r, err := svc.RoundTrip(gctx, in.source, compression.Options{
								Strategy:      id.String(),
								RecordMetrics: true,
							})
							if err != nil {
								return fmt.Errorf("%s/%s: %w", in.name, id, err)
							}
							res = r
						}
						*slot = benchRow{
							Input:            in.name,
							Strategy:         id,
							OriginalTokens:   res.OriginalTokens,
							CompressedTokens: res.CompressedTokens,
							Ratio:            res.Ratio,
							Reversible:       res.Validation.Reversible,
							Similarity:       res.Validation.Similarity,
							Elapsed:          res.Elapsed,
						}
						return nil
					})
				}
			}
			if err := g.Wait(); err != nil {
				return err
			}

			report := benchReport{RunID: runID, Rows: rows, Strategies: svc.Store().Compare()}
			c.app.logger.Info(ctx, "benchmark complete",
				zap.Int("inputs", len(inputs)),
				zap.Int("iterations", iterations),
				zap.String("best", report.Strategies[0].Strategy.String()),
			)
			if asJSON {
				return writeJSON(cmd, "", report)
			}
			return printBench(cmd, report)
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 1, "compressions per input and strategy")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func benchInputs(cmd *cobra.Command, paths []string) ([]benchInput, error) {
	if len(paths) == 0 {
		all := samples.All()
		inputs := make([]benchInput, len(all))
		for i, s := range all {
			inputs[i] = benchInput{name: s.Name, source: s.Source}
		}
		return inputs, nil
	}
	inputs := make([]benchInput, 0, len(paths))
	for _, p := range paths {
		src, err := readInput(cmd, p)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, benchInput{name: strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)), source: src})
	}
	sort.SliceStable(inputs, func(i, j int) bool { return inputs[i].name < inputs[j].name })
	return inputs, nil
}

func printBench(cmd *cobra.Command, r benchReport) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Benchmark %s\n\n", r.RunID)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tSTRATEGY\tTOKENS\tCOMPRESSED\tRATIO\tREVERSIBLE\tSIMILARITY")
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f%%\t%s\t%.2f\n",
			row.Input, row.Strategy, row.OriginalTokens, row.CompressedTokens,
			row.Ratio*100, yesNo(row.Reversible), row.Similarity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nStrategy ranking")
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTRATEGY\tAVG RATIO\tAVG SAVED\tAVG MS\tREVERSIBILITY\tUSES")
	for i, m := range r.Strategies {
		fmt.Fprintf(tw, "%d\t%s\t%.1f%%\t%d\t%.3f\t%.0f%%\t%d\n",
			i+1, m.Strategy, m.AvgRatio*100, m.AvgTokensSaved, m.AvgProcessingMs,
			m.ReversibilityRate*100, m.UseCount)
	}
	return tw.Flush()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
