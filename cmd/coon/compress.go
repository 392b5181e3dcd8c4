package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/coon/internal/analyzer"
	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/validator"
)

// compressFlags are shared by compress and roundtrip.
type compressFlags struct {
	output      string
	selection   string
	analyze     bool
	validate    bool
	format      bool
	record      bool
	preferSpeed bool
	json        bool
	stats       bool
	diff        bool
}

func (f *compressFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "write output to file instead of stdout")
	fl.StringVar(&f.selection, "selection", "", "auto strategy heuristic: scored or analyzer")
	fl.BoolVar(&f.analyze, "analyze", false, "attach code analysis (with --json)")
	fl.BoolVar(&f.validate, "validate", false, "decompress and validate the round trip")
	fl.BoolVar(&f.format, "format", false, "re-indent decompressed output")
	fl.BoolVar(&f.record, "record", false, "record the outcome in the strategy metrics")
	fl.BoolVar(&f.preferSpeed, "prefer-speed", false, "favor strategies that skip structural analysis")
	fl.BoolVar(&f.json, "json", false, "print the full result as JSON")
	fl.BoolVar(&f.stats, "stats", false, "print token statistics to stderr")
}

// options merges explicitly set flags over the configured defaults.
func (f *compressFlags) options(cmd *cobra.Command, base compression.Options) (compression.Options, error) {
	opts := base
	fl := cmd.Flags()
	if fl.Changed("analyze") {
		opts.Analyze = f.analyze
	}
	if fl.Changed("validate") {
		opts.Validate = f.validate
	}
	if fl.Changed("record") {
		opts.RecordMetrics = f.record
	}
	if fl.Changed("prefer-speed") {
		opts.PreferSpeed = f.preferSpeed
	}
	opts.Format = f.format
	if f.selection != "" {
		sel, err := compression.ParseSelection(f.selection)
		if err != nil {
			return opts, err
		}
		opts.Selection = sel
	}
	return opts, nil
}

func (c *cli) compressCmd() *cobra.Command {
	var f compressFlags
	cmd := &cobra.Command{
		Use:   "compress [file...]",
		Short: "Compress Dart source into COON",
		Long: `Compress Dart/Flutter source read from files or stdin.

Examples:
  # Compress a file with the configured default strategy
  coon compress lib/login_screen.dart

  # Pick a strategy and show token savings
  cat widget.dart | coon compress -s aggressive --stats

  # Compress several files in parallel and print JSON results
  coon compress --json a.dart b.dart`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd, c.app.defaults())
			if err != nil {
				return err
			}
			if len(args) > 1 {
				return c.compressBatch(cmd, args, opts, f)
			}

			src, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			res, err := c.app.svc.Compress(cmd.Context(), src, opts)
			if err != nil {
				return err
			}
			if f.stats {
				printStats(cmd.ErrOrStderr(), res)
			}
			if f.json {
				return writeJSON(cmd, f.output, res)
			}
			return writeOutput(cmd, f.output, res.Compressed)
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) compressBatch(cmd *cobra.Command, paths []string, opts compression.Options, f compressFlags) error {
	texts := make([]string, len(paths))
	for i, p := range paths {
		src, err := readInput(cmd, p)
		if err != nil {
			return err
		}
		texts[i] = src
	}

	results, err := c.app.svc.CompressBatch(cmd.Context(), texts, opts)
	if err != nil {
		return err
	}
	if f.stats {
		for _, r := range results {
			printStats(cmd.ErrOrStderr(), r)
		}
	}
	if f.json {
		return writeJSON(cmd, f.output, results)
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "// %s\n%s\n", paths[i], r.Compressed)
	}
	return writeOutput(cmd, f.output, b.String())
}

func (c *cli) decompressCmd() *cobra.Command {
	var (
		output string
		format bool
	)
	cmd := &cobra.Command{
		Use:   "decompress [file]",
		Short: "Expand COON back into Dart source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			out, err := c.app.svc.Decompress(cmd.Context(), src, format)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write output to file instead of stdout")
	cmd.Flags().BoolVar(&format, "format", true, "re-indent the output")
	return cmd
}

func (c *cli) analyzeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Report widget usage and compression opportunities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			res, err := c.app.svc.Analyze(cmd.Context(), src)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, "", res)
			}
			if err := analyzer.Report(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Recommended strategy: %s\n", analyzer.RecommendStrategy(res))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	return cmd
}

var errValidationFailed = errors.New("validation failed")

func (c *cli) validateCmd() *cobra.Command {
	var (
		decompressedPath string
		asJSON           bool
		diff             bool
	)
	cmd := &cobra.Command{
		Use:   "validate <original> <compressed>",
		Short: "Check that COON text expands back to the original",
		Long: `Validate a compression round trip. The compressed file is decompressed
unless --decompressed names the expanded text to compare.

Exits non-zero when the round trip is not valid.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			original, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			compressed, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			var decompressed string
			if decompressedPath != "" {
				decompressed, err = readInput(cmd, decompressedPath)
			} else {
				decompressed, err = c.app.svc.Decompress(cmd.Context(), compressed, false)
			}
			if err != nil {
				return err
			}

			res := c.app.svc.Validate(cmd.Context(), original, compressed, decompressed)
			if err := printValidation(cmd, res, original, decompressed, asJSON, diff); err != nil {
				return err
			}
			if !res.Valid {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&decompressedPath, "decompressed", "", "expanded text to compare instead of decompressing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&diff, "diff", false, "print a unified diff of original and decompressed")
	return cmd
}

func (c *cli) roundtripCmd() *cobra.Command {
	var f compressFlags
	cmd := &cobra.Command{
		Use:   "roundtrip [file]",
		Short: "Compress, decompress and validate in one step",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			opts, err := f.options(cmd, c.app.defaults())
			if err != nil {
				return err
			}
			res, err := c.app.svc.RoundTrip(cmd.Context(), src, opts)
			if err != nil {
				return err
			}
			if f.json {
				return writeJSON(cmd, f.output, res)
			}
			printStats(cmd.OutOrStdout(), res)
			if err := printValidation(cmd, *res.Validation, src, res.Decompressed, false, f.diff); err != nil {
				return err
			}
			if !res.Validation.Valid {
				return errValidationFailed
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.diff, "diff", false, "print a unified diff of original and decompressed")
	return cmd
}

func printValidation(cmd *cobra.Command, res validator.Result, original, decompressed string, asJSON, diff bool) error {
	if asJSON {
		return writeJSON(cmd, "", res)
	}
	out := cmd.OutOrStdout()
	if err := validator.Report(out, res); err != nil {
		return err
	}
	if !diff {
		return nil
	}
	d, err := validator.Diff(original, decompressed)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, d)
	return err
}

func printStats(w io.Writer, r *compression.Result) {
	fmt.Fprintf(w, "strategy: %s  tokens: %d -> %d  saved: %d (%.1f%%)\n",
		r.Strategy, r.OriginalTokens, r.CompressedTokens, r.TokensSaved(), r.PercentSaved())
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return string(b), nil
}

// writeOutput writes text to path, or stdout when path is empty.
func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return writeOutput(cmd, path, string(b)+"\n")
}
