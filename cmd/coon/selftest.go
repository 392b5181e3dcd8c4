package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/registry"
	"github.com/fyrsmithlabs/coon/internal/samples"
	"github.com/fyrsmithlabs/coon/internal/strategy"
)

var errSelfTestFailed = errors.New("self-test failed")

type check struct {
	name string
	run  func(ctx context.Context, svc *compression.Service) error
}

func (c *cli) selftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run built-in compression checks against the embedded samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChecks(cmd.Context(), cmd.OutOrStdout(), c.app.svc, selfChecks())
		},
	}
}

func runChecks(ctx context.Context, w io.Writer, svc *compression.Service, checks []check) error {
	failed := 0
	for _, chk := range checks {
		if err := chk.run(ctx, svc); err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %v\n", chk.name, err)
			continue
		}
		fmt.Fprintf(w, "PASS  %s\n", chk.name)
	}
	fmt.Fprintf(w, "\n%d/%d checks passed\n", len(checks)-failed, len(checks))
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d checks", errSelfTestFailed, failed, len(checks))
	}
	return nil
}

func selfChecks() []check {
	return []check{
		{name: "every strategy compresses every sample", run: checkAllStrategies},
		{name: "aggressive beats basic", run: checkAggressiveBeatsBasic},
		{name: "default components match themselves", run: checkComponentsMatch},
		{name: "empty input", run: checkEmptyInput},
		{name: "identity round trip", run: checkIdentity},
	}
}

func checkAllStrategies(ctx context.Context, svc *compression.Service) error {
	for _, s := range samples.All() {
		for _, id := range strategy.Concrete() {
			res, err := svc.Compress(ctx, s.Source, compression.Options{Strategy: id.String()})
			if err != nil {
				return fmt.Errorf("%s/%s: %w", s.Name, id, err)
			}
			if res.CompressedTokens > res.OriginalTokens {
				return fmt.Errorf("%s/%s grew from %d to %d tokens", s.Name, id, res.OriginalTokens, res.CompressedTokens)
			}
		}
	}
	return nil
}

func checkAggressiveBeatsBasic(ctx context.Context, svc *compression.Service) error {
	src := samples.MustGet(samples.LoginScreen)
	basic, err := svc.Compress(ctx, src, compression.Options{Strategy: strategy.Basic.String()})
	if err != nil {
		return err
	}
	aggressive, err := svc.Compress(ctx, src, compression.Options{Strategy: strategy.Aggressive.String()})
	if err != nil {
		return err
	}
	if len(aggressive.Compressed) >= len(basic.Compressed) {
		return fmt.Errorf("aggressive output %d bytes, basic %d", len(aggressive.Compressed), len(basic.Compressed))
	}
	return nil
}

func checkComponentsMatch(_ context.Context, _ *compression.Service) error {
	reg := registry.Default()
	for _, comp := range reg.List() {
		m, ok := reg.FindMatching(comp.Code, 0.85)
		if !ok {
			return fmt.Errorf("%s: no match", comp.ID)
		}
		if m.Component.ID != comp.ID {
			return fmt.Errorf("%s matched %s", comp.ID, m.Component.ID)
		}
	}
	return nil
}

func checkEmptyInput(ctx context.Context, svc *compression.Service) error {
	res, err := svc.Compress(ctx, "", compression.Options{})
	if err != nil {
		return err
	}
	if res.Ratio != 0 || res.OriginalTokens != 0 {
		return fmt.Errorf("ratio %.2f over %d tokens, want 0", res.Ratio, res.OriginalTokens)
	}
	return nil
}

func checkIdentity(ctx context.Context, svc *compression.Service) error {
	src := samples.MustGet(samples.Counter)
	res := svc.Validate(ctx, src, src, src)
	if !res.Valid || !res.Reversible {
		return fmt.Errorf("identity not reversible: %v", res.Errors)
	}
	return nil
}
