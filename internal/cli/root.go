// Package cli implements the budgetcal command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/boddenberg/budget-calendar-go/internal/config"
	"github.com/boddenberg/budget-calendar-go/internal/infra/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is injected at build time via -ldflags
var Version = "dev"

type rootOptions struct {
	envFile string
	stats   bool

	// newLogger builds the process logger; tests replace it.
	newLogger func(level string) *zap.Logger

	app      *app
	shutdown func(context.Context) error
}

// NewRootCommand creates and returns the root cobra command for budgetcal.
func NewRootCommand() *cobra.Command {
	return newRootCommand(observability.NewLogger)
}

func newRootCommand(newLogger func(string) *zap.Logger) *cobra.Command {
	opts := &rootOptions{newLogger: newLogger}

	cmd := &cobra.Command{
		Use:   "budgetcal",
		Short: "Plan a monthly budget and lay it out over the days of the month",
		Long: `budgetcal splits income into fixed expenses, savings and per-category
discretionary budgets, distributes them over the days of a month following
each category's spending behavior, and rebalances days as actual spending
comes in.

Recurring expenses and transactions come from the input file, or from
Supabase when USE_SUPABASE=true.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.teardown(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Load environment variables from this file when it exists")
	cmd.PersistentFlags().BoolVar(&opts.stats, "stats", false, "Print a metrics snapshot to stderr")

	cmd.AddCommand(newPlanCommand(opts))
	cmd.AddCommand(newCalendarCommand(opts))
	cmd.AddCommand(newSpendCommand(opts))
	cmd.AddCommand(newRedistributeCommand(opts))

	return cmd
}

func (o *rootOptions) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.envFile != "" {
		if err := config.LoadDotEnv(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", o.envFile, err)
		}
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := o.newLogger(cfg.LogLevel)

	shutdown, err := observability.InitTracer(ctx, "budgetcal", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}
	o.shutdown = shutdown

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	o.app = a
	return nil
}

func (o *rootOptions) teardown(ctx context.Context, stderr io.Writer) error {
	if o.app == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if o.stats {
		if err := writeJSON(stderr, o.app.metrics.Snapshot()); err != nil {
			return err
		}
	}
	if err := o.shutdown(ctx); err != nil {
		o.app.logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	o.app.close()
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func warningMessages(warnings []error) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.Error())
	}
	return out
}
