package cli

import (
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/service"

	"github.com/spf13/cobra"
)

func newPlanCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:     "plan",
		Short:   "Build a budget plan from an input file",
		Example: `  budgetcal plan -f plan.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := loadPlanFile(file)
			if err != nil {
				return err
			}
			req, err := f.request()
			if err != nil {
				return err
			}
			plan, err := opts.app.svc.BuildPlan(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				*domain.BudgetPlan
				Warnings []string `json:"warnings"`
			}{plan, warningMessages(plan.Warnings)})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Plan input file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type calendarFlags struct {
	file  string
	user  string
	month string
}

func (c *calendarFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.file, "file", "f", "", "Plan input file (YAML)")
	cmd.Flags().StringVar(&c.user, "user", "", "User ID (defaults to the file's user_id)")
	cmd.Flags().StringVar(&c.month, "month", "", "Month as YYYY-MM (defaults to the current month)")
	_ = cmd.MarkFlagRequired("file")
}

// generate builds the plan and the calendar of the requested month.
func (c *calendarFlags) generate(cmd *cobra.Command, opts *rootOptions) (*service.CalendarResult, string, error) {
	ctx := cmd.Context()
	f, err := loadPlanFile(c.file)
	if err != nil {
		return nil, "", err
	}
	if c.user != "" {
		f.UserID = c.user
	}
	year, month, err := parseMonth(c.month, time.Now())
	if err != nil {
		return nil, "", err
	}
	if err := opts.app.seed(ctx, f); err != nil {
		return nil, "", err
	}

	req, err := f.request()
	if err != nil {
		return nil, "", err
	}
	plan, err := opts.app.svc.BuildPlan(ctx, req)
	if err != nil {
		return nil, "", err
	}
	res, err := opts.app.svc.GenerateCalendar(ctx, f.UserID, plan, year, month)
	if err != nil {
		return nil, "", err
	}
	res.Warnings = append(append([]error{}, plan.Warnings...), res.Warnings...)
	return res, f.UserID, nil
}

func newCalendarCommand(opts *rootOptions) *cobra.Command {
	var flags calendarFlags
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Build the daily budget calendar of a month",
		Long: `Builds the plan, distributes it over the days of the month, merges
recurring expenses and replays stored transactions.`,
		Example: `  budgetcal calendar -f plan.yaml --month 2025-03`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, _, err := flags.generate(cmd, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				*service.CalendarResult
				Warnings []string `json:"warnings"`
			}{res, warningMessages(res.Warnings)})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSpendCommand(opts *rootOptions) *cobra.Command {
	var (
		flags    calendarFlags
		date     string
		amt      string
		category string
		txType   string
	)
	cmd := &cobra.Command{
		Use:     "spend",
		Short:   "Record a transaction against the month's calendar",
		Example: `  budgetcal spend -f plan.yaml --month 2025-03 --date 2025-03-03 --amount 42.50 --category food`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := time.Parse(domain.DateLayout, date)
			if err != nil {
				return &domain.ErrValidation{Field: "date", Message: "expected YYYY-MM-DD"}
			}
			value, err := amount(amt)
			if err != nil {
				return err
			}
			if flags.month == "" {
				flags.month = day.Format("2006-01")
			}

			_, userID, err := flags.generate(cmd, opts)
			if err != nil {
				return err
			}
			out, err := opts.app.svc.RecordTransaction(cmd.Context(), &domain.Transaction{
				UserID:   userID,
				Date:     day,
				Type:     domain.TransactionType(txType),
				Amount:   value,
				Category: category,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&date, "date", "", "Transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&amt, "amount", "", "Transaction amount")
	cmd.Flags().StringVar(&category, "category", "", "Spending category")
	cmd.Flags().StringVar(&txType, "type", string(domain.TransactionExpense), "Transaction type: expense or other")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newRedistributeCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "redistribute",
		Short: "Rebalance a snapshot of day totals and limits",
		Long: `Reads a JSON object of day key to {"total", "limit"} and moves budget from
days above their limit to days below it. The sum of totals never changes.`,
		Example: `  budgetcal redistribute -f days.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, err := loadSnapshot(file)
			if err != nil {
				return err
			}
			res := opts.app.svc.RedistributeSnapshot(days)
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Snapshot file (JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
