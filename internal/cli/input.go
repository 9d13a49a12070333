package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// planFile is the YAML input of the plan, calendar and spend commands.
// Amounts are strings so they parse exactly.
type planFile struct {
	UserID            string             `yaml:"user_id" validate:"required"`
	Region            string             `yaml:"region" validate:"omitempty,alpha,len=2"`
	MonthlyIncome     string             `yaml:"monthly_income" validate:"required,numeric"`
	AdditionalIncome  string             `yaml:"additional_income" validate:"omitempty,numeric"`
	SavingsGoal       string             `yaml:"savings_goal" validate:"omitempty,numeric"`
	AllowSavingsClamp bool               `yaml:"allow_savings_clamp"`
	FixedExpenses     map[string]string  `yaml:"fixed_expenses" validate:"dive,keys,required,endkeys,numeric"`
	Weights           map[string]string  `yaml:"weights" validate:"dive,keys,required,endkeys,numeric"`
	Recurring         []recurringEntry   `yaml:"recurring" validate:"dive"`
	Transactions      []transactionEntry `yaml:"transactions" validate:"dive"`
}

type recurringEntry struct {
	ID        string `yaml:"id" validate:"required"`
	Category  string `yaml:"category" validate:"required"`
	Amount    string `yaml:"amount" validate:"required,numeric"`
	Frequency string `yaml:"frequency" validate:"required"`
	StartDate string `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `yaml:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type transactionEntry struct {
	Date     string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Type     string `yaml:"type" validate:"omitempty,oneof=expense other"`
	Amount   string `yaml:"amount" validate:"required,numeric"`
	Category string `yaml:"category" validate:"required"`
}

func loadPlanFile(path string) (*planFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding plan file %s: %w", path, err)
	}
	if err := validator.New().Struct(&f); err != nil {
		return nil, &domain.ErrValidation{Field: "plan_file", Message: err.Error()}
	}
	return &f, nil
}

func (f *planFile) request() (*domain.PlanRequest, error) {
	req := &domain.PlanRequest{
		UserID:            f.UserID,
		Region:            f.Region,
		AllowSavingsClamp: f.AllowSavingsClamp,
	}
	var err error
	if req.MonthlyIncome, err = amount(f.MonthlyIncome); err != nil {
		return nil, err
	}
	if req.AdditionalIncome, err = amount(f.AdditionalIncome); err != nil {
		return nil, err
	}
	if req.SavingsGoal, err = amount(f.SavingsGoal); err != nil {
		return nil, err
	}
	if req.FixedExpenses, err = amounts(f.FixedExpenses); err != nil {
		return nil, err
	}
	if len(f.Weights) > 0 {
		if req.CategoryWeights, err = amounts(f.Weights); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (f *planFile) recurringExpenses() ([]domain.RecurringExpense, error) {
	out := make([]domain.RecurringExpense, 0, len(f.Recurring))
	for _, r := range f.Recurring {
		amt, err := amount(r.Amount)
		if err != nil {
			return nil, err
		}
		start, err := time.Parse(domain.DateLayout, r.StartDate)
		if err != nil {
			return nil, err
		}
		e := domain.RecurringExpense{
			ID:        r.ID,
			UserID:    f.UserID,
			Category:  r.Category,
			Amount:    amt,
			Frequency: domain.Frequency(r.Frequency),
			StartDate: start,
		}
		if r.EndDate != "" {
			if e.EndDate, err = time.Parse(domain.DateLayout, r.EndDate); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *planFile) transactions() ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(f.Transactions))
	for _, t := range f.Transactions {
		amt, err := amount(t.Amount)
		if err != nil {
			return nil, err
		}
		date, err := time.Parse(domain.DateLayout, t.Date)
		if err != nil {
			return nil, err
		}
		txType := domain.TransactionType(t.Type)
		if txType == "" {
			txType = domain.TransactionExpense
		}
		out = append(out, domain.Transaction{
			UserID:   f.UserID,
			Date:     date,
			Type:     txType,
			Amount:   amt,
			Category: t.Category,
		})
	}
	return out, nil
}

func amount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: fmt.Sprintf("invalid amount %q", s)}
	}
	return d, nil
}

func amounts(in map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		d, err := amount(v)
		if err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, nil
}

// loadSnapshot reads a redistribution snapshot: a JSON object of
// day key to {"total", "limit"}.
func loadSnapshot(path string) (map[string]domain.DayBudget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var days map[string]domain.DayBudget
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return days, nil
}

// parseMonth parses YYYY-MM; empty means the current month.
func parseMonth(s string, now time.Time) (int, time.Month, error) {
	if s == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, &domain.ErrValidation{Field: "month", Message: fmt.Sprintf("expected YYYY-MM, got %q", s)}
	}
	return t.Year(), t.Month(), nil
}
