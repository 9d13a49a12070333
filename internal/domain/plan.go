package domain

import (
	"github.com/shopspring/decimal"
)

// PlanRequest carries the inputs of a monthly budget plan.
type PlanRequest struct {
	UserID           string                     `json:"user_id,omitempty"`
	MonthlyIncome    decimal.Decimal            `json:"monthly_income"`
	AdditionalIncome decimal.Decimal            `json:"additional_income"`
	FixedExpenses    map[string]decimal.Decimal `json:"fixed_expenses"`
	SavingsGoal      decimal.Decimal            `json:"savings_goal"`
	// CategoryWeights are user-specific weights; empty means regional defaults.
	CategoryWeights map[string]decimal.Decimal `json:"category_weights,omitempty"`
	Region          string                     `json:"region" validate:"omitempty,alpha,len=2"`
	// AllowSavingsClamp lowers an unreachable savings goal instead of failing.
	AllowSavingsClamp bool `json:"allow_savings_clamp"`
}

// TotalIncome is the monthly plus additional income.
func (r *PlanRequest) TotalIncome() decimal.Decimal {
	return r.MonthlyIncome.Add(r.AdditionalIncome)
}

// BudgetPlan is the feasibility-checked split of income.
type BudgetPlan struct {
	Income                 decimal.Decimal            `json:"income"`
	FixedExpenses          map[string]decimal.Decimal `json:"fixed_expenses"`
	FixedTotal             decimal.Decimal            `json:"fixed_total"`
	RequestedSavingsGoal   decimal.Decimal            `json:"requested_savings_goal"`
	SavingsGoal            decimal.Decimal            `json:"savings_goal"`
	Discretionary          decimal.Decimal            `json:"discretionary"`
	DiscretionaryBreakdown map[string]decimal.Decimal `json:"discretionary_breakdown"`
	Weights                map[string]decimal.Decimal `json:"weights"`
	Region                 string                     `json:"region,omitempty"`
	IncomeTier             string                     `json:"income_tier,omitempty"`
	Warnings               []error                    `json:"-"`
}

// PlannedTotal is the money a calendar built from this plan must hold.
func (p *BudgetPlan) PlannedTotal() decimal.Decimal {
	return p.FixedTotal.Add(SumAmounts(p.DiscretionaryBreakdown))
}
