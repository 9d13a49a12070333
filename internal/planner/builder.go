// Package planner splits a user's income into fixed expenses, a savings goal
// and a per-category discretionary breakdown.
package planner

import (
	"context"
	"fmt"

	"github.com/boddenberg/budget-calendar-go/internal/behavior"
	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/port"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Builder computes feasibility-checked budget plans.
type Builder struct {
	profiles      port.CountryProfileProvider
	classifier    port.IncomeClassifier
	defaultRegion string
	validate      *validator.Validate
}

// NewBuilder creates a plan builder. profiles and classifier may be nil when
// every request carries its own category weights.
func NewBuilder(profiles port.CountryProfileProvider, classifier port.IncomeClassifier, defaultRegion string) *Builder {
	return &Builder{
		profiles:      profiles,
		classifier:    classifier,
		defaultRegion: defaultRegion,
		validate:      validator.New(),
	}
}

// Build validates the request, checks feasibility and splits the
// discretionary pool across categories.
func (b *Builder) Build(ctx context.Context, req *domain.PlanRequest) (*domain.BudgetPlan, error) {
	if err := b.validateRequest(req); err != nil {
		return nil, err
	}

	income := domain.RoundCents(req.TotalIncome())
	fixed := make(map[string]decimal.Decimal, len(req.FixedExpenses))
	for c, amount := range req.FixedExpenses {
		fixed[c] = domain.RoundCents(amount)
	}
	fixedTotal := domain.SumAmounts(fixed)
	requested := domain.RoundCents(req.SavingsGoal)

	plan := &domain.BudgetPlan{
		Income:               income,
		FixedExpenses:        fixed,
		FixedTotal:           fixedTotal,
		RequestedSavingsGoal: requested,
		SavingsGoal:          requested,
		Region:               b.region(req),
	}

	if fixedTotal.GreaterThan(income) {
		return nil, &domain.ErrBudgetInfeasible{Income: income, FixedTotal: fixedTotal, SavingsGoal: requested}
	}
	if fixedTotal.Add(requested).GreaterThan(income) {
		if !req.AllowSavingsClamp {
			return nil, &domain.ErrBudgetInfeasible{Income: income, FixedTotal: fixedTotal, SavingsGoal: requested}
		}
		plan.SavingsGoal = income.Sub(fixedTotal)
		plan.Warnings = append(plan.Warnings, &domain.SavingsGoalClampedWarning{
			Requested: requested,
			Applied:   plan.SavingsGoal,
		})
	}
	plan.Discretionary = income.Sub(fixedTotal).Sub(plan.SavingsGoal)

	weights, tier, err := b.resolveWeights(ctx, req, plan.Region, income)
	if err != nil {
		return nil, err
	}
	plan.IncomeTier = tier
	plan.Weights = weights
	plan.DiscretionaryBreakdown = Distribute(plan.Discretionary, weights)

	return plan, nil
}

func (b *Builder) region(req *domain.PlanRequest) string {
	if req.Region != "" {
		return req.Region
	}
	return b.defaultRegion
}

func (b *Builder) validateRequest(req *domain.PlanRequest) error {
	if req == nil {
		return &domain.ErrValidation{Field: "request", Message: "required"}
	}
	if err := b.validate.Struct(req); err != nil {
		return &domain.ErrValidation{Field: "request", Message: err.Error()}
	}
	if req.MonthlyIncome.IsNegative() {
		return &domain.ErrValidation{Field: "monthly_income", Message: "must not be negative"}
	}
	if req.AdditionalIncome.IsNegative() {
		return &domain.ErrValidation{Field: "additional_income", Message: "must not be negative"}
	}
	if req.SavingsGoal.IsNegative() {
		return &domain.ErrValidation{Field: "savings_goal", Message: "must not be negative"}
	}
	for c, amount := range req.FixedExpenses {
		if c == "" {
			return &domain.ErrValidation{Field: "fixed_expenses", Message: "empty category"}
		}
		if amount.IsNegative() {
			return &domain.ErrValidation{Field: "fixed_expenses", Message: fmt.Sprintf("negative amount for %s", c)}
		}
	}
	for c, w := range req.CategoryWeights {
		if c == "" {
			return &domain.ErrValidation{Field: "category_weights", Message: "empty category"}
		}
		if !w.IsPositive() {
			return &domain.ErrValidation{Field: "category_weights", Message: fmt.Sprintf("weight for %s must be positive", c)}
		}
	}
	return nil
}

// resolveWeights returns the normalized weights: the user's own when given,
// otherwise regional defaults for the income tier scaled by regional multipliers.
func (b *Builder) resolveWeights(ctx context.Context, req *domain.PlanRequest, region string, income decimal.Decimal) (map[string]decimal.Decimal, string, error) {
	if len(req.CategoryWeights) > 0 {
		w, err := Normalize(req.CategoryWeights)
		return w, "", err
	}
	if b.profiles == nil {
		return nil, "", &domain.ErrValidation{Field: "category_weights", Message: "required when no regional defaults are configured"}
	}

	tier := ""
	if b.classifier != nil {
		t, err := b.classifier.Classify(ctx, region, income)
		if err != nil {
			return nil, "", fmt.Errorf("classify income: %w", err)
		}
		tier = t
	}

	defaults, err := b.profiles.DefaultWeights(ctx, region, tier)
	if err != nil {
		return nil, "", fmt.Errorf("regional weights: %w", err)
	}
	multipliers, err := b.profiles.RegionalMultipliers(ctx, region)
	if err != nil {
		return nil, "", fmt.Errorf("regional multipliers: %w", err)
	}

	scaled := make(map[string]decimal.Decimal, len(defaults))
	for c, w := range defaults {
		if m, ok := multipliers[c]; ok {
			w = w.Mul(m)
		}
		if w.IsPositive() {
			scaled[c] = w
		}
	}
	w, err := Normalize(scaled)
	return w, tier, err
}

// Normalize scales weights so they add up to one.
func Normalize(weights map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	total := domain.SumAmounts(weights)
	if !total.IsPositive() {
		return nil, &domain.ErrValidation{Field: "category_weights", Message: "weights must add up to a positive value"}
	}
	out := make(map[string]decimal.Decimal, len(weights))
	for c, w := range weights {
		out[c] = w.Div(total)
	}
	return out, nil
}

// Distribute splits pool proportionally to weights, rounded half-up to cents.
// The rounding remainder goes to the first category in lexical order that can
// absorb it without turning negative, so the shares add up to pool exactly.
func Distribute(pool decimal.Decimal, weights map[string]decimal.Decimal) map[string]decimal.Decimal {
	shares := make(map[string]decimal.Decimal, len(weights))
	categories := behavior.SortedCategories(weights)
	if len(categories) == 0 {
		return shares
	}

	for _, c := range categories {
		shares[c] = domain.RoundCents(pool.Mul(weights[c]))
	}
	remainder := pool.Sub(domain.SumAmounts(shares))
	if remainder.IsZero() {
		return shares
	}
	for _, c := range categories {
		if adjusted := shares[c].Add(remainder); !adjusted.IsNegative() {
			shares[c] = adjusted
			break
		}
	}
	return shares
}
