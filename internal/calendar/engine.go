// Package calendar builds monthly budget calendars from a plan and merges
// recurring expenses into them.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/allocation"
	"github.com/boddenberg/budget-calendar-go/internal/behavior"
	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Engine turns a budget plan into a MonthlyCalendar. Build is a pure function
// of its inputs, so results can be cached and rebuilt freely.
type Engine struct {
	registry    *behavior.Registry
	distributor *allocation.Distributor
}

// NewEngine creates a calendar engine.
func NewEngine(registry *behavior.Registry, distributor *allocation.Distributor) *Engine {
	if distributor == nil {
		distributor = allocation.NewDistributor(nil)
	}
	return &Engine{registry: registry, distributor: distributor}
}

// Build is a built calendar plus the distribution-level warnings raised while
// placing categories.
type Build struct {
	Calendar domain.MonthlyCalendar
	Warnings []error
}

type placement struct {
	category     string
	amount       decimal.Decimal
	defaultClass domain.BehaviorClass
}

// Build lays out the plan's fixed expenses and discretionary breakdown over
// every day of year/month.
func (e *Engine) Build(plan *domain.BudgetPlan, year int, month time.Month) (*Build, error) {
	if plan == nil {
		return nil, &domain.ErrValidation{Field: "plan", Message: "required"}
	}
	if month < time.January || month > time.December {
		return nil, &domain.ErrValidation{Field: "month", Message: fmt.Sprintf("invalid month %d", month)}
	}

	cal := domain.NewMonthlyCalendar(year, month)
	days := make([]time.Time, len(cal))
	for i := range cal {
		days[i] = cal[i].Date
	}

	placements := planPlacements(plan)
	allocator := allocation.NewAllocator(e.registry)
	build := &Build{Calendar: cal}
	expected := decimal.Zero

	for _, p := range placements {
		amount := domain.RoundCents(p.amount)
		if !amount.IsPositive() {
			continue
		}
		expected = expected.Add(amount)

		class := e.registry.ClassOf(p.category, p.defaultClass)
		profile, ok := e.registry.Profile(p.category)

		var placed []allocation.DayAmount
		if ok && class != domain.ClassFixed && profile.HasBias() {
			var warn *domain.AllocationUnresolvedWarning
			placed, warn = allocator.AllocateCategory(days[0], len(days), p.category, amount)
			if warn != nil {
				build.Warnings = append(build.Warnings, warn)
			}
		} else {
			placed = e.distributor.Distribute(p.category, class, amount, days)
		}

		for _, da := range placed {
			day := &cal[da.Index]
			day.PlannedBudget[p.category] = day.PlannedBudget[p.category].Add(da.Amount)
		}
	}

	for i := range cal {
		cal[i].Total = cal[i].PlannedTotal()
		cal[i].RecomputeStatus()
	}

	if got := cal.GrandTotal(); !got.Equal(expected) {
		return nil, fmt.Errorf("calendar total %s does not match plan total %s", got, expected)
	}
	return build, nil
}

// planPlacements lists fixed expenses then discretionary shares, each sorted
// by category name.
func planPlacements(plan *domain.BudgetPlan) []placement {
	out := make([]placement, 0, len(plan.FixedExpenses)+len(plan.DiscretionaryBreakdown))
	for _, c := range behavior.SortedCategories(plan.FixedExpenses) {
		out = append(out, placement{category: c, amount: plan.FixedExpenses[c], defaultClass: domain.ClassFixed})
	}
	for _, c := range behavior.SortedCategories(plan.DiscretionaryBreakdown) {
		out = append(out, placement{category: c, amount: plan.DiscretionaryBreakdown[c], defaultClass: domain.ClassSpread})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].category < out[j].category
	})
	return out
}
