package calendar_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/behavior"
	"github.com/boddenberg/budget-calendar-go/internal/calendar"
	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func scenarioPlan() *domain.BudgetPlan {
	return &domain.BudgetPlan{
		Income:        d("5000"),
		FixedExpenses: map[string]decimal.Decimal{"rent": d("1200"), "utilities": d("150")},
		FixedTotal:    d("1350"),
		SavingsGoal:   d("500"),
		Discretionary: d("3150"),
		DiscretionaryBreakdown: map[string]decimal.Decimal{
			"food":          d("1000"),
			"transport":     d("575"),
			"dining_out":    d("400"),
			"entertainment": d("300"),
			"shopping":      d("875"),
		},
	}
}

func daysWith(cal domain.MonthlyCalendar, category string) []int {
	var out []int
	for i := range cal {
		if _, ok := cal[i].PlannedBudget[category]; ok {
			out = append(out, i)
		}
	}
	return out
}

func TestBuild_PreservesPlanTotal(t *testing.T) {
	engine := calendar.NewEngine(behavior.Default(), nil)
	plan := scenarioPlan()

	build, err := engine.Build(plan, 2025, time.March)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(build.Calendar) != 31 {
		t.Fatalf("expected 31 days, got %d", len(build.Calendar))
	}
	if !build.Calendar.GrandTotal().Equal(plan.PlannedTotal()) {
		t.Errorf("expected grand total %s, got %s", plan.PlannedTotal(), build.Calendar.GrandTotal())
	}
	for i := range build.Calendar {
		day := build.Calendar[i]
		if !day.Total.Equal(day.PlannedTotal()) {
			t.Errorf("%s: total %s != planned %s", day.Key(), day.Total, day.PlannedTotal())
		}
	}
}

func TestBuild_BehaviorClasses(t *testing.T) {
	engine := calendar.NewEngine(behavior.Default(), nil)

	build, err := engine.Build(scenarioPlan(), 2025, time.March)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	cal := build.Calendar

	if days := daysWith(cal, "rent"); len(days) != 1 || days[0] != 0 {
		t.Errorf("expected rent on day 0 only, got %v", days)
	}
	if days := daysWith(cal, "utilities"); len(days) != 1 {
		t.Errorf("expected utilities on one day, got %v", days)
	}
	if days := daysWith(cal, "transport"); len(days) < 2 {
		t.Errorf("expected transport spread over several days, got %v", days)
	}
	for _, c := range []string{"dining_out", "entertainment", "shopping"} {
		if days := daysWith(cal, c); len(days) == 0 || len(days) > domain.MaxClusteredDays {
			t.Errorf("expected %s on 1..%d days, got %v", c, domain.MaxClusteredDays, days)
		}
	}
}

func TestBuild_IsIdempotent(t *testing.T) {
	engine := calendar.NewEngine(behavior.Default(), nil)

	first, err := engine.Build(scenarioPlan(), 2025, time.March)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := engine.Build(scenarioPlan(), 2025, time.March)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	a, _ := json.Marshal(first.Calendar)
	b, _ := json.Marshal(second.Calendar)
	if !bytes.Equal(a, b) {
		t.Error("expected byte-identical calendars for identical inputs")
	}
}

func TestBuild_ZeroDiscretionary(t *testing.T) {
	engine := calendar.NewEngine(behavior.Default(), nil)
	plan := &domain.BudgetPlan{
		FixedExpenses:          map[string]decimal.Decimal{"rent": d("1350")},
		FixedTotal:             d("1350"),
		DiscretionaryBreakdown: map[string]decimal.Decimal{"food": decimal.Zero},
	}

	build, err := engine.Build(plan, 2025, time.February)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(build.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", build.Warnings)
	}
	if build.Calendar[0].Status != domain.StatusGreen {
		t.Errorf("expected green on the rent day, got %s", build.Calendar[0].Status)
	}
	if build.Calendar[1].Status != domain.StatusNeutral {
		t.Errorf("expected neutral on an empty day, got %s", build.Calendar[1].Status)
	}
}

func TestBuild_CategoryInBothMapsAccumulates(t *testing.T) {
	engine := calendar.NewEngine(behavior.Default(), nil)
	plan := &domain.BudgetPlan{
		FixedExpenses:          map[string]decimal.Decimal{"food": d("100")},
		DiscretionaryBreakdown: map[string]decimal.Decimal{"food": d("310")},
	}

	build, err := engine.Build(plan, 2025, time.March)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	total := decimal.Zero
	for i := range build.Calendar {
		total = total.Add(build.Calendar[i].PlannedBudget["food"])
	}
	if !total.Equal(d("410")) {
		t.Errorf("expected food total 410, got %s", total)
	}
}

func TestBuild_InvalidInput(t *testing.T) {
	engine := calendar.NewEngine(behavior.Default(), nil)

	var validation *domain.ErrValidation
	if _, err := engine.Build(nil, 2025, time.March); !errors.As(err, &validation) {
		t.Errorf("expected validation error for nil plan, got %v", err)
	}
	if _, err := engine.Build(scenarioPlan(), 2025, time.Month(13)); !errors.As(err, &validation) {
		t.Errorf("expected validation error for month 13, got %v", err)
	}
}
