package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/behavior"
	"github.com/boddenberg/budget-calendar-go/internal/calendar"
	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/infra/cache"
	"github.com/boddenberg/budget-calendar-go/internal/infra/memory"
	"github.com/boddenberg/budget-calendar-go/internal/infra/observability"
	"github.com/boddenberg/budget-calendar-go/internal/infra/regional"
	"github.com/boddenberg/budget-calendar-go/internal/planner"
	"github.com/boddenberg/budget-calendar-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Mocks ---

type failingRecurringStore struct {
	err error
}

func (m *failingRecurringStore) ListRecurringExpenses(_ context.Context, _ string) ([]domain.RecurringExpense, error) {
	return nil, m.err
}

type countingEngineCache struct {
	*cache.InMemory[*calendar.Build]
	mu   sync.Mutex
	sets int
}

func (c *countingEngineCache) Set(key string, b *calendar.Build) {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	c.InMemory.Set(key, b)
}

// --- Helpers ---

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc          *service.BudgetService
	recurring    *memory.RecurringStore
	transactions *memory.TransactionStore
	calendars    *memory.CalendarStore
	cache        *countingEngineCache
	metrics      *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	regions := regional.Default()
	f := &fixture{
		recurring:    memory.NewRecurringStore(),
		transactions: memory.NewTransactionStore(),
		calendars:    memory.NewCalendarStore(),
		cache:        &countingEngineCache{InMemory: cache.New[*calendar.Build](time.Minute)},
		metrics:      observability.NewMetrics(),
	}
	t.Cleanup(f.cache.Close)

	f.svc = service.NewBudgetService(service.Deps{
		Planner:      planner.NewBuilder(regions, regions, "US"),
		Engine:       calendar.NewEngine(behavior.Default(), nil),
		Recurring:    f.recurring,
		Transactions: f.transactions,
		Calendars:    f.calendars,
		Cache:        f.cache,
		Metrics:      f.metrics,
		Logger:       zap.NewNop(),
	})
	return f
}

func scenarioPlan(t *testing.T, svc *service.BudgetService) *domain.BudgetPlan {
	t.Helper()
	plan, err := svc.BuildPlan(context.Background(), &domain.PlanRequest{
		UserID:          "user-1",
		MonthlyIncome:   d("5000"),
		FixedExpenses:   map[string]decimal.Decimal{"rent": d("1200"), "utilities": d("150")},
		SavingsGoal:     d("500"),
		CategoryWeights: map[string]decimal.Decimal{"food": d("0.5"), "transport": d("0.5")},
	})
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	return plan
}

func march(day int) time.Time {
	return time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC)
}

// --- Tests ---

func TestBuildPlan_ScenarioA(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)

	if !plan.Discretionary.Equal(d("3150")) {
		t.Errorf("expected discretionary 3150, got %s", plan.Discretionary)
	}
	if !plan.DiscretionaryBreakdown["food"].Equal(d("1575")) || !plan.DiscretionaryBreakdown["transport"].Equal(d("1575")) {
		t.Errorf("unexpected breakdown: %v", plan.DiscretionaryBreakdown)
	}
}

func TestBuildPlan_Infeasible(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BuildPlan(context.Background(), &domain.PlanRequest{
		UserID:        "user-1",
		MonthlyIncome: d("1000"),
		FixedExpenses: map[string]decimal.Decimal{"rent": d("1200")},
	})
	var infeasible *domain.ErrBudgetInfeasible
	if !errors.As(err, &infeasible) {
		t.Fatalf("expected ErrBudgetInfeasible, got %v", err)
	}
}

func TestGenerateCalendar_InjectsAndSaves(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	f.recurring.Add(domain.RecurringExpense{
		ID: "gym", UserID: "user-1", Category: "gym", Amount: d("15"),
		Frequency: domain.FrequencyWeekly, StartDate: time.Date(2025, time.February, 26, 0, 0, 0, 0, time.UTC),
	})

	res, err := f.svc.GenerateCalendar(context.Background(), "user-1", plan, 2025, time.March)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Injected.Written() != 4 {
		t.Errorf("expected 4 gym occurrences, got %d", res.Injected.Written())
	}
	want := plan.PlannedTotal().Add(d("60"))
	if !res.Calendar.GrandTotal().Equal(want) {
		t.Errorf("expected grand total %s, got %s", want, res.Calendar.GrandTotal())
	}

	stored, err := f.svc.Calendar(context.Background(), "user-1", 2025, time.March)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !stored.GrandTotal().Equal(want) {
		t.Errorf("expected saved calendar total %s, got %s", want, stored.GrandTotal())
	}
}

func TestGenerateCalendar_CachesEngineBuilds(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)

	first, err := f.svc.GenerateCalendar(context.Background(), "user-1", plan, 2025, time.March)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	first.Calendar[0].PlannedBudget["rent"] = decimal.Zero

	second, err := f.svc.GenerateCalendar(context.Background(), "user-2", plan, 2025, time.March)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if f.cache.sets != 1 {
		t.Errorf("expected one engine build, got %d", f.cache.sets)
	}
	if !second.Calendar[0].PlannedBudget["rent"].Equal(d("1200")) {
		t.Error("cached build was changed through a returned calendar")
	}
	if rate := f.metrics.Snapshot().CacheHitRate; rate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", rate)
	}
}

func TestGenerateCalendar_ReplaysStoredTransactions(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	ctx := context.Background()

	if _, err := f.svc.GenerateCalendar(ctx, "user-1", plan, 2025, time.March); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.svc.RecordTransaction(ctx, &domain.Transaction{
		UserID: "user-1", Date: march(3), Type: domain.TransactionExpense, Amount: d("20"), Category: "food",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	res, err := f.svc.GenerateCalendar(ctx, "user-1", plan, 2025, time.March)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if res.Replayed != 1 {
		t.Errorf("expected 1 replayed transaction, got %d", res.Replayed)
	}
	if !res.Calendar[2].ActualSpending["food"].Equal(d("20")) {
		t.Errorf("expected replayed spending of 20, got %s", res.Calendar[2].ActualSpending["food"])
	}
}

func TestGenerateCalendar_RejectsUnknownFrequency(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	f.recurring.Add(domain.RecurringExpense{
		ID: "bad", UserID: "user-1", Category: "rent", Amount: d("10"),
		Frequency: "yearly", StartDate: march(1),
	})

	_, err := f.svc.GenerateCalendar(context.Background(), "user-1", plan, 2025, time.March)
	var unknown *domain.ErrUnknownRecurrenceFrequency
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownRecurrenceFrequency, got %v", err)
	}
	var notFound *domain.ErrNotFound
	if _, err := f.svc.Calendar(context.Background(), "user-1", 2025, time.March); !errors.As(err, &notFound) {
		t.Errorf("expected no calendar saved, got %v", err)
	}
}

func TestGenerateCalendar_StoreFailure(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	svc := service.NewBudgetService(service.Deps{
		Engine:    calendar.NewEngine(behavior.Default(), nil),
		Recurring: &failingRecurringStore{err: &domain.ErrExternalService{Service: "supabase/recurring_expenses", Err: errors.New("timeout")}},
		Calendars: f.calendars,
		Metrics:   f.metrics,
	})

	_, err := svc.GenerateCalendar(context.Background(), "user-1", plan, 2025, time.March)
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if got := f.metrics.Snapshot().ExternalErrors["recurring_expenses"]; got != 1 {
		t.Errorf("expected 1 external error recorded, got %d", got)
	}
}

func TestGenerateCalendar_Validation(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	var validation *domain.ErrValidation

	if _, err := f.svc.GenerateCalendar(context.Background(), "", plan, 2025, time.March); !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation for empty user, got %v", err)
	}
	if _, err := f.svc.GenerateCalendar(context.Background(), "user-1", nil, 2025, time.March); !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation for nil plan, got %v", err)
	}
}

func TestRecordTransaction_OverspendRebalances(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	ctx := context.Background()

	gen, err := f.svc.GenerateCalendar(ctx, "user-1", plan, 2025, time.March)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	before := gen.Calendar.GrandTotal()
	planned := gen.Calendar[2].PlannedTotal()

	out, err := f.svc.RecordTransaction(ctx, &domain.Transaction{
		UserID: "user-1", Date: march(3), Type: domain.TransactionExpense,
		Amount: planned.Mul(d("2")), Category: "food",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if out.Day.Status != domain.StatusRed {
		t.Errorf("expected red, got %s", out.Day.Status)
	}
	if !out.Rebalanced() {
		t.Error("expected redistribution on overspend")
	}

	stored, _ := f.svc.Calendar(ctx, "user-1", 2025, time.March)
	if !stored.GrandTotal().Equal(before) {
		t.Errorf("grand total changed from %s to %s", before, stored.GrandTotal())
	}
	if len(stored[2].Recommendations) != 1 {
		t.Errorf("expected a recommendation, got %v", stored[2].Recommendations)
	}
	if s := f.metrics.Snapshot(); s.Transactions["expense/red"] != 1 || s.Transfers == 0 {
		t.Errorf("unexpected metrics: %+v", s)
	}
}

func TestRecordTransaction_WithoutCalendar(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordTransaction(context.Background(), &domain.Transaction{
		UserID: "user-1", Date: march(3), Type: domain.TransactionExpense, Amount: d("1"), Category: "food",
	})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordTransaction_ConcurrentWritesAreSerialized(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	ctx := context.Background()

	if _, err := f.svc.GenerateCalendar(ctx, "user-1", plan, 2025, time.March); err != nil {
		t.Fatalf("generate: %v", err)
	}

	const writers = 25
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordTransaction(ctx, &domain.Transaction{
				UserID: "user-1", Date: march(10), Type: domain.TransactionExpense, Amount: d("1.00"), Category: "coffee",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stored, _ := f.svc.Calendar(ctx, "user-1", 2025, time.March)
	if !stored[9].ActualSpending["coffee"].Equal(d("25")) {
		t.Errorf("expected 25 spent, got %s", stored[9].ActualSpending["coffee"])
	}
	txs, _ := f.transactions.ListTransactions(ctx, "user-1", march(1), march(31))
	if len(txs) != writers {
		t.Errorf("expected %d stored transactions, got %d", writers, len(txs))
	}
}

func TestDeleteTransaction(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	ctx := context.Background()

	if _, err := f.svc.GenerateCalendar(ctx, "user-1", plan, 2025, time.March); err != nil {
		t.Fatalf("generate: %v", err)
	}
	tx := &domain.Transaction{UserID: "user-1", Date: march(4), Type: domain.TransactionExpense, Amount: d("30"), Category: "food"}
	if _, err := f.svc.RecordTransaction(ctx, tx); err != nil {
		t.Fatalf("record: %v", err)
	}

	out, err := f.svc.DeleteTransaction(ctx, "user-1", tx.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !out.Day.ActualTotal().IsZero() {
		t.Errorf("expected no spending left, got %s", out.Day.ActualTotal())
	}

	var notFound *domain.ErrNotFound
	if _, err := f.svc.DeleteTransaction(ctx, "user-1", tx.ID); !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRedistributeSnapshot_ScenarioB(t *testing.T) {
	f := newFixture(t)

	res := f.svc.RedistributeSnapshot(map[string]domain.DayBudget{
		"1": {Total: d("150"), Limit: d("100")},
		"2": {Total: d("70"), Limit: d("100")},
	})

	if !res.Days["1"].Total.Equal(d("100")) || !res.Days["2"].Total.Equal(d("120")) {
		t.Errorf("unexpected result: %v", res.Days)
	}
	if len(res.Transfers) != 1 || !res.Transfers[0].Amount.Equal(d("50")) {
		t.Errorf("expected one transfer of 50, got %v", res.Transfers)
	}
}

func TestRedistribute_SavedCalendar(t *testing.T) {
	f := newFixture(t)
	plan := scenarioPlan(t, f.svc)
	ctx := context.Background()

	gen, err := f.svc.GenerateCalendar(ctx, "user-1", plan, 2025, time.March)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	before := gen.Calendar.GrandTotal()

	// Spending on a day with no plan stays neutral, so only an explicit pass moves budget there.
	if _, err := f.svc.RecordTransaction(ctx, &domain.Transaction{
		UserID: "user-1", Date: march(2), Type: domain.TransactionExpense, Amount: d("40"), Category: "gift",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	transfers, err := f.svc.Redistribute(ctx, "user-1", 2025, time.March)
	if err != nil {
		t.Fatalf("redistribute: %v", err)
	}
	if len(transfers) == 0 {
		t.Fatal("expected transfers toward the unplanned spending")
	}

	stored, _ := f.svc.Calendar(ctx, "user-1", 2025, time.March)
	if !stored.GrandTotal().Equal(before) {
		t.Errorf("grand total changed from %s to %s", before, stored.GrandTotal())
	}
	if !stored[1].Total.Equal(d("40")) {
		t.Errorf("expected 40 moved to March 2nd, got %s", stored[1].Total)
	}
}
