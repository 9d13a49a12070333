// Package service wires the budget core to its stores, cache and telemetry.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/calendar"
	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/infra/observability"
	"github.com/boddenberg/budget-calendar-go/internal/ledger"
	"github.com/boddenberg/budget-calendar-go/internal/planner"
	"github.com/boddenberg/budget-calendar-go/internal/port"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("service/budget")

// Deps are the collaborators of a BudgetService.
type Deps struct {
	Planner       *planner.Builder
	Engine        *calendar.Engine
	Injector      *calendar.Injector
	Ledger        *ledger.Ledger
	Redistributor *ledger.Redistributor

	Recurring    port.RecurringExpenseStore
	Transactions port.TransactionStore
	Calendars    port.CalendarRepository
	Cache        port.Cache[*calendar.Build]

	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// BudgetService plans budgets, builds calendars and records spending.
// Mutations of one user's month are serialized.
type BudgetService struct {
	planner       *planner.Builder
	engine        *calendar.Engine
	injector      *calendar.Injector
	ledger        *ledger.Ledger
	redistributor *ledger.Redistributor

	recurring    port.RecurringExpenseStore
	transactions port.TransactionStore
	calendars    port.CalendarRepository
	cache        port.Cache[*calendar.Build]

	builds  singleflight.Group
	locks   *keyLocks
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewBudgetService creates the budget service with all dependencies injected.
func NewBudgetService(d Deps) *BudgetService {
	if d.Redistributor == nil {
		d.Redistributor = ledger.NewRedistributor()
	}
	if d.Injector == nil {
		d.Injector = calendar.NewInjector()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetrics()
	}
	if d.Ledger == nil {
		d.Ledger = ledger.NewLedger(d.Transactions, d.Redistributor, d.Logger)
	}
	return &BudgetService{
		planner:       d.Planner,
		engine:        d.Engine,
		injector:      d.Injector,
		ledger:        d.Ledger,
		redistributor: d.Redistributor,
		recurring:     d.Recurring,
		transactions:  d.Transactions,
		calendars:     d.Calendars,
		cache:         d.Cache,
		locks:         newKeyLocks(),
		metrics:       d.Metrics,
		logger:        d.Logger,
	}
}

// CalendarResult is a generated calendar with everything that happened
// while producing it.
type CalendarResult struct {
	Calendar  domain.MonthlyCalendar    `json:"calendar"`
	Warnings  []error                   `json:"-"`
	Injected  *calendar.InjectionReport `json:"-"`
	Transfers []domain.BudgetTransfer   `json:"transfers"`
	Replayed  int                       `json:"replayed_transactions"`
}

func calendarKey(userID string, year int, month time.Month) string {
	return fmt.Sprintf("%s/%04d-%02d", userID, year, int(month))
}

func monthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// BuildPlan builds a feasibility-checked budget plan.
func (s *BudgetService) BuildPlan(ctx context.Context, req *domain.PlanRequest) (*domain.BudgetPlan, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.BuildPlan")
	defer span.End()

	plan, err := s.planner.Build(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		var infeasible *domain.ErrBudgetInfeasible
		if errors.As(err, &infeasible) {
			s.logger.Info("budget infeasible",
				zap.String("user_id", req.UserID),
				zap.String("income", infeasible.Income.String()),
				zap.String("fixed_total", infeasible.FixedTotal.String()),
			)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("plan.region", plan.Region),
		attribute.Int("plan.categories", len(plan.DiscretionaryBreakdown)),
	)
	s.metrics.RecordWarnings(plan.Warnings)
	observability.LogWarnings(s.logger, "plan warning", plan.Warnings, zap.String("user_id", req.UserID))
	return plan, nil
}

// GenerateCalendar builds the calendar of year/month for plan, merges the
// user's recurring expenses, replays stored transactions and saves the
// result as the user's current calendar.
func (s *BudgetService) GenerateCalendar(ctx context.Context, userID string, plan *domain.BudgetPlan, year int, month time.Month) (res *CalendarResult, err error) {
	ctx, span := tracer.Start(ctx, "BudgetService.GenerateCalendar")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("calendar.month", fmt.Sprintf("%04d-%02d", year, int(month))))

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "required"}
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordBuild(time.Since(start), err)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	build, err := s.build(ctx, plan, year, month)
	if err != nil {
		return nil, err
	}
	cal := build.Calendar.Clone()

	unlock := s.locks.lock(calendarKey(userID, year, month))
	defer unlock()

	recurring, txs, err := s.fetch(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	report, err := s.injector.Inject(cal, recurring)
	if err != nil {
		s.logger.Warn("recurring expenses rejected", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("injecting recurring expenses: %w", err)
	}
	transfers, err := s.ledger.Replay(txs, cal)
	if err != nil {
		return nil, err
	}
	if err := s.calendars.SaveCalendar(ctx, userID, cal); err != nil {
		return nil, fmt.Errorf("saving calendar: %w", err)
	}

	s.metrics.RecordWarnings(build.Warnings)
	s.metrics.RecordTransfers(transfers)
	observability.LogWarnings(s.logger, "calendar warning", build.Warnings, zap.String("user_id", userID))
	s.logger.Info("calendar generated",
		zap.String("user_id", userID),
		zap.String("month", fmt.Sprintf("%04d-%02d", year, int(month))),
		zap.Int("recurring_occurrences", report.Written()),
		zap.Int("replayed_transactions", len(txs)),
		zap.Int("transfers", len(transfers)),
	)

	return &CalendarResult{
		Calendar:  cal.Clone(),
		Warnings:  build.Warnings,
		Injected:  report,
		Transfers: transfers,
		Replayed:  len(txs),
	}, nil
}

// build returns the engine output for plan, from cache when possible.
// Concurrent identical builds run once. The returned calendar is shared and
// must be cloned before mutation.
func (s *BudgetService) build(ctx context.Context, plan *domain.BudgetPlan, year int, month time.Month) (*calendar.Build, error) {
	_, span := tracer.Start(ctx, "BudgetService.build")
	defer span.End()

	key, err := buildKey(plan, year, month)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if b, ok := s.cache.Get(key); ok {
			s.metrics.IncrCacheHit("calendar")
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return b, nil
		}
		s.metrics.IncrCacheMiss("calendar")
	}

	v, err, shared := s.builds.Do(key, func() (any, error) {
		b, err := s.engine.Build(plan, year, month)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(key, b)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", false), attribute.Bool("build.shared", shared))
	return v.(*calendar.Build), nil
}

// buildKey hashes the canonical JSON of the plan with the month.
func buildKey(plan *domain.BudgetPlan, year int, month time.Month) (string, error) {
	if plan == nil {
		return "", &domain.ErrValidation{Field: "plan", Message: "required"}
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("encoding plan: %w", err)
	}
	return fmt.Sprintf("%04d-%02d:%016x", year, int(month), xxhash.Sum64(data)), nil
}

// fetch loads recurring expenses and the month's transactions concurrently.
func (s *BudgetService) fetch(ctx context.Context, userID string, year int, month time.Month) ([]domain.RecurringExpense, []domain.Transaction, error) {
	var (
		recurring []domain.RecurringExpense
		txs       []domain.Transaction
	)
	from, to := monthBounds(year, month)

	g, gCtx := errgroup.WithContext(ctx)
	if s.recurring != nil {
		g.Go(func() error {
			r, err := s.recurring.ListRecurringExpenses(gCtx, userID)
			if err != nil {
				s.logger.Error("failed to fetch recurring expenses", zap.String("user_id", userID), zap.Error(err))
				s.metrics.IncrExternalError("recurring_expenses")
				return fmt.Errorf("recurring expenses fetch: %w", err)
			}
			recurring = r
			return nil
		})
	}
	if s.transactions != nil {
		g.Go(func() error {
			t, err := s.transactions.ListTransactions(gCtx, userID, from, to)
			if err != nil {
				s.logger.Error("failed to fetch transactions", zap.String("user_id", userID), zap.Error(err))
				s.metrics.IncrExternalError("transactions")
				return fmt.Errorf("transactions fetch: %w", err)
			}
			txs = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return recurring, txs, nil
}

// Calendar returns a copy of the user's current calendar for year/month.
func (s *BudgetService) Calendar(ctx context.Context, userID string, year int, month time.Month) (domain.MonthlyCalendar, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Calendar")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	cal, err := s.calendars.LoadCalendar(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}
	return cal.Clone(), nil
}

// RecordTransaction stores tx and applies it to the calendar of its month.
func (s *BudgetService) RecordTransaction(ctx context.Context, tx *domain.Transaction) (*ledger.Outcome, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.RecordTransaction")
	defer span.End()

	if tx == nil {
		return nil, &domain.ErrValidation{Field: "transaction", Message: "required"}
	}
	if tx.Date.IsZero() {
		return nil, &domain.ErrValidation{Field: "date", Message: "required"}
	}
	span.SetAttributes(attribute.String("user.id", tx.UserID), attribute.String("transaction.type", string(tx.Type)))

	var out *ledger.Outcome
	err := s.mutate(ctx, tx.UserID, tx.Date.Year(), tx.Date.Month(), func(cal domain.MonthlyCalendar) error {
		var err error
		out, err = s.ledger.Create(ctx, tx, cal)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.RecordTransaction(tx.Type, out.Day.Status)
	s.metrics.RecordTransfers(out.Transfers)
	s.logger.Info("transaction recorded",
		zap.String("user_id", tx.UserID),
		zap.String("transaction_id", tx.ID),
		zap.String("date", out.Day.Key()),
		zap.String("status", string(out.Day.Status)),
	)
	return out, nil
}

// DeleteTransaction removes a stored transaction and takes it back out of
// its calendar.
func (s *BudgetService) DeleteTransaction(ctx context.Context, userID, txID string) (*ledger.Outcome, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("transaction.id", txID))

	tx, err := s.transactions.GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, err
	}

	var out *ledger.Outcome
	err = s.mutate(ctx, userID, tx.Date.Year(), tx.Date.Month(), func(cal domain.MonthlyCalendar) error {
		var err error
		out, err = s.ledger.Delete(ctx, userID, txID, cal)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.logger.Info("transaction deleted",
		zap.String("user_id", userID),
		zap.String("transaction_id", txID),
	)
	return out, nil
}

// Redistribute rebalances the user's calendar for year/month and saves it.
func (s *BudgetService) Redistribute(ctx context.Context, userID string, year int, month time.Month) ([]domain.BudgetTransfer, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Redistribute")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var transfers []domain.BudgetTransfer
	err := s.mutate(ctx, userID, year, month, func(cal domain.MonthlyCalendar) error {
		transfers = s.redistributor.RedistributeCalendar(cal)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransfers(transfers)
	return transfers, nil
}

// RedistributeSnapshot rebalances a standalone snapshot.
func (s *BudgetService) RedistributeSnapshot(days map[string]domain.DayBudget) ledger.Result {
	res := s.redistributor.Redistribute(days)
	s.metrics.RecordTransfers(res.Transfers)
	if res.Unresolved.IsPositive() {
		s.logger.Info("redistribution left overage unresolved", zap.String("amount", res.Unresolved.String()))
	}
	return res
}

// mutate loads a calendar under its lock, applies fn and saves the result.
// Nothing is saved when fn fails.
func (s *BudgetService) mutate(ctx context.Context, userID string, year int, month time.Month, fn func(domain.MonthlyCalendar) error) error {
	unlock := s.locks.lock(calendarKey(userID, year, month))
	defer unlock()

	cal, err := s.calendars.LoadCalendar(ctx, userID, year, month)
	if err != nil {
		return err
	}
	if err := fn(cal); err != nil {
		return err
	}
	if err := s.calendars.SaveCalendar(ctx, userID, cal); err != nil {
		return fmt.Errorf("saving calendar: %w", err)
	}
	return nil
}
