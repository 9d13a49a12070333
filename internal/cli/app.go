package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/allocation"
	"github.com/boddenberg/budget-calendar-go/internal/behavior"
	"github.com/boddenberg/budget-calendar-go/internal/calendar"
	"github.com/boddenberg/budget-calendar-go/internal/config"
	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/infra/cache"
	"github.com/boddenberg/budget-calendar-go/internal/infra/memory"
	"github.com/boddenberg/budget-calendar-go/internal/infra/observability"
	"github.com/boddenberg/budget-calendar-go/internal/infra/regional"
	"github.com/boddenberg/budget-calendar-go/internal/infra/resilience"
	"github.com/boddenberg/budget-calendar-go/internal/infra/supabase"
	"github.com/boddenberg/budget-calendar-go/internal/planner"
	"github.com/boddenberg/budget-calendar-go/internal/port"
	"github.com/boddenberg/budget-calendar-go/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// app is the wired service plus the stores the CLI seeds from input files.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	svc     *service.BudgetService
	cache   *cache.InMemory[*calendar.Build]

	// Set only when the stores are in-process.
	recurring    *memory.RecurringStore
	transactions port.TransactionStore
	local        bool
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	registry, err := behavior.Load(cfg.BehaviorProfilesPath)
	if err != nil {
		return nil, err
	}
	regions, err := regional.Load(cfg.RegionProfilesPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
		cache:   cache.New[*calendar.Build](cfg.CacheTTL),
	}

	var recurring port.RecurringExpenseStore
	if cfg.UseSupabase {
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		recurring = client
		a.transactions = client
		logger.Info("using supabase stores", zap.String("url", cfg.SupabaseURL))
	} else {
		a.recurring = memory.NewRecurringStore()
		recurring = a.recurring
		a.transactions = memory.NewTransactionStore()
		a.local = true
	}

	a.svc = service.NewBudgetService(service.Deps{
		Planner:      planner.NewBuilder(regions, regions, cfg.DefaultRegion),
		Engine:       calendar.NewEngine(registry, allocation.NewDistributor(nil)),
		Recurring:    recurring,
		Transactions: a.transactions,
		Calendars:    memory.NewCalendarStore(),
		Cache:        a.cache,
		Metrics:      a.metrics,
		Logger:       logger,
	})
	return a, nil
}

// seed loads the input file's recurring expenses and transactions into the
// in-process stores. Remote stores are left alone.
func (a *app) seed(ctx context.Context, f *planFile) error {
	if !a.local {
		if len(f.Recurring) > 0 || len(f.Transactions) > 0 {
			a.logger.Warn("ignoring recurring expenses and transactions from the input file with remote stores")
		}
		return nil
	}

	expenses, err := f.recurringExpenses()
	if err != nil {
		return err
	}
	a.recurring.Add(expenses...)

	txs, err := f.transactions()
	if err != nil {
		return err
	}
	for i := range txs {
		tx := &txs[i]
		tx.ID = uuid.New().String()
		tx.Date = domain.Date(tx.Date)
		tx.Amount = domain.RoundCents(tx.Amount)
		tx.CreatedAt = time.Now().UTC()
		if err := a.transactions.SaveTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close() {
	a.cache.Close()
	_ = a.logger.Sync()
}
