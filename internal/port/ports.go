// Package port defines the interfaces (ports) for external collaborators.
// Following hexagonal architecture, these ports decouple the budget core and
// the service layer from concrete persistence and configuration sources.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
)

// CountryProfileProvider supplies regional default category weights.
type CountryProfileProvider interface {
	DefaultWeights(ctx context.Context, region, incomeTier string) (map[string]decimal.Decimal, error)
	RegionalMultipliers(ctx context.Context, region string) (map[string]decimal.Decimal, error)
}

// IncomeClassifier maps an income to an income-tier label.
type IncomeClassifier interface {
	Classify(ctx context.Context, region string, income decimal.Decimal) (string, error)
}

// RecurringExpenseStore lists persisted recurring expenses.
type RecurringExpenseStore interface {
	ListRecurringExpenses(ctx context.Context, userID string) ([]domain.RecurringExpense, error)
}

// TransactionStore is the durable storage behind the transaction ledger.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, txID string) error
	ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]domain.Transaction, error)
}

// CalendarRepository keeps the current calendar of each (user, year, month).
type CalendarRepository interface {
	LoadCalendar(ctx context.Context, userID string, year int, month time.Month) (domain.MonthlyCalendar, error)
	SaveCalendar(ctx context.Context, userID string, cal domain.MonthlyCalendar) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
