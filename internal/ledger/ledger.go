package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/port"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger records actual spending against a calendar. Callers serialize
// mutations of one calendar; the ledger holds no per-calendar state.
type Ledger struct {
	store         port.TransactionStore
	redistributor *Redistributor
	validate      *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewLedger creates a ledger. store may be nil for purely in-memory use,
// in which case Create and Delete are unavailable.
func NewLedger(store port.TransactionStore, redistributor *Redistributor, logger *zap.Logger) *Ledger {
	if redistributor == nil {
		redistributor = NewRedistributor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:         store,
		redistributor: redistributor,
		validate:      validator.New(),
		logger:        logger,
		now:           time.Now,
	}
}

// Outcome describes the effect of one ledger operation on its day.
type Outcome struct {
	Transaction *domain.Transaction     `json:"transaction,omitempty"`
	Day         domain.CalendarDay      `json:"day"`
	Previous    domain.Status           `json:"previous_status"`
	Transfers   []domain.BudgetTransfer `json:"transfers"`
}

// Rebalanced reports whether the operation triggered a redistribution.
func (o *Outcome) Rebalanced() bool {
	return len(o.Transfers) > 0
}

// Apply adds a spend event to the calendar day of date. Expenses increase
// the day's actual spending; other transactions leave it unchanged. When the
// day moves into orange or red, the whole calendar is rebalanced.
func (l *Ledger) Apply(userID string, date time.Time, txType domain.TransactionType, amount decimal.Decimal, category string, cal domain.MonthlyCalendar) (*Outcome, error) {
	i, err := l.locate(cal, date, txType, amount, category)
	if err != nil {
		return nil, err
	}

	day := &cal[i]
	out := &Outcome{Previous: day.Status, Transfers: []domain.BudgetTransfer{}}
	if txType == domain.TransactionExpense {
		day.ActualSpending[category] = day.ActualSpending[category].Add(domain.RoundCents(amount))
		prev := day.RecomputeStatus()

		if day.Status.Overspent() && day.Status != prev {
			out.Transfers = l.redistributor.RedistributeCalendar(cal)
			day.Recommendations = append(day.Recommendations, recommendation(day, category, out.Transfers))
			l.logger.Info("day moved into overspend",
				zap.String("user_id", userID),
				zap.String("date", day.Key()),
				zap.String("status", string(day.Status)),
				zap.Int("transfers", len(out.Transfers)),
			)
		}
	}
	out.Day = day.Clone()
	return out, nil
}

// Create validates and persists tx, then applies it to cal.
func (l *Ledger) Create(ctx context.Context, tx *domain.Transaction, cal domain.MonthlyCalendar) (*Outcome, error) {
	if l.store == nil {
		return nil, fmt.Errorf("ledger has no transaction store")
	}
	if tx == nil {
		return nil, &domain.ErrValidation{Field: "transaction", Message: "required"}
	}
	if err := l.validate.Struct(tx); err != nil {
		return nil, &domain.ErrValidation{Field: "transaction", Message: err.Error()}
	}
	if _, err := l.locate(cal, tx.Date, tx.Type, tx.Amount, tx.Category); err != nil {
		return nil, err
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.Date = domain.Date(tx.Date)
	tx.Amount = domain.RoundCents(tx.Amount)
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = l.now().UTC()
	}

	if err := l.store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("saving transaction: %w", err)
	}

	out, err := l.Apply(tx.UserID, tx.Date, tx.Type, tx.Amount, tx.Category, cal)
	if err != nil {
		return nil, err
	}
	out.Transaction = tx
	return out, nil
}

// Delete removes a stored transaction and takes its amount back out of the
// day's actual spending, never going below zero.
func (l *Ledger) Delete(ctx context.Context, userID, txID string, cal domain.MonthlyCalendar) (*Outcome, error) {
	if l.store == nil {
		return nil, fmt.Errorf("ledger has no transaction store")
	}
	tx, err := l.store.GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, err
	}
	if err := l.store.DeleteTransaction(ctx, userID, txID); err != nil {
		return nil, fmt.Errorf("deleting transaction: %w", err)
	}

	out := &Outcome{Transaction: tx, Transfers: []domain.BudgetTransfer{}}
	i := cal.DayIndex(tx.Date)
	if i < 0 {
		return out, nil
	}

	day := &cal[i]
	out.Previous = day.Status
	if tx.Type == domain.TransactionExpense {
		if current, ok := day.ActualSpending[tx.Category]; ok {
			day.ActualSpending[tx.Category] = decimal.Max(current.Sub(tx.Amount), decimal.Zero)
		}
		day.RecomputeStatus()
	}
	out.Day = day.Clone()
	return out, nil
}

// Replay applies stored transactions in date and creation order and returns
// every transfer the replay triggered.
func (l *Ledger) Replay(txs []domain.Transaction, cal domain.MonthlyCalendar) ([]domain.BudgetTransfer, error) {
	ordered := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	transfers := []domain.BudgetTransfer{}
	for _, tx := range ordered {
		out, err := l.Apply(tx.UserID, tx.Date, tx.Type, tx.Amount, tx.Category, cal)
		if err != nil {
			return transfers, fmt.Errorf("replaying transaction %s: %w", tx.ID, err)
		}
		transfers = append(transfers, out.Transfers...)
	}
	return transfers, nil
}

func (l *Ledger) locate(cal domain.MonthlyCalendar, date time.Time, txType domain.TransactionType, amount decimal.Decimal, category string) (int, error) {
	if txType != domain.TransactionExpense && txType != domain.TransactionOther {
		return -1, &domain.ErrValidation{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", txType)}
	}
	if !amount.IsPositive() {
		return -1, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if category == "" {
		return -1, &domain.ErrValidation{Field: "category", Message: "required"}
	}
	i := cal.DayIndex(date)
	if i < 0 {
		return -1, &domain.ErrValidation{Field: "date", Message: fmt.Sprintf("%s is outside the calendar month", date.Format(domain.DateLayout))}
	}
	return i, nil
}

func recommendation(day *domain.CalendarDay, category string, transfers []domain.BudgetTransfer) string {
	over := day.ActualTotal().Sub(day.PlannedTotal())
	msg := fmt.Sprintf("Spending is %s over plan (%s); hold back on %s for the next few days",
		over.StringFixed(domain.CurrencyPlaces), day.Status, category)

	key := day.Key()
	covered := decimal.Zero
	for _, t := range transfers {
		if t.DestinationDay == key {
			covered = covered.Add(t.Amount)
		}
	}
	if covered.IsPositive() {
		msg += fmt.Sprintf("; %s moved in from days with unspent budget", covered.StringFixed(domain.CurrencyPlaces))
	}
	return msg
}
