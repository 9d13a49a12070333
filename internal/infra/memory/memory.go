// Package memory provides in-process stores for recurring expenses,
// transactions and calendars. Every store is an injected value; nothing is
// shared between instances.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"
)

// RecurringStore keeps recurring expenses per user.
type RecurringStore struct {
	mu    sync.RWMutex
	items map[string][]domain.RecurringExpense
}

// NewRecurringStore creates an empty recurring expense store.
func NewRecurringStore() *RecurringStore {
	return &RecurringStore{items: make(map[string][]domain.RecurringExpense)}
}

// Add appends expenses to their users' lists.
func (s *RecurringStore) Add(expenses ...domain.RecurringExpense) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range expenses {
		s.items[e.UserID] = append(s.items[e.UserID], e)
	}
}

// ListRecurringExpenses implements port.RecurringExpenseStore.
func (s *RecurringStore) ListRecurringExpenses(_ context.Context, userID string) ([]domain.RecurringExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.RecurringExpense{}, s.items[userID]...), nil
}

// TransactionStore keeps transactions per user and ID.
type TransactionStore struct {
	mu    sync.RWMutex
	items map[string]map[string]domain.Transaction
}

// NewTransactionStore creates an empty transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{items: make(map[string]map[string]domain.Transaction)}
}

// SaveTransaction implements port.TransactionStore.
func (s *TransactionStore) SaveTransaction(_ context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return &domain.ErrValidation{Field: "id", Message: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.items[tx.UserID]
	if !ok {
		byID = make(map[string]domain.Transaction)
		s.items[tx.UserID] = byID
	}
	byID[tx.ID] = *tx
	return nil
}

// GetTransaction implements port.TransactionStore.
func (s *TransactionStore) GetTransaction(_ context.Context, userID, txID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.items[userID][txID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: txID}
	}
	return &tx, nil
}

// DeleteTransaction implements port.TransactionStore.
func (s *TransactionStore) DeleteTransaction(_ context.Context, userID, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[userID][txID]; !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: txID}
	}
	delete(s.items[userID], txID)
	return nil
}

// ListTransactions implements port.TransactionStore. Results are ordered by
// date, creation time and ID.
func (s *TransactionStore) ListTransactions(_ context.Context, userID string, from, to time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = domain.Date(from), domain.Date(to)
	out := []domain.Transaction{}
	for _, tx := range s.items[userID] {
		d := domain.Date(tx.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// CalendarStore keeps one calendar per user and month. Calendars are copied
// on the way in and out.
type CalendarStore struct {
	mu    sync.RWMutex
	items map[string]domain.MonthlyCalendar
}

// NewCalendarStore creates an empty calendar store.
func NewCalendarStore() *CalendarStore {
	return &CalendarStore{items: make(map[string]domain.MonthlyCalendar)}
}

func calendarKey(userID string, year int, month time.Month) string {
	return fmt.Sprintf("%s/%04d-%02d", userID, year, int(month))
}

// LoadCalendar implements port.CalendarRepository.
func (s *CalendarStore) LoadCalendar(_ context.Context, userID string, year int, month time.Month) (domain.MonthlyCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := calendarKey(userID, year, month)
	cal, ok := s.items[key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "calendar", ID: key}
	}
	return cal.Clone(), nil
}

// SaveCalendar implements port.CalendarRepository.
func (s *CalendarStore) SaveCalendar(_ context.Context, userID string, cal domain.MonthlyCalendar) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[calendarKey(userID, cal.Year(), cal.Month())] = cal.Clone()
	return nil
}
