package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the recurrence schedule of a recurring expense.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyDaily   Frequency = "daily"
)

// Valid reports whether f is a recognized frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyWeekly, FrequencyDaily:
		return true
	}
	return false
}

// RecurringExpense is an expense repeating on a schedule, owned by the
// persistence collaborator.
type RecurringExpense struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency Frequency       `json:"frequency"`
	StartDate time.Time       `json:"start_date"`
	// EndDate is inclusive; the zero value means open-ended.
	EndDate time.Time `json:"end_date,omitempty"`
}

// Overlaps reports whether the expense is active at any point of [from, to].
func (e *RecurringExpense) Overlaps(from, to time.Time) bool {
	if Date(e.StartDate).After(Date(to)) {
		return false
	}
	if !e.EndDate.IsZero() && Date(e.EndDate).Before(Date(from)) {
		return false
	}
	return true
}
