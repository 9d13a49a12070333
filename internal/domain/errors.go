package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the budget core.

// ErrBudgetInfeasible indicates fixed expenses plus savings goal exceed income.
type ErrBudgetInfeasible struct {
	Income      decimal.Decimal
	FixedTotal  decimal.Decimal
	SavingsGoal decimal.Decimal
}

func (e *ErrBudgetInfeasible) Error() string {
	return fmt.Sprintf("budget infeasible: fixed=%s savings_goal=%s income=%s",
		e.FixedTotal.StringFixed(CurrencyPlaces),
		e.SavingsGoal.StringFixed(CurrencyPlaces),
		e.Income.StringFixed(CurrencyPlaces),
	)
}

// AllocationUnresolvedWarning indicates a category could not be placed under
// its cooldown/bias constraints. When Placed is true the amount went to Fallback.
type AllocationUnresolvedWarning struct {
	Category string
	Amount   decimal.Decimal
	Fallback time.Time
	Placed   bool
	Reason   string
}

func (w *AllocationUnresolvedWarning) Error() string {
	if w.Placed {
		return fmt.Sprintf("allocation unresolved for %s (%s): %s, placed on fallback day %s",
			w.Category, w.Amount.StringFixed(CurrencyPlaces), w.Reason, w.Fallback.Format(DateLayout))
	}
	return fmt.Sprintf("allocation unresolved for %s (%s): %s",
		w.Category, w.Amount.StringFixed(CurrencyPlaces), w.Reason)
}

// SavingsGoalClampedWarning indicates the savings goal was lowered to keep
// the discretionary pool non-negative.
type SavingsGoalClampedWarning struct {
	Requested decimal.Decimal
	Applied   decimal.Decimal
}

func (w *SavingsGoalClampedWarning) Error() string {
	return fmt.Sprintf("savings goal clamped from %s to %s",
		w.Requested.StringFixed(CurrencyPlaces), w.Applied.StringFixed(CurrencyPlaces))
}

// ErrUnknownRecurrenceFrequency indicates a recurring expense with a
// frequency outside monthly/weekly/daily.
type ErrUnknownRecurrenceFrequency struct {
	ExpenseID string
	Category  string
	Frequency Frequency
}

func (e *ErrUnknownRecurrenceFrequency) Error() string {
	return fmt.Sprintf("unknown recurrence frequency %q for expense %s (%s)", e.Frequency, e.ExpenseID, e.Category)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrExternalService indicates a failure in an external collaborator call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
