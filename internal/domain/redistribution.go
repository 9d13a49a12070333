package domain

import (
	"github.com/shopspring/decimal"
)

// DayBudget is one entry of a redistribution snapshot.
type DayBudget struct {
	Total decimal.Decimal `json:"total"`
	Limit decimal.Decimal `json:"limit"`
}

// Overage is the amount above the limit, or zero.
func (b DayBudget) Overage() decimal.Decimal {
	return decimal.Max(b.Total.Sub(b.Limit), decimal.Zero)
}

// Shortfall is the amount below the limit, or zero.
func (b DayBudget) Shortfall() decimal.Decimal {
	return decimal.Max(b.Limit.Sub(b.Total), decimal.Zero)
}

// BudgetTransfer records currency moved from one day to another.
type BudgetTransfer struct {
	SourceDay      string          `json:"source_day"`
	DestinationDay string          `json:"destination_day"`
	Amount         decimal.Decimal `json:"amount"`
}
