package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes spending from other money movements.
type TransactionType string

const (
	TransactionExpense TransactionType = "expense"
	TransactionOther   TransactionType = "other"
)

// Transaction is an actual spend event recorded against a calendar day.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id" validate:"required"`
	Date      time.Time       `json:"date" validate:"required"`
	Type      TransactionType `json:"type" validate:"required,oneof=expense other"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category" validate:"required"`
	CreatedAt time.Time       `json:"created_at"`
}
