package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// transactionRow maps the budget_transactions table.
type transactionRow struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Date      string          `json:"date"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"created_at"`
}

func toRow(tx *domain.Transaction) transactionRow {
	return transactionRow{
		ID:        tx.ID,
		UserID:    tx.UserID,
		Date:      tx.Date.Format(domain.DateLayout),
		Type:      string(tx.Type),
		Amount:    tx.Amount,
		Category:  tx.Category,
		CreatedAt: tx.CreatedAt.UTC(),
	}
}

func (r transactionRow) toDomain() (domain.Transaction, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: bad date: %w", r.ID, err)
	}
	return domain.Transaction{
		ID:        r.ID,
		UserID:    r.UserID,
		Date:      date,
		Type:      domain.TransactionType(r.Type),
		Amount:    r.Amount,
		Category:  r.Category,
		CreatedAt: r.CreatedAt,
	}, nil
}

func decodeTransactions(body []byte) ([]domain.Transaction, error) {
	if len(body) == 0 {
		return []domain.Transaction{}, nil
	}
	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode budget_transactions: %w", err)
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// SaveTransaction implements port.TransactionStore.
func (c *Client) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", tx.UserID), attribute.String("transaction.id", tx.ID))

	_, err := call(ctx, c, "budget_transactions", func() (struct{}, error) {
		_, err := c.doPost(ctx, tableTransactions, toRow(tx))
		return struct{}{}, err
	})
	return err
}

// GetTransaction implements port.TransactionStore.
func (c *Client) GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("transaction.id", txID))

	return call(ctx, c, "budget_transactions", func() (*domain.Transaction, error) {
		path := fmt.Sprintf("%s?%s&%s&limit=1", tableTransactions, eq("user_id", userID), eq("id", txID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return nil, err
		}
		txs, err := decodeTransactions(body)
		if err != nil {
			return nil, err
		}
		if len(txs) == 0 {
			return nil, &domain.ErrNotFound{Resource: "transaction", ID: txID}
		}
		return &txs[0], nil
	})
}

// DeleteTransaction implements port.TransactionStore.
func (c *Client) DeleteTransaction(ctx context.Context, userID, txID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("transaction.id", txID))

	_, err := call(ctx, c, "budget_transactions", func() (struct{}, error) {
		path := fmt.Sprintf("%s?%s&%s", tableTransactions, eq("user_id", userID), eq("id", txID))
		body, err := c.doDelete(ctx, path)
		if err != nil {
			return struct{}{}, err
		}
		txs, err := decodeTransactions(body)
		if err != nil {
			return struct{}{}, err
		}
		if len(txs) == 0 {
			return struct{}{}, &domain.ErrNotFound{Resource: "transaction", ID: txID}
		}
		return struct{}{}, nil
	})
	return err
}

// ListTransactions implements port.TransactionStore. Both bounds are
// inclusive dates.
func (c *Client) ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return call(ctx, c, "budget_transactions", func() ([]domain.Transaction, error) {
		path := fmt.Sprintf("%s?%s&date=gte.%s&date=lte.%s&order=date.asc,created_at.asc",
			tableTransactions, eq("user_id", userID),
			from.Format(domain.DateLayout), to.Format(domain.DateLayout))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return nil, err
		}
		return decodeTransactions(body)
	})
}
