package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// recurringRow maps the recurring_expenses table.
type recurringRow struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency string          `json:"frequency"`
	StartDate string          `json:"start_date"`
	EndDate   *string         `json:"end_date"`
}

// ListRecurringExpenses implements port.RecurringExpenseStore. Rows are
// returned as stored; frequency validation happens on injection.
func (c *Client) ListRecurringExpenses(ctx context.Context, userID string) ([]domain.RecurringExpense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRecurringExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return call(ctx, c, "recurring_expenses", func() ([]domain.RecurringExpense, error) {
		path := fmt.Sprintf("%s?%s&order=start_date.asc,id.asc", tableRecurring, eq("user_id", userID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return []domain.RecurringExpense{}, nil
		}

		var rows []recurringRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode recurring_expenses: %w", err)
		}

		out := make([]domain.RecurringExpense, 0, len(rows))
		for _, r := range rows {
			e, err := r.toDomain()
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	})
}

func (r recurringRow) toDomain() (domain.RecurringExpense, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return domain.RecurringExpense{}, fmt.Errorf("recurring expense %s: bad start_date: %w", r.ID, err)
	}
	e := domain.RecurringExpense{
		ID:        r.ID,
		UserID:    r.UserID,
		Category:  r.Category,
		Amount:    r.Amount,
		Frequency: domain.Frequency(r.Frequency),
		StartDate: start,
	}
	if r.EndDate != nil {
		end, err := parseDate(*r.EndDate)
		if err != nil {
			return domain.RecurringExpense{}, fmt.Errorf("recurring expense %s: bad end_date: %w", r.ID, err)
		}
		e.EndDate = end
	}
	return e, nil
}
