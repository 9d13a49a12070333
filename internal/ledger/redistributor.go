// Package ledger applies actual spending to calendars and rebalances
// overspent days against underspent ones.
package ledger

import (
	"sort"
	"strconv"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Redistributor moves budget from over-limit days to under-limit days with a
// deterministic greedy pass. It never changes the sum of day totals.
type Redistributor struct {
	spill bool
}

// Option configures a Redistributor.
type Option func(*Redistributor)

// WithResidualSpill controls whether overage left after every shortfall is
// filled still moves to the first under-limit day. Enabled by default.
func WithResidualSpill(enabled bool) Option {
	return func(r *Redistributor) {
		r.spill = enabled
	}
}

// NewRedistributor creates a redistributor.
func NewRedistributor(opts ...Option) *Redistributor {
	r := &Redistributor{spill: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the rebalanced snapshot, the transfers that produced it and the
// overage that could not be moved anywhere.
type Result struct {
	Days       map[string]domain.DayBudget `json:"days"`
	Transfers  []domain.BudgetTransfer     `json:"transfers"`
	Unresolved decimal.Decimal             `json:"unresolved"`
}

// Moved sums the amounts of all transfers.
func (r *Result) Moved() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Transfers {
		total = total.Add(t.Amount)
	}
	return total
}

type gap struct {
	key    string
	amount decimal.Decimal
}

// Redistribute rebalances a snapshot. The input map is not modified.
func (r *Redistributor) Redistribute(days map[string]domain.DayBudget) Result {
	out := make(map[string]domain.DayBudget, len(days))
	var over, under []gap
	for key, b := range days {
		out[key] = b
		if o := b.Overage(); o.IsPositive() {
			over = append(over, gap{key: key, amount: o})
		}
		if s := b.Shortfall(); s.IsPositive() {
			under = append(under, gap{key: key, amount: s})
		}
	}
	sortGaps(over)
	sortGaps(under)

	res := Result{Days: out, Transfers: []domain.BudgetTransfer{}, Unresolved: decimal.Zero}
	pairs := make(map[[2]string]int)
	move := func(src, dst string, amount decimal.Decimal) {
		s, d := out[src], out[dst]
		s.Total = s.Total.Sub(amount)
		d.Total = d.Total.Add(amount)
		out[src], out[dst] = s, d

		pair := [2]string{src, dst}
		if i, ok := pairs[pair]; ok {
			res.Transfers[i].Amount = res.Transfers[i].Amount.Add(amount)
			return
		}
		pairs[pair] = len(res.Transfers)
		res.Transfers = append(res.Transfers, domain.BudgetTransfer{SourceDay: src, DestinationDay: dst, Amount: amount})
	}

	for _, o := range over {
		remaining := o.amount
		for i := range under {
			if !remaining.IsPositive() {
				break
			}
			if !under[i].amount.IsPositive() {
				continue
			}
			amount := decimal.Min(remaining, under[i].amount)
			move(o.key, under[i].key, amount)
			remaining = remaining.Sub(amount)
			under[i].amount = under[i].amount.Sub(amount)
		}

		if remaining.IsPositive() && r.spill && len(under) > 0 {
			move(o.key, under[0].key, remaining)
			remaining = decimal.Zero
		}
		res.Unresolved = res.Unresolved.Add(remaining)
	}
	return res
}

// RedistributeCalendar rebalances cal in place. Days whose actual spending
// exceeds their total draw from days with unspent budget; only Total changes.
func (r *Redistributor) RedistributeCalendar(cal domain.MonthlyCalendar) []domain.BudgetTransfer {
	snapshot := make(map[string]domain.DayBudget, len(cal))
	index := make(map[string]int, len(cal))
	for i := range cal {
		key := cal[i].Key()
		snapshot[key] = domain.DayBudget{Total: cal[i].Total, Limit: cal[i].ActualTotal()}
		index[key] = i
	}

	inner := *r
	inner.spill = false
	res := inner.Redistribute(snapshot)
	for key, b := range res.Days {
		cal[index[key]].Total = b.Total
	}
	return res.Transfers
}

// sortGaps orders by amount descending, then by natural key order.
func sortGaps(gaps []gap) {
	sort.Slice(gaps, func(i, j int) bool {
		if c := gaps[i].amount.Cmp(gaps[j].amount); c != 0 {
			return c > 0
		}
		return keyLess(gaps[i].key, gaps[j].key)
	})
}

// keyLess compares numerically when both keys are integers. Keys with the
// same number, like "1" and "01", fall back to lexical order.
func keyLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil && na != nb:
		return na < nb
	case errA == nil && errB == nil:
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
