// Package allocation places a category's monthly amount on individual days.
//
// Two strategies live here: Allocator, which follows a weekday bias curve and
// cooldown spacing, and Distributor, which only looks at the behavior class.
// Both are deterministic and never lose money: every cent of the input ends
// up on some day, or is reported back as a warning.
package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayAmount is an amount placed on a day of the allocation window.
type DayAmount struct {
	Index  int
	Amount decimal.Decimal
}

// Contribution is a category amount placed on a day index.
type Contribution struct {
	DayIndex int
	Category string
	Amount   decimal.Decimal
}

// Result is the output of a multi-category allocation.
type Result struct {
	Contributions []Contribution
	Warnings      []error
}

// PerDay folds the contributions into a day-indexed list of category amounts.
func (r *Result) PerDay(numDays int) []map[string]decimal.Decimal {
	days := make([]map[string]decimal.Decimal, numDays)
	for i := range days {
		days[i] = map[string]decimal.Decimal{}
	}
	for _, c := range r.Contributions {
		if c.DayIndex < 0 || c.DayIndex >= numDays {
			continue
		}
		days[c.DayIndex][c.Category] = days[c.DayIndex][c.Category].Add(c.Amount)
	}
	return days
}

// Window returns numDays consecutive dates starting at start.
func Window(start time.Time, numDays int) []time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := make([]time.Time, numDays)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

func place(indices []int, shares []decimal.Decimal) []DayAmount {
	out := make([]DayAmount, len(shares))
	for i, s := range shares {
		out[i] = DayAmount{Index: indices[i], Amount: s}
	}
	return out
}
