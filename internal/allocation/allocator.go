package allocation

import (
	"math"
	"sort"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/behavior"
	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
)

var uniformBias = [7]float64{1, 1, 1, 1, 1, 1, 1}

// Allocator selects days for a category from its weekday bias and cooldown,
// and remembers the selected dates so later passes honor the cooldown too.
//
// An Allocator is not safe for concurrent use; create one per calendar build.
type Allocator struct {
	registry *behavior.Registry
	memory   map[string][]time.Time
}

// NewAllocator creates an allocator with empty cooldown memory.
func NewAllocator(registry *behavior.Registry) *Allocator {
	return &Allocator{
		registry: registry,
		memory:   make(map[string][]time.Time),
	}
}

// Remember seeds the cooldown memory of a category, e.g. with the last
// selections of the previous month.
func (a *Allocator) Remember(category string, dates ...time.Time) {
	for _, d := range dates {
		a.memory[category] = append(a.memory[category], domain.Date(d))
	}
}

// Selected returns the dates remembered for a category.
func (a *Allocator) Selected(category string) []time.Time {
	return append([]time.Time(nil), a.memory[category]...)
}

// Allocate places every category of plan, in lexical category order.
func (a *Allocator) Allocate(start time.Time, numDays int, plan map[string]decimal.Decimal) Result {
	var res Result
	for _, category := range behavior.SortedCategories(plan) {
		placed, warn := a.AllocateCategory(start, numDays, category, plan[category])
		for _, p := range placed {
			res.Contributions = append(res.Contributions, Contribution{
				DayIndex: p.Index,
				Category: category,
				Amount:   p.Amount,
			})
		}
		if warn != nil {
			res.Warnings = append(res.Warnings, warn)
		}
	}
	return res
}

// AllocateCategory places one category's amount over numDays days starting at
// start. Categories without a profile get a flat bias and no cooldown.
//
// When cooldown and bias leave no candidate day, the whole amount goes to the
// day that violates the cooldown the least and a warning is returned.
func (a *Allocator) AllocateCategory(start time.Time, numDays int, category string, amount decimal.Decimal) ([]DayAmount, *domain.AllocationUnresolvedWarning) {
	amount = domain.RoundCents(amount)
	if !amount.IsPositive() {
		return nil, nil
	}
	if numDays <= 0 {
		return nil, &domain.AllocationUnresolvedWarning{
			Category: category,
			Amount:   amount,
			Reason:   "empty allocation window",
		}
	}

	profile, ok := a.registry.Profile(category)
	bias := profile.WeekdayBias
	if !ok || !profile.HasBias() {
		bias = uniformBias
	}

	dates := Window(start, numDays)
	scores := make([]float64, numDays)
	candidates := make([]int, 0, numDays)
	for i, date := range dates {
		scores[i] = bias[domain.WeekdayIndex(date)]
		if scores[i] > 0 {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(x, y int) bool {
		return scores[candidates[x]] > scores[candidates[y]]
	})

	var selected []int
	var taken []time.Time
	for _, i := range candidates {
		if profile.MaxEventSlots > 0 && len(selected) >= profile.MaxEventSlots {
			break
		}
		if a.blocked(category, dates[i], taken, profile.CooldownDays) {
			continue
		}
		selected = append(selected, i)
		taken = append(taken, dates[i])
	}

	if len(selected) == 0 {
		i := a.fallbackDay(category, dates, scores)
		a.Remember(category, dates[i])
		return []DayAmount{{Index: i, Amount: amount}}, &domain.AllocationUnresolvedWarning{
			Category: category,
			Amount:   amount,
			Fallback: dates[i],
			Placed:   true,
			Reason:   "no day satisfies bias and cooldown",
		}
	}

	sort.Ints(selected)
	shares := domain.SplitEven(amount, len(selected))
	placed := place(selected, shares)
	for _, p := range placed {
		a.Remember(category, dates[p.Index])
	}
	return placed, nil
}

func (a *Allocator) blocked(category string, date time.Time, taken []time.Time, cooldown int) bool {
	for _, prev := range a.memory[category] {
		if dayDistance(date, prev) <= cooldown {
			return true
		}
	}
	for _, prev := range taken {
		if dayDistance(date, prev) <= cooldown {
			return true
		}
	}
	return false
}

// fallbackDay picks the day farthest from any remembered selection, then the
// highest score, then the lowest index.
func (a *Allocator) fallbackDay(category string, dates []time.Time, scores []float64) int {
	best, bestDist := 0, -1
	for i, date := range dates {
		dist := math.MaxInt
		for _, prev := range a.memory[category] {
			if dd := dayDistance(date, prev); dd < dist {
				dist = dd
			}
		}
		if dist > bestDist || (dist == bestDist && scores[i] > scores[best]) {
			best, bestDist = i, dist
		}
	}
	return best
}

func dayDistance(a, b time.Time) int {
	d := int(domain.Date(a).Sub(domain.Date(b)).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
