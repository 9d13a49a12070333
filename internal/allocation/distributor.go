package allocation

import (
	"sort"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// DefaultFirstDayCategories are fixed expenses due on the first day of the month.
var DefaultFirstDayCategories = []string{"rent", "mortgage", "school_fees", "tuition"}

// fixedDueDay is the day index other fixed expenses land on, when the month is long enough.
const fixedDueDay = 4

// Distributor spreads a category over days purely from its behavior class.
// It keeps no state and is safe for concurrent use.
type Distributor struct {
	firstDay map[string]bool
}

// NewDistributor creates a distributor. firstDay lists the fixed categories
// placed on day 0; nil means DefaultFirstDayCategories.
func NewDistributor(firstDay []string) *Distributor {
	if firstDay == nil {
		firstDay = DefaultFirstDayCategories
	}
	d := &Distributor{firstDay: make(map[string]bool, len(firstDay))}
	for _, c := range firstDay {
		d.firstDay[c] = true
	}
	return d
}

// Distribute places amount over days according to class.
func (d *Distributor) Distribute(category string, class domain.BehaviorClass, amount decimal.Decimal, days []time.Time) []DayAmount {
	amount = domain.RoundCents(amount)
	if len(days) == 0 || !amount.IsPositive() {
		return nil
	}

	var indices []int
	switch class {
	case domain.ClassFixed:
		indices = []int{d.fixedDay(category, len(days))}
	case domain.ClassClustered:
		indices = clusteredDays(category, days)
	default:
		indices = spreadDays(days)
	}
	return place(indices, domain.SplitEven(amount, len(indices)))
}

func (d *Distributor) fixedDay(category string, numDays int) int {
	if d.firstDay[category] {
		return 0
	}
	return min(fixedDueDay, numDays-1)
}

// spreadDays keeps every other weekday, starting at the first one, or every
// day when the window has no weekday.
func spreadDays(days []time.Time) []int {
	var weekdays []int
	for i, day := range days {
		if domain.DayTypeOf(day) == domain.Weekday {
			weekdays = append(weekdays, i)
		}
	}

	var out []int
	for i := 0; i < len(weekdays); i += 2 {
		out = append(out, weekdays[i])
	}
	if len(out) == 0 {
		out = make([]int, len(days))
		for i := range days {
			out[i] = i
		}
	}
	return out
}

// clusteredDays picks up to MaxClusteredDays days, weekend first. Days are
// ranked by a stable hash of category and date so the choice is reproducible.
func clusteredDays(category string, days []time.Time) []int {
	var weekend, rest []int
	for i, day := range days {
		if domain.DayTypeOf(day) == domain.Weekend {
			weekend = append(weekend, i)
		} else {
			rest = append(rest, i)
		}
	}

	rank := func(idx []int) {
		sort.SliceStable(idx, func(a, b int) bool {
			return dayHash(category, days[idx[a]]) < dayHash(category, days[idx[b]])
		})
	}
	rank(weekend)
	rank(rest)

	picked := weekend
	if len(picked) > domain.MaxClusteredDays {
		picked = picked[:domain.MaxClusteredDays]
	}
	for _, i := range rest {
		if len(picked) >= domain.MaxClusteredDays {
			break
		}
		picked = append(picked, i)
	}
	sort.Ints(picked)
	return picked
}

func dayHash(category string, day time.Time) uint64 {
	return xxhash.Sum64String(category + "|" + day.Format(domain.DateLayout))
}
