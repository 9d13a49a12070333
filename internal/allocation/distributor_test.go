package allocation_test

import (
	"testing"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/allocation"
	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sum(placed []allocation.DayAmount) decimal.Decimal {
	total := decimal.Zero
	for _, p := range placed {
		total = total.Add(p.Amount)
	}
	return total
}

// March 2025 starts on a Saturday.
var march2025 = allocation.Window(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), 31)

func TestDistribute_FixedLandsOnOneDay(t *testing.T) {
	dist := allocation.NewDistributor(nil)

	rent := dist.Distribute("rent", domain.ClassFixed, d("1200"), march2025)
	if len(rent) != 1 || rent[0].Index != 0 {
		t.Fatalf("expected rent on day 0, got %+v", rent)
	}
	if !rent[0].Amount.Equal(d("1200")) {
		t.Errorf("expected 1200, got %s", rent[0].Amount)
	}

	utilities := dist.Distribute("utilities", domain.ClassFixed, d("150"), march2025)
	if len(utilities) != 1 || utilities[0].Index != 4 {
		t.Fatalf("expected utilities on day 4, got %+v", utilities)
	}

	short := dist.Distribute("utilities", domain.ClassFixed, d("150"), march2025[:3])
	if len(short) != 1 || short[0].Index != 2 {
		t.Fatalf("expected utilities on last day of a 3 day window, got %+v", short)
	}
}

func TestDistribute_SpreadEveryOtherWeekday(t *testing.T) {
	dist := allocation.NewDistributor(nil)

	placed := dist.Distribute("transport", domain.ClassSpread, d("1575"), march2025)
	if len(placed) < 2 {
		t.Fatalf("expected spread over several days, got %d", len(placed))
	}
	// First weekday of March 2025 is Monday the 3rd (index 2).
	if placed[0].Index != 2 {
		t.Errorf("expected first spread day index 2, got %d", placed[0].Index)
	}
	for _, p := range placed {
		if domain.DayTypeOf(march2025[p.Index]) != domain.Weekday {
			t.Errorf("spread landed on weekend day %d", p.Index)
		}
		if !p.Amount.IsPositive() {
			t.Errorf("non-positive chunk %s", p.Amount)
		}
	}
	if !sum(placed).Equal(d("1575")) {
		t.Errorf("expected total 1575, got %s", sum(placed))
	}
}

func TestDistribute_SpreadFallsBackToAllDays(t *testing.T) {
	dist := allocation.NewDistributor(nil)

	// Saturday and Sunday only.
	placed := dist.Distribute("food", domain.ClassSpread, d("10"), march2025[:2])
	if len(placed) != 2 {
		t.Fatalf("expected both weekend days, got %+v", placed)
	}
}

func TestDistribute_ClusteredAtMostFourDays(t *testing.T) {
	dist := allocation.NewDistributor(nil)

	placed := dist.Distribute("shopping", domain.ClassClustered, d("400"), march2025)
	if len(placed) != 4 {
		t.Fatalf("expected 4 clustered days, got %d", len(placed))
	}
	for i, p := range placed {
		if domain.DayTypeOf(march2025[p.Index]) != domain.Weekend {
			t.Errorf("clustered day %d is not a weekend", p.Index)
		}
		if i > 0 && placed[i-1].Index >= p.Index {
			t.Errorf("clustered days not in index order: %+v", placed)
		}
	}
	if !sum(placed).Equal(d("400")) {
		t.Errorf("expected total 400, got %s", sum(placed))
	}
}

func TestDistribute_ClusteredFillsFromWeekdays(t *testing.T) {
	dist := allocation.NewDistributor(nil)

	// Mon 3rd .. Sun 9th: only two weekend days.
	window := march2025[2:9]
	placed := dist.Distribute("travel", domain.ClassClustered, d("100"), window)
	if len(placed) != 4 {
		t.Fatalf("expected 4 days, got %d", len(placed))
	}
	weekend := 0
	for _, p := range placed {
		if domain.DayTypeOf(window[p.Index]) == domain.Weekend {
			weekend++
		}
	}
	if weekend != 2 {
		t.Errorf("expected both weekend days to be kept, got %d", weekend)
	}
}

func TestDistribute_ClusteredIsDeterministic(t *testing.T) {
	dist := allocation.NewDistributor(nil)

	first := dist.Distribute("shopping", domain.ClassClustered, d("333.33"), march2025)
	for run := 0; run < 5; run++ {
		again := dist.Distribute("shopping", domain.ClassClustered, d("333.33"), march2025)
		if len(again) != len(first) {
			t.Fatalf("run %d: length changed", run)
		}
		for i := range first {
			if again[i].Index != first[i].Index || !again[i].Amount.Equal(first[i].Amount) {
				t.Fatalf("run %d: selection changed: %+v vs %+v", run, again, first)
			}
		}
	}
}

func TestDistribute_ZeroAmountPlacesNothing(t *testing.T) {
	dist := allocation.NewDistributor(nil)
	if placed := dist.Distribute("food", domain.ClassSpread, decimal.Zero, march2025); placed != nil {
		t.Errorf("expected nothing placed, got %+v", placed)
	}
}
