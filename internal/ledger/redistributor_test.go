package ledger_test

import (
	"fmt"
	"testing"

	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/ledger"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func budget(total, limit string) domain.DayBudget {
	return domain.DayBudget{Total: d(total), Limit: d(limit)}
}

func snapshotTotal(days map[string]domain.DayBudget) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range days {
		sum = sum.Add(b.Total)
	}
	return sum
}

func TestRedistribute_ScenarioB(t *testing.T) {
	in := map[string]domain.DayBudget{
		"1": budget("150", "100"),
		"2": budget("70", "100"),
	}

	res := ledger.NewRedistributor().Redistribute(in)

	if !res.Days["1"].Total.Equal(d("100")) {
		t.Errorf("expected day 1 total 100, got %s", res.Days["1"].Total)
	}
	if !res.Days["2"].Total.Equal(d("120")) {
		t.Errorf("expected day 2 total 120, got %s", res.Days["2"].Total)
	}
	if len(res.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d: %v", len(res.Transfers), res.Transfers)
	}
	tr := res.Transfers[0]
	if tr.SourceDay != "1" || tr.DestinationDay != "2" || !tr.Amount.Equal(d("50")) {
		t.Errorf("expected 50 from 1 to 2, got %s from %s to %s", tr.Amount, tr.SourceDay, tr.DestinationDay)
	}
	if !res.Unresolved.IsZero() {
		t.Errorf("expected nothing unresolved, got %s", res.Unresolved)
	}
}

func TestRedistribute_WithoutSpillLeavesOverageUnresolved(t *testing.T) {
	in := map[string]domain.DayBudget{
		"1": budget("150", "100"),
		"2": budget("70", "100"),
	}

	res := ledger.NewRedistributor(ledger.WithResidualSpill(false)).Redistribute(in)

	if !res.Days["1"].Total.Equal(d("120")) || !res.Days["2"].Total.Equal(d("100")) {
		t.Errorf("expected 120/100, got %s/%s", res.Days["1"].Total, res.Days["2"].Total)
	}
	if !res.Unresolved.Equal(d("20")) {
		t.Errorf("expected 20 unresolved, got %s", res.Unresolved)
	}
	if !res.Moved().Equal(d("30")) {
		t.Errorf("expected 30 moved, got %s", res.Moved())
	}
}

func TestRedistribute_OrderAndTieBreak(t *testing.T) {
	in := map[string]domain.DayBudget{
		"10": budget("80", "100"),
		"2":  budget("80", "100"),
		"3":  budget("130", "100"),
		"4":  budget("110", "100"),
	}

	res := ledger.NewRedistributor(ledger.WithResidualSpill(false)).Redistribute(in)

	want := []struct {
		src, dst string
		amount   string
	}{
		{"3", "2", "20"},
		{"3", "10", "10"},
		{"4", "10", "10"},
	}
	if len(res.Transfers) != len(want) {
		t.Fatalf("expected %d transfers, got %v", len(want), res.Transfers)
	}
	for i, w := range want {
		got := res.Transfers[i]
		if got.SourceDay != w.src || got.DestinationDay != w.dst || !got.Amount.Equal(d(w.amount)) {
			t.Errorf("transfer %d: expected %s %s->%s, got %s %s->%s",
				i, w.amount, w.src, w.dst, got.Amount, got.SourceDay, got.DestinationDay)
		}
	}
}

func TestRedistribute_SameNumberKeysOrderLexically(t *testing.T) {
	in := map[string]domain.DayBudget{
		"1":  budget("50", "100"),
		"01": budget("50", "100"),
		"a":  budget("150", "100"),
		"b":  budget("150", "100"),
	}

	for run := 0; run < 50; run++ {
		res := ledger.NewRedistributor().Redistribute(in)
		if len(res.Transfers) != 2 {
			t.Fatalf("run %d: expected 2 transfers, got %v", run, res.Transfers)
		}
		first, second := res.Transfers[0], res.Transfers[1]
		if first.SourceDay != "a" || first.DestinationDay != "01" || second.SourceDay != "b" || second.DestinationDay != "1" {
			t.Fatalf("run %d: unexpected transfer order %v", run, res.Transfers)
		}
	}
}

func TestRedistribute_ConservesTotalAndTransferArithmetic(t *testing.T) {
	in := make(map[string]domain.DayBudget)
	for i := 1; i <= 31; i++ {
		total := decimal.NewFromInt(int64((i*37)%91 + 10)).Add(d("0.33"))
		limit := decimal.NewFromInt(int64((i*53)%83 + 15)).Add(d("0.07"))
		in[fmt.Sprint(i)] = domain.DayBudget{Total: total, Limit: limit}
	}
	before := snapshotTotal(in)
	original := make(map[string]domain.DayBudget, len(in))
	for k, v := range in {
		original[k] = v
	}

	for _, spill := range []bool{true, false} {
		res := ledger.NewRedistributor(ledger.WithResidualSpill(spill)).Redistribute(in)

		if after := snapshotTotal(res.Days); !after.Equal(before) {
			t.Errorf("spill=%v: total changed from %s to %s", spill, before, after)
		}

		net := make(map[string]decimal.Decimal)
		for _, tr := range res.Transfers {
			if !tr.Amount.IsPositive() {
				t.Errorf("spill=%v: non-positive transfer %v", spill, tr)
			}
			net[tr.SourceDay] = net[tr.SourceDay].Sub(tr.Amount)
			net[tr.DestinationDay] = net[tr.DestinationDay].Add(tr.Amount)
		}
		for k, b := range in {
			if want := b.Total.Add(net[k]); !res.Days[k].Total.Equal(want) {
				t.Errorf("spill=%v day %s: expected %s, got %s", spill, k, want, res.Days[k].Total)
			}
		}
	}

	for k, v := range original {
		if !in[k].Total.Equal(v.Total) || !in[k].Limit.Equal(v.Limit) {
			t.Fatalf("input day %s was mutated", k)
		}
	}
}

func TestRedistribute_NothingToMove(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]domain.DayBudget
	}{
		{"empty", map[string]domain.DayBudget{}},
		{"balanced", map[string]domain.DayBudget{"1": budget("100", "100")}},
		{"only under", map[string]domain.DayBudget{"1": budget("50", "100")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ledger.NewRedistributor().Redistribute(tt.in)
			if len(res.Transfers) != 0 {
				t.Errorf("expected no transfers, got %v", res.Transfers)
			}
		})
	}

	res := ledger.NewRedistributor().Redistribute(map[string]domain.DayBudget{"1": budget("150", "100")})
	if !res.Unresolved.Equal(d("50")) {
		t.Errorf("expected 50 unresolved with no under days, got %s", res.Unresolved)
	}
}
