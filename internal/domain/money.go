package domain

import (
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places of the smallest currency unit.
const CurrencyPlaces = 2

func init() {
	// Redistribution and plan splits need at least 28 significant digits.
	if decimal.DivisionPrecision < 28 {
		decimal.DivisionPrecision = 28
	}
}

var (
	// OverspendTolerance is the factor above the plan that still counts as orange.
	OverspendTolerance = decimal.RequireFromString("1.2")

	cent = decimal.New(1, -CurrencyPlaces)
)

// RoundCents rounds an amount to the smallest currency unit, half-up.
// Amounts handled by the core are non-negative, so half away from zero is half-up.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Cent returns the smallest currency unit.
func Cent() decimal.Decimal {
	return cent
}

// Cents returns the amount expressed as an integer number of cents.
func Cents(d decimal.Decimal) int64 {
	return RoundCents(d).Shift(CurrencyPlaces).IntPart()
}

// SumAmounts adds all values of an amount map.
func SumAmounts(m map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

// SplitEven divides total into n shares rounded half-up to cents. Any rounding
// leftover lands on the last share so the shares add up to total exactly.
// When the amount has fewer cents than n, only the first cents shares are
// returned, so no share is ever zero or negative.
func SplitEven(total decimal.Decimal, n int) []decimal.Decimal {
	total = RoundCents(total)
	if n <= 0 || !total.IsPositive() {
		return nil
	}
	if c := Cents(total); c < int64(n) {
		n = int(c)
	}

	count := decimal.NewFromInt(int64(n))
	share := total.DivRound(count, CurrencyPlaces)
	head := share.Mul(decimal.NewFromInt(int64(n - 1)))
	if head.GreaterThanOrEqual(total) {
		// Rounding up would leave nothing for the last share.
		share = total.Div(count).Truncate(CurrencyPlaces)
		head = share.Mul(decimal.NewFromInt(int64(n - 1)))
	}

	shares := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		shares[i] = share
	}
	shares[n-1] = total.Sub(head)
	return shares
}
