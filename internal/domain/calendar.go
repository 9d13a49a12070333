package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// DayType classifies a date as a weekday or a weekend day.
type DayType string

const (
	Weekday DayType = "weekday"
	Weekend DayType = "weekend"
)

// DayTypeOf derives the day type of a date.
func DayTypeOf(t time.Time) DayType {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return Weekend
	default:
		return Weekday
	}
}

// WeekdayIndex returns the weekday of t with Monday as 0 and Sunday as 6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Status is the spending health of a day.
type Status string

const (
	StatusGreen   Status = "green"
	StatusOrange  Status = "orange"
	StatusRed     Status = "red"
	StatusNeutral Status = "neutral"
)

// Overspent reports whether the status signals spending above the plan.
func (s Status) Overspent() bool {
	return s == StatusOrange || s == StatusRed
}

// StatusFor computes the status of a day from its planned and actual totals.
func StatusFor(planned, actual decimal.Decimal) Status {
	switch {
	case planned.IsZero():
		return StatusNeutral
	case actual.LessThanOrEqual(planned):
		return StatusGreen
	case actual.LessThanOrEqual(planned.Mul(OverspendTolerance)):
		return StatusOrange
	default:
		return StatusRed
	}
}

// Date normalizes t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days of a month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CalendarDay is one day of a monthly budget calendar.
type CalendarDay struct {
	Date            time.Time
	DayType         DayType
	PlannedBudget   map[string]decimal.Decimal
	ActualSpending  map[string]decimal.Decimal
	Total           decimal.Decimal
	Status          Status
	Recommendations []string
}

// NewCalendarDay returns an empty day for the given date.
func NewCalendarDay(date time.Time) CalendarDay {
	date = Date(date)
	return CalendarDay{
		Date:            date,
		DayType:         DayTypeOf(date),
		PlannedBudget:   map[string]decimal.Decimal{},
		ActualSpending:  map[string]decimal.Decimal{},
		Total:           decimal.Zero,
		Status:          StatusNeutral,
		Recommendations: []string{},
	}
}

// Key returns the date formatted as YYYY-MM-DD.
func (d *CalendarDay) Key() string {
	return d.Date.Format(DateLayout)
}

// PlannedTotal sums the planned budget of the day.
func (d *CalendarDay) PlannedTotal() decimal.Decimal {
	return SumAmounts(d.PlannedBudget)
}

// ActualTotal sums the actual spending of the day.
func (d *CalendarDay) ActualTotal() decimal.Decimal {
	return SumAmounts(d.ActualSpending)
}

// RecomputeStatus refreshes Status from the planned and actual amounts and
// returns the previous status.
func (d *CalendarDay) RecomputeStatus() Status {
	prev := d.Status
	d.Status = StatusFor(d.PlannedTotal(), d.ActualTotal())
	return prev
}

// Clone returns a deep copy of the day.
func (d CalendarDay) Clone() CalendarDay {
	out := d
	out.PlannedBudget = cloneAmounts(d.PlannedBudget)
	out.ActualSpending = cloneAmounts(d.ActualSpending)
	out.Recommendations = append([]string{}, d.Recommendations...)
	return out
}

type calendarDayJSON struct {
	Date            string                     `json:"date"`
	DayType         DayType                    `json:"day_type"`
	PlannedBudget   map[string]decimal.Decimal `json:"planned_budget"`
	ActualSpending  map[string]decimal.Decimal `json:"actual_spending"`
	Total           decimal.Decimal            `json:"total"`
	Status          Status                     `json:"status"`
	Recommendations []string                   `json:"recommendations"`
}

// MarshalJSON renders the day with a plain YYYY-MM-DD date.
func (d CalendarDay) MarshalJSON() ([]byte, error) {
	recs := d.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return json.Marshal(calendarDayJSON{
		Date:            d.Date.Format(DateLayout),
		DayType:         d.DayType,
		PlannedBudget:   nonNilAmounts(d.PlannedBudget),
		ActualSpending:  nonNilAmounts(d.ActualSpending),
		Total:           d.Total,
		Status:          d.Status,
		Recommendations: recs,
	})
}

// UnmarshalJSON parses the representation produced by MarshalJSON.
func (d *CalendarDay) UnmarshalJSON(data []byte) error {
	var raw calendarDayJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("calendar day date: %w", err)
	}
	*d = CalendarDay{
		Date:            date,
		DayType:         DayTypeOf(date),
		PlannedBudget:   nonNilAmounts(raw.PlannedBudget),
		ActualSpending:  nonNilAmounts(raw.ActualSpending),
		Total:           raw.Total,
		Status:          raw.Status,
		Recommendations: raw.Recommendations,
	}
	return nil
}

// MonthlyCalendar holds one CalendarDay per day of a month, in date order.
type MonthlyCalendar []CalendarDay

// NewMonthlyCalendar builds the empty skeleton of a month.
func NewMonthlyCalendar(year int, month time.Month) MonthlyCalendar {
	n := DaysIn(year, month)
	cal := make(MonthlyCalendar, n)
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for i := range cal {
		cal[i] = NewCalendarDay(first.AddDate(0, 0, i))
	}
	return cal
}

// Year returns the calendar's year, or 0 when empty.
func (c MonthlyCalendar) Year() int {
	if len(c) == 0 {
		return 0
	}
	return c[0].Date.Year()
}

// Month returns the calendar's month, or 0 when empty.
func (c MonthlyCalendar) Month() time.Month {
	if len(c) == 0 {
		return 0
	}
	return c[0].Date.Month()
}

// DayIndex returns the index of date in the calendar, or -1.
func (c MonthlyCalendar) DayIndex(date time.Time) int {
	if len(c) == 0 {
		return -1
	}
	date = Date(date)
	if date.Year() != c.Year() || date.Month() != c.Month() {
		return -1
	}
	i := date.Day() - 1
	if i >= len(c) {
		return -1
	}
	return i
}

// GrandTotal sums Total over all days.
func (c MonthlyCalendar) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range c {
		total = total.Add(c[i].Total)
	}
	return total
}

// Clone returns a deep copy of the calendar.
func (c MonthlyCalendar) Clone() MonthlyCalendar {
	if c == nil {
		return nil
	}
	out := make(MonthlyCalendar, len(c))
	for i := range c {
		out[i] = c[i].Clone()
	}
	return out
}

// Validate checks the structural invariants: one entry per day of the month,
// in order, no duplicates.
func (c MonthlyCalendar) Validate() error {
	if len(c) == 0 {
		return &ErrValidation{Field: "calendar", Message: "empty calendar"}
	}
	want := DaysIn(c.Year(), c.Month())
	if len(c) != want {
		return &ErrValidation{Field: "calendar", Message: fmt.Sprintf("expected %d days, got %d", want, len(c))}
	}
	for i := range c {
		if c[i].Date.Day() != i+1 || c[i].Date.Month() != c.Month() || c[i].Date.Year() != c.Year() {
			return &ErrValidation{Field: "calendar", Message: fmt.Sprintf("day %d out of order: %s", i+1, c[i].Key())}
		}
	}
	return nil
}

func cloneAmounts(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func nonNilAmounts(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return map[string]decimal.Decimal{}
	}
	return m
}
