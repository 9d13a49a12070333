package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"
)

// Injector merges recurring expenses into a built calendar. Recurring amounts
// replace the flexible allocation of the same category on the same day.
type Injector struct{}

// NewInjector creates a recurring expense injector.
func NewInjector() *Injector {
	return &Injector{}
}

// InjectionReport lists, per expense ID, the dates written into the calendar.
type InjectionReport struct {
	Occurrences map[string][]time.Time
}

// Written returns the total number of occurrences written.
func (r *InjectionReport) Written() int {
	n := 0
	for _, dates := range r.Occurrences {
		n += len(dates)
	}
	return n
}

// Inject writes every occurrence of the expenses that falls inside the
// calendar's month. All expenses are validated first; on any invalid expense
// the calendar is left untouched and the joined errors are returned.
func (in *Injector) Inject(cal domain.MonthlyCalendar, expenses []domain.RecurringExpense) (*InjectionReport, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if err := validateExpenses(expenses); err != nil {
		return nil, err
	}

	report := &InjectionReport{Occurrences: make(map[string][]time.Time)}
	touched := make(map[string]bool)
	year, month := cal.Year(), cal.Month()

	for _, e := range expenses {
		amount := domain.RoundCents(e.Amount)
		for _, date := range Occurrences(e, year, month) {
			i := cal.DayIndex(date)
			if i < 0 {
				continue
			}
			day := &cal[i]
			key := day.Key() + "|" + e.Category
			if touched[key] {
				day.PlannedBudget[e.Category] = day.PlannedBudget[e.Category].Add(amount)
			} else {
				day.PlannedBudget[e.Category] = amount
				touched[key] = true
			}
			day.Total = day.PlannedTotal()
			day.RecomputeStatus()
			report.Occurrences[e.ID] = append(report.Occurrences[e.ID], day.Date)
		}
	}
	return report, nil
}

func validateExpenses(expenses []domain.RecurringExpense) error {
	var errs []error
	for _, e := range expenses {
		switch {
		case !e.Frequency.Valid():
			errs = append(errs, &domain.ErrUnknownRecurrenceFrequency{
				ExpenseID: e.ID,
				Category:  e.Category,
				Frequency: e.Frequency,
			})
		case e.Category == "":
			errs = append(errs, &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("recurring expense %s has no category", e.ID)})
		case e.Amount.IsNegative():
			errs = append(errs, &domain.ErrValidation{Field: "amount", Message: fmt.Sprintf("recurring expense %s has a negative amount", e.ID)})
		case e.StartDate.IsZero():
			errs = append(errs, &domain.ErrValidation{Field: "start_date", Message: fmt.Sprintf("recurring expense %s has no start date", e.ID)})
		case !e.EndDate.IsZero() && e.EndDate.Before(e.StartDate):
			errs = append(errs, &domain.ErrValidation{Field: "end_date", Message: fmt.Sprintf("recurring expense %s ends before it starts", e.ID)})
		}
	}
	return errors.Join(errs...)
}

// Occurrences returns the dates of e inside year/month, in order. Monthly
// expenses fall on the start date's day of month, clamped to the last day of
// shorter months. Unknown frequencies have no occurrences.
func Occurrences(e domain.RecurringExpense, year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month, domain.DaysIn(year, month), 0, 0, 0, 0, time.UTC)
	if !e.Overlaps(first, last) {
		return nil
	}

	start := domain.Date(e.StartDate)
	until := last
	if !e.EndDate.IsZero() && domain.Date(e.EndDate).Before(until) {
		until = domain.Date(e.EndDate)
	}

	var out []time.Time
	switch e.Frequency {
	case domain.FrequencyMonthly:
		day := min(start.Day(), domain.DaysIn(year, month))
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if !date.Before(start) && !date.After(until) {
			out = append(out, date)
		}
	case domain.FrequencyWeekly:
		date := start
		if date.Before(first) {
			weeks := (int(first.Sub(start).Hours()/24) + 6) / 7
			date = start.AddDate(0, 0, weeks*7)
		}
		for ; !date.After(until); date = date.AddDate(0, 0, 7) {
			out = append(out, date)
		}
	case domain.FrequencyDaily:
		date := start
		if date.Before(first) {
			date = first
		}
		for ; !date.After(until); date = date.AddDate(0, 0, 1) {
			out = append(out, date)
		}
	}
	return out
}
