package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// civilDate is a calendar date independent of time zone pointer identity.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AggregateDays tags every wet reading with its calendar date and the total
// Amount30 of all wet readings sharing that date. Output keeps input order,
// which for ascending input is also first-seen order of dates.
func AggregateDays(readings []Reading) []DayAggregatedReading {
	totals := make(map[civilDate]decimal.Decimal)
	for _, r := range readings {
		if !r.Wet() {
			continue
		}
		key := dateOf(r.Time)
		totals[key] = totals[key].Add(r.Amount30)
	}

	out := make([]DayAggregatedReading, 0, len(readings))
	for _, r := range readings {
		if !r.Wet() {
			continue
		}
		out = append(out, DayAggregatedReading{
			Date:     StartOfDay(r.Time),
			DayTotal: totals[dateOf(r.Time)],
			Reading:  r,
		})
	}
	return out
}

// Process validates ordering once and computes both outputs over the same
// input. It is deterministic and has no side effects.
func Process(readings []Reading, rules Rules) (Result, error) {
	if err := ValidateOrder(readings); err != nil {
		return Result{}, err
	}
	return Result{
		Events: partition(readings, rules),
		Days:   AggregateDays(readings),
	}, nil
}
