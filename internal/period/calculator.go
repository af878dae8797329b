// Package period derives running balances for month sequences and aggregates
// goal progress across them.
//
// Every function here is pure. Inputs are never modified and results are
// recomputed from scratch on each call, so callers may use them from any
// goroutine without coordination.
package period

import "budget/internal/core"

// DeriveMonth computes the derived figures of a single month.
// The record's own CarryoverFromPrevious is used as is.
func DeriveMonth(rec core.MonthRecord) core.DerivedMonth {
	total := rec.Salary + rec.AdditionalIncome + rec.CarryoverFromPrevious
	surplus := total -
		rec.FixedExpenses -
		rec.ActualLongTermSavings -
		rec.ActualShortTermSavings -
		rec.GoalContribution -
		rec.AdditionalExpense

	return core.DerivedMonth{
		MonthRecord:          rec,
		TotalAvailable:       total,
		RemainingAfterFixed:  total - rec.FixedExpenses,
		LongTermSavingsDiff:  rec.ActualLongTermSavings - rec.PlannedLongTermSavings,
		ShortTermSavingsDiff: rec.ActualShortTermSavings - rec.PlannedShortTermSavings,
		Surplus:              surplus,
		CarryoverToNext:      core.Max(0, surplus),
	}
}

// DeriveSequence folds over recs in order. The first month keeps its stored
// carryover; every later month takes the previous derived CarryoverToNext and
// its stored value is ignored. An empty input yields an empty, non-nil slice.
func DeriveSequence(recs []core.MonthRecord) []core.DerivedMonth {
	out := make([]core.DerivedMonth, 0, len(recs))
	for i, rec := range recs {
		if i > 0 {
			rec.CarryoverFromPrevious = out[i-1].CarryoverToNext
		}
		out = append(out, DeriveMonth(rec))
	}
	return out
}

// ChainPeriods derives both periods, seeding the head of p2 with the closing
// carryover of p1 (zero when p1 is empty). Neither input slice is modified.
func ChainPeriods(p1, p2 []core.MonthRecord) (d1, d2 []core.DerivedMonth) {
	d1 = DeriveSequence(p1)
	return d1, DeriveSequence(SeedCarryover(p2, ClosingCarryover(d1)))
}

// ClosingCarryover returns the CarryoverToNext of the last month, or zero.
func ClosingCarryover(months []core.DerivedMonth) core.Amount {
	if len(months) == 0 {
		return 0
	}
	return months[len(months)-1].CarryoverToNext
}

// SeedCarryover returns a copy of recs whose first month starts with carry.
func SeedCarryover(recs []core.MonthRecord, carry core.Amount) []core.MonthRecord {
	if len(recs) == 0 {
		return recs
	}
	out := append(make([]core.MonthRecord, 0, len(recs)), recs...)
	out[0].CarryoverFromPrevious = carry
	return out
}
