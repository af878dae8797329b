package period

import (
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// DefaultHorizonMonths is the planning horizon used for MonthlyNeeded.
const DefaultHorizonMonths = 12

// fallbackMonthsToComplete is used for projections when nothing has been contributed yet.
const fallbackMonthsToComplete = 12

var hundred = decimal.NewFromInt(100)

// AggregateGoalProgress summarises goal contributions over a 12 month horizon.
func AggregateGoalProgress(months []core.DerivedMonth, goalTarget core.Amount) core.GoalProgress {
	return AggregateGoalProgressOver(months, goalTarget, DefaultHorizonMonths)
}

// AggregateGoalProgressOver is AggregateGoalProgress with an explicit horizon.
//
// MonthlyNeeded divides what is left by the horizon minus the number of months
// that already received a positive contribution. That count says nothing about
// which months are still ahead, so with contributions only in early months the
// figure spreads the remainder over months that may already be in the past.
func AggregateGoalProgressOver(months []core.DerivedMonth, goalTarget core.Amount, horizonMonths int) core.GoalProgress {
	p := core.GoalProgress{Target: goalTarget}
	for _, m := range months {
		p.TotalContributed += m.GoalContribution
		if m.GoalContribution > 0 {
			p.MonthsContributed++
		}
		p.AvailableSurplus += core.Max(0, m.Surplus)
	}
	p.Remaining = core.Max(0, goalTarget-p.TotalContributed)
	p.PercentComplete = percentOf(p.TotalContributed, goalTarget)

	if left := horizonMonths - p.MonthsContributed; left > 0 {
		p.MonthlyNeeded = decimal.NewFromInt(int64(p.Remaining)).
			Div(decimal.NewFromInt(int64(left))).
			InexactFloat64()
	}
	return p
}

// ProjectCompletion estimates when the target is reached at the average pace
// of the months that contributed so far. With no contributions the estimate
// falls back to twelve months out. The date is the first of the month in
// now's location.
func ProjectCompletion(p core.GoalProgress, now time.Time) core.Projection {
	months := int64(max(1, p.MonthsContributed))
	total := int64(p.TotalContributed)

	n := fallbackMonthsToComplete
	if total > 0 {
		// ceil(remaining / (total / months)) without a rounded intermediate
		n = int((int64(p.Remaining)*months + total - 1) / total)
	}
	return core.Projection{
		AverageContribution: decimal.NewFromInt(total).Div(decimal.NewFromInt(months)).InexactFloat64(),
		MonthsToComplete:    n,
		CompletionDate:      time.Date(now.Year(), now.Month()+time.Month(n), 1, 0, 0, 0, 0, now.Location()),
	}
}

// SplitAcrossGoals divides total evenly across goals and reports each goal's
// percentage, capped at 100.
func SplitAcrossGoals(total core.Amount, goals []core.Goal) []core.GoalShare {
	out := make([]core.GoalShare, 0, len(goals))
	if len(goals) == 0 {
		return out
	}
	share := decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(goals))))
	for _, g := range goals {
		gs := core.GoalShare{Goal: g, Allocated: core.Amount(share.IntPart())}
		if g.Target <= 0 {
			gs.Percent = 100
		} else {
			gs.Percent = clampPercent(share.Mul(hundred).Div(decimal.NewFromInt(int64(g.Target))))
		}
		out = append(out, gs)
	}
	return out
}

// percentOf returns part/whole as a percentage in [0, 100]. A non-positive
// whole counts as already reached.
func percentOf(part, whole core.Amount) float64 {
	if whole <= 0 {
		return 100
	}
	return clampPercent(decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole))))
}

func clampPercent(d decimal.Decimal) float64 {
	switch {
	case d.LessThan(decimal.Zero):
		return 0
	case d.GreaterThan(hundred):
		return 100
	}
	return d.InexactFloat64()
}
