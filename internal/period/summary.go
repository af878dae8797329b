package period

import (
	"time"

	"budget/internal/core"
)

// SummarizePeriod totals a derived period against the planned amounts of its months.
func SummarizePeriod(name string, months []core.DerivedMonth) core.PeriodSummary {
	s := core.PeriodSummary{Name: name, Months: len(months)}
	for _, m := range months {
		s.TotalSalary += m.Salary
		s.TotalAdditionalIncome += m.AdditionalIncome
		s.LongTermSavingsActual += m.ActualLongTermSavings
		s.LongTermSavingsTarget += m.PlannedLongTermSavings
		s.ShortTermSavingsActual += m.ActualShortTermSavings
		s.ShortTermSavingsTarget += m.PlannedShortTermSavings
		s.TotalGoalContribution += m.GoalContribution
		s.TotalSurplus += m.Surplus
	}
	s.TotalIncome = s.TotalSalary + s.TotalAdditionalIncome
	s.ClosingCarryover = ClosingCarryover(months)
	return s
}

// TargetProgress reports how much of the month's planned savings were reached.
func TargetProgress(m core.DerivedMonth, current bool) core.MonthTargetProgress {
	lt := percentOf(m.ActualLongTermSavings, m.PlannedLongTermSavings)
	st := percentOf(m.ActualShortTermSavings, m.PlannedShortTermSavings)
	return core.MonthTargetProgress{
		Month:            m,
		LongTermPercent:  lt,
		ShortTermPercent: st,
		LongTermStatus:   StatusFor(lt),
		ShortTermStatus:  StatusFor(st),
		IsCurrentMonth:   current,
	}
}

func StatusFor(percent float64) core.TargetStatus {
	switch {
	case percent >= 100:
		return core.StatusMet
	case percent >= 75:
		return core.StatusGood
	case percent >= 50:
		return core.StatusFair
	default:
		return core.StatusBehind
	}
}

// CurrentMonth is the month matched to today's date.
type CurrentMonth struct {
	Month  core.DerivedMonth
	Period core.Period
	// Exact is true only when year and month both match. It is false for the
	// same-month fallback from another year and for the first-month fallback.
	Exact bool
}

// LocateCurrentMonth finds the derived month matching now's calendar month.
// An exact year match wins; otherwise the first month with the same month
// index is used. When nothing matches the first month of period 1 is returned.
// Exact is set only for the year match. ok is false only when both periods are empty.
func LocateCurrentMonth(d1, d2 []core.DerivedMonth, now time.Time) (CurrentMonth, bool) {
	idx := int(now.Month()) - 1
	want := core.MonthID(now.Year(), idx)

	var sameIndex *CurrentMonth
	for _, list := range []struct {
		months []core.DerivedMonth
		period core.Period
	}{{d1, core.Period1}, {d2, core.Period2}} {
		for _, m := range list.months {
			if m.ID == want {
				return CurrentMonth{Month: m, Period: list.period, Exact: true}, true
			}
			if sameIndex != nil {
				continue
			}
			if _, mi, err := core.ParseMonthID(m.ID); err == nil && mi == idx {
				sameIndex = &CurrentMonth{Month: m, Period: list.period}
			}
		}
	}
	switch {
	case sameIndex != nil:
		return *sameIndex, true
	case len(d1) > 0:
		return CurrentMonth{Month: d1[0], Period: core.Period1}, true
	case len(d2) > 0:
		return CurrentMonth{Month: d2[0], Period: core.Period2}, true
	}
	return CurrentMonth{}, false
}

// ChartSeries returns one chart point per month, labelled with the short month name.
func ChartSeries(months []core.DerivedMonth) []core.ChartPoint {
	out := make([]core.ChartPoint, 0, len(months))
	for _, m := range months {
		label := m.MonthName
		if len(label) > 3 {
			label = label[:3]
		}
		out = append(out, core.ChartPoint{
			Label:            label,
			LongTermSavings:  m.ActualLongTermSavings,
			ShortTermSavings: m.ActualShortTermSavings,
			GoalContribution: m.GoalContribution,
			Surplus:          m.Surplus,
		})
	}
	return out
}
