package period

import (
	"errors"
	"fmt"

	"budget/internal/core"
)

var ErrMonthNotFound = errors.New("month not found")

// GenerateMonths builds count fresh records starting at startMonth (0-11) of
// startYear. startMonth may exceed 11; the overflow rolls into later years.
func GenerateMonths(startMonth, startYear, count int, salary, fixed, longTermTarget, shortTermTarget core.Amount) []core.MonthRecord {
	out := make([]core.MonthRecord, 0, max(0, count))
	for i := 0; i < count; i++ {
		idx := (startMonth + i) % 12
		year := startYear + (startMonth+i)/12
		out = append(out, core.MonthRecord{
			ID:                      core.MonthID(year, idx),
			MonthName:               core.MonthName(idx),
			Year:                    year,
			Salary:                  salary,
			FixedExpenses:           fixed,
			PlannedLongTermSavings:  longTermTarget,
			PlannedShortTermSavings: shortTermTarget,
		})
	}
	return out
}

// GeneratePeriods builds both month lists from settings. The second period
// starts where the first one ends.
func GeneratePeriods(s core.Settings) core.BudgetData {
	return core.BudgetData{
		Period1: GenerateMonths(s.StartMonth, s.StartYear, s.MonthsPerPeriod,
			s.Period1Salary, s.FixedExpenses, s.LongTermSavingsTarget, s.ShortTermSavingsTarget),
		Period2: GenerateMonths(s.Period2StartMonth(), s.StartYear, s.MonthsPerPeriod,
			s.Period2Salary, s.FixedExpenses, s.LongTermSavingsTarget, s.ShortTermSavingsTarget),
	}
}

// ApplyEdit returns a copy of recs with edit applied to the month with id.
func ApplyEdit(recs []core.MonthRecord, id string, edit core.MonthEdit) ([]core.MonthRecord, error) {
	for i := range recs {
		if recs[i].ID != id {
			continue
		}
		updated, err := edit.Apply(recs[i])
		if err != nil {
			return nil, fmt.Errorf("edit month %s: %w", id, err)
		}
		out := append(make([]core.MonthRecord, 0, len(recs)), recs...)
		out[i] = updated
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMonthNotFound, id)
}
