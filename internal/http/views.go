package http

import (
	"budget/internal/core"
	"budget/internal/services"
)

var fieldLabels = map[core.EditableField]string{
	core.FieldActualLongTermSavings:  "Long-term savings",
	core.FieldActualShortTermSavings: "Short-term savings",
	core.FieldAdditionalIncome:       "Additional income",
	core.FieldAdditionalExpense:      "Additional expense",
	core.FieldGoalContribution:       "Goal contribution",
}

type fieldInput struct {
	Field core.EditableField
	Label string
	Value core.Amount
}

type monthView struct {
	core.MonthTargetProgress
	Period core.Period
	Symbol string
	Inputs []fieldInput
}

type chartBar struct {
	core.ChartPoint
	LongPct  float64
	ShortPct float64
	GoalPct  float64
}

type periodView struct {
	Period  core.Period
	Name    string
	Symbol  string
	Summary core.PeriodSummary
	Months  []monthView
	Chart   []chartBar
}

type dashboardPage struct {
	Email   string
	Symbol  string
	Warning string
	Source  services.Source

	Periods []periodView
	Goals   goalsView

	Current    monthView
	HasCurrent bool
}

type goalsView struct {
	Symbol     string
	Name       string
	Progress   core.GoalProgress
	Projection core.Projection
	Shares     []core.GoalShare
}

type settingsPage struct {
	Email      string
	Settings   core.Settings
	Currencies []core.Currency
	Lengths    []int
	Months     []string
	Error      string
}

func newGoalsView(d services.Dashboard) goalsView {
	return goalsView{
		Symbol:     d.Settings.CurrencySymbol,
		Name:       d.Settings.GoalName,
		Progress:   d.Goal,
		Projection: d.Projection,
		Shares:     d.GoalShares,
	}
}

func newDashboardPage(email string, d services.Dashboard) dashboardPage {
	page := dashboardPage{
		Email:   email,
		Symbol:  d.Settings.CurrencySymbol,
		Warning: d.Warning,
		Source:  d.Source,
		Periods: []periodView{
			newPeriodView(core.Period1, d.Settings, d.Summary1, d.Progress1, d.Chart1),
			newPeriodView(core.Period2, d.Settings, d.Summary2, d.Progress2, d.Chart2),
		},
		Goals:      newGoalsView(d),
		HasCurrent: d.HasCurrent,
	}
	if d.HasCurrent {
		for _, pv := range page.Periods {
			for _, m := range pv.Months {
				if m.Month.ID == d.Current.Month.ID {
					page.Current = m
				}
			}
		}
	}
	return page
}

func newPeriodView(p core.Period, s core.Settings, sum core.PeriodSummary, progress []core.MonthTargetProgress, chart []core.ChartPoint) periodView {
	pv := periodView{Period: p, Name: s.PeriodName(p), Symbol: s.CurrencySymbol, Summary: sum}
	for _, mp := range progress {
		pv.Months = append(pv.Months, newMonthView(p, s.CurrencySymbol, mp))
	}
	pv.Chart = chartBars(chart)
	return pv
}

func newMonthView(p core.Period, symbol string, mp core.MonthTargetProgress) monthView {
	m := mp.Month
	values := map[core.EditableField]core.Amount{
		core.FieldActualLongTermSavings:  m.ActualLongTermSavings,
		core.FieldActualShortTermSavings: m.ActualShortTermSavings,
		core.FieldAdditionalIncome:       m.AdditionalIncome,
		core.FieldAdditionalExpense:      m.AdditionalExpense,
		core.FieldGoalContribution:       m.GoalContribution,
	}
	inputs := make([]fieldInput, 0, len(core.EditableFields))
	for _, f := range core.EditableFields {
		inputs = append(inputs, fieldInput{Field: f, Label: fieldLabels[f], Value: values[f]})
	}
	return monthView{MonthTargetProgress: mp, Period: p, Symbol: symbol, Inputs: inputs}
}

// chartBars scales every series against the largest value in the period.
func chartBars(points []core.ChartPoint) []chartBar {
	var peak core.Amount
	for _, p := range points {
		peak = core.Max(peak, core.Max(p.LongTermSavings, core.Max(p.ShortTermSavings, p.GoalContribution)))
	}
	scale := func(a core.Amount) float64 {
		if peak <= 0 || a <= 0 {
			return 0
		}
		return float64(a) * 100 / float64(peak)
	}
	out := make([]chartBar, 0, len(points))
	for _, p := range points {
		out = append(out, chartBar{
			ChartPoint: p,
			LongPct:    scale(p.LongTermSavings),
			ShortPct:   scale(p.ShortTermSavings),
			GoalPct:    scale(p.GoalContribution),
		})
	}
	return out
}

func newSettingsPage(email string, s core.Settings) settingsPage {
	return settingsPage{
		Email:      email,
		Settings:   s,
		Currencies: core.CurrencyOptions,
		Lengths:    core.MonthsPerPeriodOptions,
		Months:     core.MonthNames[:],
	}
}
