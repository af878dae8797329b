package core

import "time"

// GoalProgress aggregates goal contributions across a month sequence.
type GoalProgress struct {
	Target           Amount  `json:"target"`
	TotalContributed Amount  `json:"totalContributed"`
	Remaining        Amount  `json:"remaining"`
	PercentComplete  float64 `json:"percentComplete"`
	MonthlyNeeded    float64 `json:"monthlyNeeded"`
	AvailableSurplus Amount  `json:"availableSurplus"`
	// MonthsContributed counts months with a positive contribution.
	MonthsContributed int `json:"monthsContributed"`
}

// Goal is one sub-goal the overall goal target is split across.
type Goal struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Target Amount `json:"targetAmount"`
	Icon   string `json:"icon"`
}

// GoalShare is a sub-goal with its share of the total contributed.
type GoalShare struct {
	Goal
	Allocated Amount  `json:"allocated"`
	Percent   float64 `json:"percent"`
}

var DefaultGoals = []Goal{
	{ID: "smartphone", Name: "Smartphone", Target: 100000, Icon: "📱"},
	{ID: "india-trip", Name: "Trip to India", Target: 100000, Icon: "✈️"},
	{ID: "moving", Name: "Moving Expenses", Target: 100000, Icon: "📦"},
}

// Projection estimates when the goal target is reached.
type Projection struct {
	AverageContribution float64   `json:"averageContribution"`
	MonthsToComplete    int       `json:"monthsToComplete"`
	CompletionDate      time.Time `json:"completionDate"`
}

// Label formats the completion month as "Jan 2006".
func (p Projection) Label() string {
	return p.CompletionDate.Format("Jan 2006")
}

// PeriodSummary totals one period against its targets.
type PeriodSummary struct {
	Name                   string `json:"name"`
	Months                 int    `json:"months"`
	TotalSalary            Amount `json:"totalSalary"`
	TotalAdditionalIncome  Amount `json:"totalAdditionalIncome"`
	TotalIncome            Amount `json:"totalIncome"`
	LongTermSavingsActual  Amount `json:"longTermSavingsActual"`
	LongTermSavingsTarget  Amount `json:"longTermSavingsTarget"`
	ShortTermSavingsActual Amount `json:"shortTermSavingsActual"`
	ShortTermSavingsTarget Amount `json:"shortTermSavingsTarget"`
	TotalGoalContribution  Amount `json:"totalGoalContribution"`
	TotalSurplus           Amount `json:"totalSurplus"`
	ClosingCarryover       Amount `json:"closingCarryover"`
}

// TargetStatus buckets how close a month came to its savings targets.
type TargetStatus string

const (
	StatusMet    TargetStatus = "met"
	StatusGood   TargetStatus = "good"
	StatusFair   TargetStatus = "fair"
	StatusBehind TargetStatus = "behind"
)

// MonthTargetProgress is the per-month view shown for the current month.
type MonthTargetProgress struct {
	Month            DerivedMonth `json:"month"`
	LongTermPercent  float64      `json:"longTermPercent"`
	ShortTermPercent float64      `json:"shortTermPercent"`
	LongTermStatus   TargetStatus `json:"longTermStatus"`
	ShortTermStatus  TargetStatus `json:"shortTermStatus"`
	IsCurrentMonth   bool         `json:"isCurrentMonth"`
}

// ChartPoint is one month in the savings chart series.
type ChartPoint struct {
	Label            string `json:"label"`
	LongTermSavings  Amount `json:"longTermSavings"`
	ShortTermSavings Amount `json:"shortTermSavings"`
	GoalContribution Amount `json:"goalContribution"`
	Surplus          Amount `json:"surplus"`
}
