package core

import (
	"fmt"
	"slices"
	"strings"
)

// Settings configures how the two periods are generated and displayed.
type Settings struct {
	Period1Name     string `json:"period1Name"`
	Period2Name     string `json:"period2Name"`
	MonthsPerPeriod int    `json:"monthsPerPeriod"`
	StartMonth      int    `json:"startMonth"` // 0-11
	StartYear       int    `json:"startYear"`

	Period1Salary Amount `json:"period1Salary"`
	Period2Salary Amount `json:"period2Salary"`

	LongTermSavingsTarget  Amount `json:"longTermSavingsTarget"`
	ShortTermSavingsTarget Amount `json:"shortTermSavingsTarget"`
	FixedExpenses          Amount `json:"fixedExpenses"`

	GoalTarget Amount `json:"goalTarget"`
	GoalName   string `json:"goalName"`

	CurrencySymbol string `json:"currencySymbol"`
	CurrencyCode   string `json:"currencyCode"`
}

// Currency is a selectable display currency.
type Currency struct {
	Symbol string
	Code   string
	Name   string
}

var CurrencyOptions = []Currency{
	{Symbol: "¥", Code: "JPY", Name: "Japanese Yen"},
	{Symbol: "₹", Code: "INR", Name: "Indian Rupee"},
	{Symbol: "$", Code: "USD", Name: "US Dollar"},
	{Symbol: "€", Code: "EUR", Name: "Euro"},
	{Symbol: "£", Code: "GBP", Name: "British Pound"},
	{Symbol: "₩", Code: "KRW", Name: "Korean Won"},
	{Symbol: "A$", Code: "AUD", Name: "Australian Dollar"},
	{Symbol: "C$", Code: "CAD", Name: "Canadian Dollar"},
}

// MonthsPerPeriodOptions are the period lengths offered on the settings page.
var MonthsPerPeriodOptions = []int{3, 6, 12}

const (
	MinStartYear = 2020
	MaxStartYear = 2100
	maxNameLen   = 100
)

// DefaultSettings returns the default configuration starting in February of year.
func DefaultSettings(year int) Settings {
	return Settings{
		Period1Name:     "First 6 Months",
		Period2Name:     "Next 6 Months",
		MonthsPerPeriod: 6,
		StartMonth:      1,
		StartYear:       year,

		Period1Salary: 190000,
		Period2Salary: 180000,

		LongTermSavingsTarget:  120000,
		ShortTermSavingsTarget: 30000,
		FixedExpenses:          40000,

		GoalTarget: 300000,
		GoalName:   "Annual Goal (Phone, Travel, Moving)",

		CurrencySymbol: "¥",
		CurrencyCode:   "JPY",
	}
}

// LookupCurrency finds a currency option by ISO code.
func LookupCurrency(code string) (Currency, bool) {
	for _, c := range CurrencyOptions {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Currency{}, false
}

// WithDefaults fills zero or empty fields from DefaultSettings(year).
// StartMonth is kept as is because January is a legitimate zero.
func (s Settings) WithDefaults(year int) Settings {
	d := DefaultSettings(year)
	if s.Period1Name == "" {
		s.Period1Name = d.Period1Name
	}
	if s.Period2Name == "" {
		s.Period2Name = d.Period2Name
	}
	if s.MonthsPerPeriod == 0 {
		s.MonthsPerPeriod = d.MonthsPerPeriod
	}
	if s.StartYear == 0 {
		s.StartYear = d.StartYear
	}
	if s.Period1Salary == 0 {
		s.Period1Salary = d.Period1Salary
	}
	if s.Period2Salary == 0 {
		s.Period2Salary = d.Period2Salary
	}
	if s.LongTermSavingsTarget == 0 {
		s.LongTermSavingsTarget = d.LongTermSavingsTarget
	}
	if s.ShortTermSavingsTarget == 0 {
		s.ShortTermSavingsTarget = d.ShortTermSavingsTarget
	}
	if s.FixedExpenses == 0 {
		s.FixedExpenses = d.FixedExpenses
	}
	if s.GoalTarget == 0 {
		s.GoalTarget = d.GoalTarget
	}
	if s.GoalName == "" {
		s.GoalName = d.GoalName
	}
	if s.CurrencySymbol == "" {
		s.CurrencySymbol = d.CurrencySymbol
	}
	if s.CurrencyCode == "" {
		s.CurrencyCode = d.CurrencyCode
	}
	return s
}

// Validate reports every problem at once, wrapped in ErrInvalidSettings.
func (s Settings) Validate() error {
	var problems []string

	if strings.TrimSpace(s.Period1Name) == "" || strings.TrimSpace(s.Period2Name) == "" {
		problems = append(problems, "period names cannot be empty")
	}
	if len(s.Period1Name) > maxNameLen || len(s.Period2Name) > maxNameLen || len(s.GoalName) > maxNameLen {
		problems = append(problems, fmt.Sprintf("names must be at most %d characters", maxNameLen))
	}
	if s.MonthsPerPeriod < 1 || s.MonthsPerPeriod > 12 {
		problems = append(problems, fmt.Sprintf("months per period %d must be between 1 and 12", s.MonthsPerPeriod))
	}
	if s.StartMonth < 0 || s.StartMonth > 11 {
		problems = append(problems, fmt.Sprintf("start month %d must be between 0 and 11", s.StartMonth))
	}
	if s.StartYear < MinStartYear || s.StartYear > MaxStartYear {
		problems = append(problems, fmt.Sprintf("start year %d must be between %d and %d", s.StartYear, MinStartYear, MaxStartYear))
	}
	for name, v := range map[string]Amount{
		"period 1 salary":           s.Period1Salary,
		"period 2 salary":           s.Period2Salary,
		"long-term savings target":  s.LongTermSavingsTarget,
		"short-term savings target": s.ShortTermSavingsTarget,
		"fixed expenses":            s.FixedExpenses,
		"goal target":               s.GoalTarget,
	} {
		if v < 0 {
			problems = append(problems, name+" cannot be negative")
		}
	}
	if c, ok := LookupCurrency(s.CurrencyCode); !ok {
		problems = append(problems, fmt.Sprintf("%v %q", ErrUnsupportedCurrency, s.CurrencyCode))
	} else if s.CurrencySymbol != c.Symbol {
		problems = append(problems, fmt.Sprintf("currency symbol %q does not match %s", s.CurrencySymbol, c.Code))
	}

	if len(problems) > 0 {
		// map iteration above is unordered
		slices.Sort(problems)
		return fmt.Errorf("%w:\n- %s", ErrInvalidSettings, strings.Join(problems, "\n- "))
	}
	return nil
}

// ReshapesMonths reports whether moving from s to next changes which months
// exist, which requires regenerating the month lists.
func (s Settings) ReshapesMonths(next Settings) bool {
	return s.MonthsPerPeriod != next.MonthsPerPeriod ||
		s.StartMonth != next.StartMonth ||
		s.StartYear != next.StartYear
}

// Period2StartMonth is the unwrapped start index of the second period.
func (s Settings) Period2StartMonth() int {
	return s.StartMonth + s.MonthsPerPeriod
}

// PeriodName returns the display name configured for p.
func (s Settings) PeriodName(p Period) string {
	if p == Period2 {
		return s.Period2Name
	}
	return s.Period1Name
}
