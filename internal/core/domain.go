package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type (
	// Amount is a signed quantity of whole currency units.
	Amount int64

	// MonthRecord is the raw, user-editable state of one month. It is never
	// modified by the calculator.
	MonthRecord struct {
		ID                      string `json:"id"`
		MonthName               string `json:"monthName"`
		Year                    int    `json:"year"`
		Salary                  Amount `json:"salary"`
		FixedExpenses           Amount `json:"fixedExpenses"`
		PlannedLongTermSavings  Amount `json:"plannedLongTermSavings"`
		ActualLongTermSavings   Amount `json:"actualLongTermSavings"`
		PlannedShortTermSavings Amount `json:"plannedShortTermSavings"`
		ActualShortTermSavings  Amount `json:"actualShortTermSavings"`
		AdditionalIncome        Amount `json:"additionalIncome"`
		AdditionalExpense       Amount `json:"additionalExpense"`
		GoalContribution        Amount `json:"goalContribution"`
		CarryoverFromPrevious   Amount `json:"carryoverFromPrevious"`
	}

	// DerivedMonth is a MonthRecord plus the figures computed from it.
	DerivedMonth struct {
		MonthRecord
		TotalAvailable       Amount `json:"totalAvailable"`
		RemainingAfterFixed  Amount `json:"remainingAfterFixed"`
		LongTermSavingsDiff  Amount `json:"longTermSavingsDiff"`
		ShortTermSavingsDiff Amount `json:"shortTermSavingsDiff"`
		Surplus              Amount `json:"surplus"`
		CarryoverToNext      Amount `json:"carryoverToNext"`
	}

	// BudgetData is everything a user owns besides settings.
	BudgetData struct {
		Period1   []MonthRecord `json:"period1Months"`
		Period2   []MonthRecord `json:"period2Months"`
		UpdatedAt time.Time     `json:"updatedAt"`
	}

	// Period selects one of the two month lists.
	Period int

	// EditableField names a month field a user may change.
	EditableField string

	// MonthEdit sets a single editable field to a new value.
	MonthEdit struct {
		Field EditableField
		Value Amount
	}
)

const (
	Period1 Period = 1
	Period2 Period = 2
)

const (
	FieldActualLongTermSavings  EditableField = "actualLongTermSavings"
	FieldActualShortTermSavings EditableField = "actualShortTermSavings"
	FieldAdditionalIncome       EditableField = "additionalIncome"
	FieldAdditionalExpense      EditableField = "additionalExpense"
	FieldGoalContribution       EditableField = "goalContribution"
)

// EditableFields lists the fields in the order they are shown on a month card.
var EditableFields = []EditableField{
	FieldActualLongTermSavings,
	FieldActualShortTermSavings,
	FieldAdditionalIncome,
	FieldAdditionalExpense,
	FieldGoalContribution,
}

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrFieldNotEditable    = errors.New("field is not editable")
	ErrInvalidMonthID      = errors.New("invalid month id")
	ErrInvalidSettings     = errors.New("invalid settings")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// MonthNames holds English month names indexed 0-11.
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name for a zero-based month index, wrapping past December.
func MonthName(index int) string {
	return MonthNames[((index%12)+12)%12]
}

// MonthID formats the stable identifier "<year>-<monthIndex0>".
func MonthID(year, monthIndex int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(monthIndex)
}

// ParseMonthID splits an identifier produced by MonthID.
func ParseMonthID(id string) (year, monthIndex int, err error) {
	y, m, ok := strings.Cut(id, "-")
	if !ok {
		return 0, 0, ErrInvalidMonthID
	}
	year, err = strconv.Atoi(y)
	if err != nil {
		return 0, 0, ErrInvalidMonthID
	}
	monthIndex, err = strconv.Atoi(m)
	if err != nil || monthIndex < 0 || monthIndex > 11 {
		return 0, 0, ErrInvalidMonthID
	}
	return year, monthIndex, nil
}

func ParsePeriod(s string) (Period, error) {
	switch strings.TrimSpace(s) {
	case "1", "period1":
		return Period1, nil
	case "2", "period2":
		return Period2, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

func (p Period) String() string {
	return "period" + strconv.Itoa(int(p))
}

func ParseEditableField(s string) (EditableField, error) {
	for _, f := range EditableFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrFieldNotEditable, s)
}

// Apply returns a copy of rec with the edit applied. Identity, salary and
// targets cannot be reached through an edit.
func (e MonthEdit) Apply(rec MonthRecord) (MonthRecord, error) {
	if e.Value < 0 {
		return rec, ErrInvalidAmount
	}
	switch e.Field {
	case FieldActualLongTermSavings:
		rec.ActualLongTermSavings = e.Value
	case FieldActualShortTermSavings:
		rec.ActualShortTermSavings = e.Value
	case FieldAdditionalIncome:
		rec.AdditionalIncome = e.Value
	case FieldAdditionalExpense:
		rec.AdditionalExpense = e.Value
	case FieldGoalContribution:
		rec.GoalContribution = e.Value
	default:
		return rec, fmt.Errorf("%w: %q", ErrFieldNotEditable, e.Field)
	}
	return rec, nil
}

// Months returns the list for the given period.
func (b BudgetData) Months(p Period) []MonthRecord {
	if p == Period2 {
		return b.Period2
	}
	return b.Period1
}

// Clone returns a deep copy so callers can edit without aliasing stored slices.
func (b BudgetData) Clone() BudgetData {
	out := BudgetData{UpdatedAt: b.UpdatedAt}
	out.Period1 = append(make([]MonthRecord, 0, len(b.Period1)), b.Period1...)
	out.Period2 = append(make([]MonthRecord, 0, len(b.Period2)), b.Period2...)
	return out
}

// Validate checks that month ids are well formed and unique across both periods.
func (b BudgetData) Validate() error {
	seen := make(map[string]struct{}, len(b.Period1)+len(b.Period2))
	for _, list := range [][]MonthRecord{b.Period1, b.Period2} {
		for _, m := range list {
			if _, _, err := ParseMonthID(m.ID); err != nil {
				return fmt.Errorf("month %q: %w", m.ID, err)
			}
			if _, dup := seen[m.ID]; dup {
				return fmt.Errorf("duplicate month id %q", m.ID)
			}
			seen[m.ID] = struct{}{}
		}
	}
	return nil
}

// User is an account that owns one settings row and one budget.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
