package core

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings(2025)
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if s.StartMonth != 1 || s.MonthsPerPeriod != 6 || s.Period1Salary != 190000 || s.Period2Salary != 180000 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestSettingsWithDefaults(t *testing.T) {
	s := Settings{StartMonth: 0, Period1Salary: 250000, CurrencyCode: "USD", CurrencySymbol: "$"}.WithDefaults(2026)
	if s.StartMonth != 0 {
		t.Fatalf("January start must survive defaults, got %d", s.StartMonth)
	}
	if s.Period1Salary != 250000 {
		t.Fatalf("explicit salary overwritten: %d", s.Period1Salary)
	}
	if s.Period2Salary != 180000 || s.StartYear != 2026 || s.GoalName == "" {
		t.Fatalf("zero fields not defaulted: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	bad := DefaultSettings(2025)
	bad.MonthsPerPeriod = 0
	bad.StartMonth = 12
	bad.StartYear = 1999
	bad.FixedExpenses = -1
	bad.CurrencyCode = "XYZ"

	err := bad.Validate()
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	for _, want := range []string{"months per period", "start month", "start year", "fixed expenses", "XYZ"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}

	mismatch := DefaultSettings(2025)
	mismatch.CurrencySymbol = "$"
	if err := mismatch.Validate(); err == nil {
		t.Fatalf("expected symbol mismatch error")
	}
}

func TestSettingsReshapesMonths(t *testing.T) {
	a := DefaultSettings(2025)
	b := a
	b.Period1Salary = 1
	if a.ReshapesMonths(b) {
		t.Fatalf("salary change should not reshape months")
	}
	b.MonthsPerPeriod = 3
	if !a.ReshapesMonths(b) {
		t.Fatalf("period length change should reshape months")
	}
}
