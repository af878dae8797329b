// Package core holds the budget data model shared by every other package.
//
// This file contains parsing and formatting of whole-unit currency amounts.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// maxAmountDigits keeps parsed values well inside int64 even after summing
// a few years of months.
const maxAmountDigits = 15

// ParseAmount converts user input to an Amount.
//
// Only ASCII digits are accepted. Thousands separators (",", "_" and spaces)
// are stripped first and an empty string is treated as zero, matching the
// numeric inputs of the dashboard. Signs, decimals and letters are rejected.
//
// Examples:
//
//	ParseAmount("30000")  -> 30000, nil
//	ParseAmount("30,000") -> 30000, nil
//	ParseAmount("")       -> 0, nil
//	ParseAmount("-5")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	if len(s) > maxAmountDigits {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return Amount(v), nil
}

// Format renders the amount with the currency symbol and thousands separators,
// without fraction digits: "¥190,000", "-$1,250".
func (a Amount) Format(symbol string) string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (a Amount) String() string {
	return strconv.FormatInt(int64(a), 10)
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}
