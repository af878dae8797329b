package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out Amount
		ok  bool
	}{
		{"30000", 30000, true},
		{" 120000 ", 120000, true},
		{"30,000", 30000, true},
		{"1_000", 1000, true},
		{"", 0, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"12.5", 0, false},
		{"abc", 0, false},
		{"１２", 0, false}, // full-width digits
		{"9999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestAmountFormat(t *testing.T) {
	cases := []struct {
		a      Amount
		symbol string
		want   string
	}{
		{0, "¥", "¥0"},
		{999, "$", "$999"},
		{1000, "$", "$1,000"},
		{190000, "¥", "¥190,000"},
		{1234567, "€", "€1,234,567"},
		{-10000, "A$", "-A$10,000"},
	}
	for _, tc := range cases {
		if got := tc.a.Format(tc.symbol); got != tc.want {
			t.Errorf("Format(%d, %q) = %q, want %q", tc.a, tc.symbol, got, tc.want)
		}
	}
}
