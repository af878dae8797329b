package memory

import (
	"context"
	"testing"
)

func TestWriteAndReadReport(t *testing.T) {
	s := New()
	ctx := context.Background()
	table := [][]string{{"Period", "Month"}, {"Period 1 (First 6 Months)", "February"}}

	if err := s.WriteReport(ctx, "2025 Budget", table); err != nil {
		t.Fatalf("write: %v", err)
	}
	table[1][1] = "changed"

	got, err := s.ReadReport(ctx, "2025 Budget")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got[1][1] != "February" {
		t.Fatalf("store must copy tables, got %q", got[1][1])
	}
	if s.Writes() != 1 {
		t.Fatalf("expected 1 write, got %d", s.Writes())
	}

	if _, err := s.ReadReport(ctx, "missing"); err == nil {
		t.Fatalf("expected error for unknown tab")
	}
	if err := s.WriteReport(ctx, "", nil); err == nil {
		t.Fatalf("expected error for empty tab")
	}
}

func TestTabName(t *testing.T) {
	if got := New().TabName(2026, "alice@example.com"); got != "2026 alice@example.com" {
		t.Fatalf("TabName = %q", got)
	}
}
