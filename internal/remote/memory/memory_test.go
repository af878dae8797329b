package memory

import (
	"context"
	"errors"
	"testing"

	"budget/internal/core"
	"budget/internal/remote"
)

func TestStoreBudget(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.FetchBudget(ctx, "u1"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	data := core.BudgetData{Period1: []core.MonthRecord{{ID: "2025-1", GoalContribution: 10}}}
	if err := s.UpsertBudget(ctx, "u1", data); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	data.Period1[0].GoalContribution = 99

	got, err := s.FetchBudget(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Period1[0].GoalContribution != 10 {
		t.Fatalf("store must not alias caller slices, got %d", got.Period1[0].GoalContribution)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatalf("expected UpdatedAt to be stamped")
	}
}

func TestStoreFailure(t *testing.T) {
	s := NewStore()
	boom := errors.New("connection refused")
	s.SetFailure(boom)

	if err := s.UpsertSettings(context.Background(), "u1", core.DefaultSettings(2025)); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}
