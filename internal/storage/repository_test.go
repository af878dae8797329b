package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/period"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createTestUser(t *testing.T, repo *SQLiteRepository, id, email string) {
	t.Helper()
	err := repo.CreateUser(context.Background(), core.User{
		ID: id, Email: email, PasswordHash: "hash", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func TestUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createTestUser(t, repo, "u1", "Alice@example.com")

	got, err := repo.UserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("lookup should be case-insensitive: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("expected u1, got %s", got.ID)
	}

	err = repo.CreateUser(ctx, core.User{ID: "u2", Email: "ALICE@example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if _, err := repo.UserByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createTestUser(t, repo, "u1", "a@example.com")

	if _, err := repo.GetSettings(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}

	s := core.DefaultSettings(2025)
	s.StartMonth = 0
	s.CurrencyCode, s.CurrencySymbol = "USD", "$"
	if err := repo.SaveSettings(ctx, "u1", s); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	s.GoalTarget = 500000
	if err := repo.SaveSettings(ctx, "u1", s); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	got, err := repo.GetSettings(ctx, "u1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got != s {
		t.Fatalf("settings mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestBudgetVersionsAndSync(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createTestUser(t, repo, "u1", "a@example.com")

	data := period.GeneratePeriods(core.DefaultSettings(2025))
	v1, err := repo.SaveBudget(ctx, "u1", data)
	if err != nil {
		t.Fatalf("save budget: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("expected version 1, got %d", v1)
	}

	data.Period1[0].GoalContribution = 20000
	v2, err := repo.SaveBudget(ctx, "u1", data)
	if err != nil {
		t.Fatalf("save budget again: %v", err)
	}
	if v2 != 2 {
		t.Fatalf("expected version 2, got %d", v2)
	}

	stored, err := repo.GetBudget(ctx, "u1")
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if len(stored.Data.Period1) != 6 || stored.Data.Period1[0].GoalContribution != 20000 {
		t.Fatalf("unexpected stored budget: %+v", stored.Data.Period1)
	}
	if stored.SyncStatus != SyncPending {
		t.Fatalf("expected pending, got %s", stored.SyncStatus)
	}

	pending, err := repo.GetPendingSync(ctx, 3, 10)
	if err != nil || len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("unexpected pending list %+v (err=%v)", pending, err)
	}

	ok, err := repo.MarkSynced(ctx, "u1", 1)
	if err != nil || ok {
		t.Fatalf("stale version must not be marked synced (ok=%v err=%v)", ok, err)
	}
	ok, err = repo.MarkSynced(ctx, "u1", 2)
	if err != nil || !ok {
		t.Fatalf("expected current version synced (ok=%v err=%v)", ok, err)
	}

	pending, _ = repo.GetPendingSync(ctx, 3, 10)
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %+v", pending)
	}
}

func TestSyncErrorsStopAfterMaxAttempts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createTestUser(t, repo, "u1", "a@example.com")

	v, _ := repo.SaveBudget(ctx, "u1", core.BudgetData{})
	for i := 0; i < 2; i++ {
		if err := repo.MarkSyncError(ctx, "u1", v, errors.New("remote down")); err != nil {
			t.Fatalf("mark sync error: %v", err)
		}
	}

	if pending, _ := repo.GetPendingSync(ctx, 3, 10); len(pending) != 1 {
		t.Fatalf("expected retry while under max attempts, got %d", len(pending))
	}
	if pending, _ := repo.GetPendingSync(ctx, 2, 10); len(pending) != 0 {
		t.Fatalf("expected no retry at max attempts, got %d", len(pending))
	}

	stats, err := repo.SyncStats(ctx)
	if err != nil || stats[SyncError] != 1 {
		t.Fatalf("unexpected stats %v (err=%v)", stats, err)
	}
}

func TestGetBudgetMissing(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetBudget(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokedTokens(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if err := repo.RevokeToken(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := repo.RevokeToken(ctx, "old", now.Add(-time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	// revoking twice keeps the later expiry
	if err := repo.RevokeToken(ctx, "live", now.Add(time.Second)); err != nil {
		t.Fatalf("revoke again: %v", err)
	}

	for jti, want := range map[string]bool{"live": true, "old": false, "never": false} {
		got, err := repo.IsTokenRevoked(ctx, jti)
		if err != nil {
			t.Fatalf("check %s: %v", jti, err)
		}
		if got != want {
			t.Errorf("IsTokenRevoked(%s) = %v, want %v", jti, got, want)
		}
	}

	n, err := repo.PruneRevokedTokens(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 pruned row, got %d (err=%v)", n, err)
	}

	now = now.Add(30 * time.Minute)
	if got, _ := repo.IsTokenRevoked(ctx, "live"); !got {
		t.Fatal("revocation must last until the token's own expiry")
	}
}
