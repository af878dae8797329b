package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/period"
	"budget/internal/remote"
)

// Runs against a disposable database named by TEST_DATABASE_URL.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, "TRUNCATE expense_data, user_settings")
		s.Close()
	})
	return s
}

func TestStoreBudgetUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.FetchBudget(ctx, "user-1")
	assert.True(t, errors.Is(err, remote.ErrNotFound))

	data := period.GeneratePeriods(core.DefaultSettings(2025))
	require.NoError(t, s.UpsertBudget(ctx, "user-1", data))

	data.Period2[0].GoalContribution = 42000
	require.NoError(t, s.UpsertBudget(ctx, "user-1", data))

	got, err := s.FetchBudget(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, got.Period1, 6)
	assert.Equal(t, core.Amount(42000), got.Period2[0].GoalContribution)
}

func TestStoreSettingsUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := core.DefaultSettings(2025)
	want.StartMonth = 0
	require.NoError(t, s.UpsertSettings(ctx, "user-1", want))

	got, err := s.FetchSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
