package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/period"
	remotemem "budget/internal/remote/memory"
	sheetsmem "budget/internal/sheets/memory"
	"budget/internal/storage"
)

type fixture struct {
	repo    *storage.SQLiteRepository
	remote  *remotemem.Store
	reports *sheetsmem.Store
	worker  *SyncWorker
	userID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	u := core.User{ID: "user-1", Email: "alice@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateUser(context.Background(), u))

	f := &fixture{
		repo:    repo,
		remote:  remotemem.NewStore(),
		reports: sheetsmem.New(),
		userID:  u.ID,
	}
	f.worker = NewSyncWorker(repo, f.remote, f.reports, 10, 3, time.Second)
	return f
}

func (f *fixture) save(t *testing.T) int64 {
	t.Helper()
	data := period.GeneratePeriods(core.DefaultSettings(2026))
	v, err := f.repo.SaveBudget(context.Background(), f.userID, data)
	require.NoError(t, err)
	return v
}

func TestHandleSyncMessage_PushesRemoteAndReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.save(t)

	require.NoError(t, f.worker.HandleSyncMessage(ctx, amqp.NewBudgetSyncMessage(f.userID, v)))

	got, err := f.remote.FetchBudget(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, got.Period1, 6)
	assert.Equal(t, "2026-1", got.Period1[0].ID)

	settings, err := f.remote.FetchSettings(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 6, settings.MonthsPerPeriod)

	table, err := f.reports.ReadReport(ctx, "2026 alice@example.com")
	require.NoError(t, err)
	assert.Len(t, table, 13) // header + 12 months

	stored, err := f.repo.GetBudget(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncSynced, stored.SyncStatus)
}

func TestSyncBudget_SkipsStaleAndDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.save(t)
	v2 := f.save(t)

	require.NoError(t, f.worker.SyncBudget(ctx, f.userID, v2-1))
	assert.Equal(t, 0, f.reports.Writes(), "stale request must not push")

	require.NoError(t, f.worker.SyncBudget(ctx, f.userID, v2))
	require.NoError(t, f.worker.SyncBudget(ctx, f.userID, v2))
	assert.Equal(t, 1, f.reports.Writes(), "synced version must not be pushed twice")
}

func TestSyncBudget_RemoteFailureMarksError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.save(t)
	f.remote.SetFailure(errors.New("connection refused"))

	err := f.worker.SyncBudget(ctx, f.userID, v)
	require.Error(t, err)

	stored, err := f.repo.GetBudget(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncError, stored.SyncStatus)

	// Still pending for the poller until attempts run out.
	pending, err := f.repo.GetPendingSync(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	f.remote.SetFailure(nil)
	n, err := f.worker.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncBudget_UnknownUserIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.worker.SyncBudget(context.Background(), "nobody", 1))
}

func TestSyncBudget_WithoutMirrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := NewSyncWorker(f.repo, nil, nil, 0, 0, 0)
	v := f.save(t)

	require.NoError(t, w.SyncBudget(ctx, f.userID, v))
	stored, err := f.repo.GetBudget(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncSynced, stored.SyncStatus)
}

func TestStartupSyncCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.worker.StartupSyncCheck(ctx))

	f.save(t)
	require.NoError(t, f.worker.StartupSyncCheck(ctx))
	assert.Equal(t, 1, f.reports.Writes())
}
