package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/period"
	remotemem "budget/internal/remote/memory"
	"budget/internal/storage"
)

type recordingPublisher struct {
	mu       sync.Mutex
	versions []int64
	err      error
}

func (p *recordingPublisher) PublishBudgetSync(_ context.Context, _ string, version int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions = append(p.versions, version)
	return p.err
}

type harness struct {
	repo     *storage.SQLiteRepository
	remote   *remotemem.Store
	pub      *recordingPublisher
	settings *SettingsService
	budgets  *BudgetService
}

const userID = "user-1"

func newHarness(t *testing.T, withRemote bool) *harness {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.CreateUser(context.Background(), core.User{
		ID: userID, Email: "alice@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC(),
	}))

	h := &harness{repo: repo, pub: &recordingPublisher{}}
	var rs *remotemem.Store
	if withRemote {
		rs = remotemem.NewStore()
		h.remote = rs
	}
	fixed := func() time.Time { return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC) }

	if rs != nil {
		h.settings = NewSettingsService(repo, rs, time.Second)
		h.budgets = NewBudgetService(repo, rs, h.pub, h.settings, time.Second)
	} else {
		h.settings = NewSettingsService(repo, nil, time.Second)
		h.budgets = NewBudgetService(repo, nil, h.pub, h.settings, time.Second)
	}
	h.settings.now = fixed
	h.budgets.now = fixed
	return h
}

func TestLoad_GeneratesWhenNothingStored(t *testing.T) {
	h := newHarness(t, true)
	settings := core.DefaultSettings(2026)

	res, err := h.budgets.Load(context.Background(), userID, settings)
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, res.Source)
	assert.Empty(t, res.Warning)
	require.Len(t, res.Data.Period1, 6)
	assert.Equal(t, "2026-1", res.Data.Period1[0].ID)
	assert.Equal(t, "2026-7", res.Data.Period2[0].ID)
}

func TestLoad_RemoteFailureFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	data := period.GeneratePeriods(core.DefaultSettings(2026))
	_, err := h.budgets.Save(ctx, userID, data)
	require.NoError(t, err)
	_, err = h.repo.MarkSynced(ctx, userID, 1)
	require.NoError(t, err)

	h.remote.SetFailure(errors.New("connection refused"))
	res, err := h.budgets.Load(ctx, userID, core.DefaultSettings(2026))
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Equal(t, WarnLoadFallback, res.Warning)
	assert.Len(t, res.Data.Period1, 6)
}

func TestLoad_RemoteWinsOverSyncedLocal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	data := period.GeneratePeriods(core.DefaultSettings(2026))
	_, err := h.budgets.Save(ctx, userID, data)
	require.NoError(t, err)
	_, err = h.repo.MarkSynced(ctx, userID, 1)
	require.NoError(t, err)

	other := data.Clone()
	other.Period1[0].GoalContribution = 12345
	require.NoError(t, h.remote.UpsertBudget(ctx, userID, other))

	res, err := h.budgets.Load(ctx, userID, core.DefaultSettings(2026))
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, core.Amount(12345), res.Data.Period1[0].GoalContribution)
}

func TestLoad_PendingLocalWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	data := period.GeneratePeriods(core.DefaultSettings(2026))
	require.NoError(t, h.remote.UpsertBudget(ctx, userID, data))

	edited := data.Clone()
	edited.Period1[0].AdditionalIncome = 500
	h.remote.SetFailure(errors.New("timeout"))
	_, err := h.budgets.Save(ctx, userID, edited)
	require.NoError(t, err)
	h.remote.SetFailure(nil)

	res, err := h.budgets.Load(ctx, userID, core.DefaultSettings(2026))
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Equal(t, core.Amount(500), res.Data.Period1[0].AdditionalIncome)
}

func TestSave_RemoteFailureKeepsLocalAndWarns(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.remote.SetFailure(errors.New("connection refused"))

	data := period.GeneratePeriods(core.DefaultSettings(2026))
	res, err := h.budgets.Save(ctx, userID, data)
	require.NoError(t, err)
	assert.Equal(t, WarnSaveLocal, res.Warning)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, []int64{1}, h.pub.versions)

	stored, err := h.repo.GetBudget(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncPending, stored.SyncStatus)
	assert.Len(t, stored.Data.Period1, 6)
}

func TestSave_PublishFailureIsNotAnError(t *testing.T) {
	h := newHarness(t, false)
	h.pub.err = errors.New("circuit breaker is open")

	res, err := h.budgets.Save(context.Background(), userID, period.GeneratePeriods(core.DefaultSettings(2026)))
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
}

func TestSave_RejectsDuplicateMonthIDs(t *testing.T) {
	h := newHarness(t, false)
	data := period.GeneratePeriods(core.DefaultSettings(2026))
	data.Period2[0].ID = data.Period1[0].ID

	_, err := h.budgets.Save(context.Background(), userID, data)
	assert.Error(t, err)
}

func TestUpdateMonth(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	res, err := h.budgets.UpdateMonth(ctx, userID, core.Period1, "2026-1",
		core.MonthEdit{Field: core.FieldGoalContribution, Value: 25000})
	require.NoError(t, err)
	assert.Equal(t, core.Amount(25000), res.Data.Period1[0].GoalContribution)
	assert.Equal(t, core.Amount(190000), res.Data.Period1[0].Salary, "salary is never edited")

	_, err = h.budgets.UpdateMonth(ctx, userID, core.Period2, "2026-1",
		core.MonthEdit{Field: core.FieldGoalContribution, Value: 1})
	assert.ErrorIs(t, err, period.ErrMonthNotFound)

	_, err = h.budgets.UpdateMonth(ctx, userID, core.Period1, "2026-1",
		core.MonthEdit{Field: core.FieldAdditionalExpense, Value: -1})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = h.budgets.UpdateMonth(ctx, userID, core.Period(3), "2026-1",
		core.MonthEdit{Field: core.FieldAdditionalExpense, Value: 1})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestUpdateMonth_ConcurrentEditsAreKept(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	fields := []core.EditableField{
		core.FieldActualLongTermSavings,
		core.FieldActualShortTermSavings,
		core.FieldAdditionalIncome,
		core.FieldAdditionalExpense,
		core.FieldGoalContribution,
	}

	for round := 1; round <= 20; round++ {
		var wg sync.WaitGroup
		for i, f := range fields {
			wg.Add(1)
			go func(f core.EditableField, v core.Amount) {
				defer wg.Done()
				_, err := h.budgets.UpdateMonth(ctx, userID, core.Period1, "2026-1", core.MonthEdit{Field: f, Value: v})
				assert.NoError(t, err)
			}(f, core.Amount(round*100+i))
		}
		wg.Wait()

		loaded, err := h.budgets.Load(ctx, userID, core.DefaultSettings(2026))
		require.NoError(t, err)
		m := loaded.Data.Period1[0]
		got := []core.Amount{m.ActualLongTermSavings, m.ActualShortTermSavings, m.AdditionalIncome, m.AdditionalExpense, m.GoalContribution}
		for i := range fields {
			assert.Equal(t, core.Amount(round*100+i), got[i], "round %d field %s", round, fields[i])
		}
	}
	assert.Zero(t, h.budgets.writes.size(), "locks are released")
}

func TestSaveCurrent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	res, err := h.budgets.SaveCurrent(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Version)
	require.Len(t, res.Data.Period1, 6)

	_, err = h.budgets.UpdateMonth(ctx, userID, core.Period1, "2026-1",
		core.MonthEdit{Field: core.FieldAdditionalIncome, Value: 700})
	require.NoError(t, err)

	res, err = h.budgets.SaveCurrent(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Version)
	assert.Equal(t, core.Amount(700), res.Data.Period1[0].AdditionalIncome)

	remoteData, err := h.remote.FetchBudget(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, core.Amount(700), remoteData.Period1[0].AdditionalIncome)
}

func TestBuildDashboard_OtherYearIsNotCurrent(t *testing.T) {
	settings := core.DefaultSettings(2026)
	loaded := LoadResult{Data: period.GeneratePeriods(settings), Source: SourceGenerated}

	d := BuildDashboard(settings, loaded, time.Date(2028, time.March, 10, 0, 0, 0, 0, time.UTC))
	require.True(t, d.HasCurrent)
	assert.False(t, d.Current.Exact)
	for _, p := range append(append([]core.MonthTargetProgress{}, d.Progress1...), d.Progress2...) {
		assert.False(t, p.IsCurrentMonth, "month %s", p.Month.ID)
	}

	d = BuildDashboard(settings, loaded, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))
	assert.True(t, d.Current.Exact)
	current := 0
	for _, p := range append(append([]core.MonthTargetProgress{}, d.Progress1...), d.Progress2...) {
		if p.IsCurrentMonth {
			current++
			assert.Equal(t, "2026-2", p.Month.ID)
		}
	}
	assert.Equal(t, 1, current)
}

func TestApplySettings_RegeneratesOnlyOnShapeChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	_, err := h.budgets.UpdateMonth(ctx, userID, core.Period1, "2026-1",
		core.MonthEdit{Field: core.FieldGoalContribution, Value: 25000})
	require.NoError(t, err)

	next := core.DefaultSettings(2026)
	next.Period1Salary = 200000
	_, regenerated, _, err := h.budgets.ApplySettings(ctx, userID, next)
	require.NoError(t, err)
	assert.False(t, regenerated)

	stored, err := h.repo.GetBudget(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, core.Amount(25000), stored.Data.Period1[0].GoalContribution)
	assert.Equal(t, core.Amount(190000), stored.Data.Period1[0].Salary, "salary change applies to new lists only")

	next.MonthsPerPeriod = 3
	saved, regenerated, _, err := h.budgets.ApplySettings(ctx, userID, next)
	require.NoError(t, err)
	assert.True(t, regenerated)
	assert.Equal(t, 3, saved.MonthsPerPeriod)

	stored, err = h.repo.GetBudget(ctx, userID)
	require.NoError(t, err)
	require.Len(t, stored.Data.Period1, 3)
	assert.Equal(t, core.Amount(0), stored.Data.Period1[0].GoalContribution)
	assert.Equal(t, core.Amount(200000), stored.Data.Period1[0].Salary)
	assert.Equal(t, "2026-4", stored.Data.Period2[0].ID)
}

func TestApplySettings_Invalid(t *testing.T) {
	h := newHarness(t, false)
	bad := core.DefaultSettings(2026)
	bad.StartYear = 1999
	_, _, _, err := h.budgets.ApplySettings(context.Background(), userID, bad)
	assert.ErrorIs(t, err, core.ErrInvalidSettings)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	_, err := h.budgets.UpdateMonth(ctx, userID, core.Period1, "2026-1",
		core.MonthEdit{Field: core.FieldAdditionalIncome, Value: 50000})
	require.NoError(t, err)

	res, err := h.budgets.Reset(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, core.Amount(0), res.Data.Period1[0].AdditionalIncome)
	assert.Equal(t, int64(2), res.Version)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	_, err := h.budgets.UpdateMonth(ctx, userID, core.Period1, "2026-1",
		core.MonthEdit{Field: core.FieldGoalContribution, Value: 50000})
	require.NoError(t, err)
	_, err = h.budgets.UpdateMonth(ctx, userID, core.Period1, "2026-2",
		core.MonthEdit{Field: core.FieldGoalContribution, Value: 25000})
	require.NoError(t, err)

	d, err := h.budgets.Dashboard(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, SourceLocal, d.Source)
	assert.Equal(t, core.Amount(75000), d.Goal.TotalContributed)
	assert.Equal(t, core.Amount(225000), d.Goal.Remaining)
	assert.InDelta(t, 25.0, d.Goal.PercentComplete, 0.0001)
	assert.InDelta(t, 22500.0, d.Goal.MonthlyNeeded, 0.0001)

	// March 2026 is the second month of period 1.
	require.True(t, d.HasCurrent)
	assert.True(t, d.Current.Exact)
	assert.Equal(t, "2026-2", d.Current.Month.ID)
	assert.True(t, d.Progress1[1].IsCurrentMonth)
	assert.False(t, d.Progress1[0].IsCurrentMonth)

	// Period 2 head is seeded from period 1's closing carryover.
	assert.Equal(t, d.Summary1.ClosingCarryover, d.Period2[0].CarryoverFromPrevious)
	assert.Len(t, d.Chart1, 6)
	assert.Len(t, d.GoalShares, len(core.DefaultGoals))
}

func TestSettingsService_GetFallsBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	got, err := h.settings.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultSettings(2026), got)

	custom := core.DefaultSettings(2026)
	custom.GoalName = "Camera"
	_, warning, err := h.settings.Save(ctx, userID, custom)
	require.NoError(t, err)
	assert.Empty(t, warning)

	h.remote.SetFailure(errors.New("connection refused"))
	got, err = h.settings.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Camera", got.GoalName)

	_, warning, err = h.settings.Save(ctx, userID, custom)
	require.NoError(t, err)
	assert.Equal(t, warnSettingsSaveRemote, warning)
}
