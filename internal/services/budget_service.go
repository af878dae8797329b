package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"budget/internal/core"
	"budget/internal/period"
	"budget/internal/remote"
	"budget/internal/storage"
)

// User-facing warnings for degraded operation.
const (
	WarnLoadFallback = "Failed to load data. Using local storage as fallback."
	WarnSaveLocal    = "Failed to save to database. Data saved locally."
)

// Source tells where loaded data came from.
type Source string

const (
	SourceRemote    Source = "remote"
	SourceLocal     Source = "local"
	SourceGenerated Source = "generated"
)

// Publisher announces new local versions to the sync worker.
type Publisher interface {
	PublishBudgetSync(ctx context.Context, userID string, version int64) error
}

type LoadResult struct {
	Data    core.BudgetData
	Source  Source
	Warning string
}

type SaveResult struct {
	Data    core.BudgetData
	Version int64
	Warning string
}

// Dashboard is everything the dashboard page shows, derived fresh on each call.
type Dashboard struct {
	Settings core.Settings
	Data     core.BudgetData
	Source   Source
	Warning  string

	Period1 []core.DerivedMonth
	Period2 []core.DerivedMonth

	Summary1 core.PeriodSummary
	Summary2 core.PeriodSummary

	Progress1 []core.MonthTargetProgress
	Progress2 []core.MonthTargetProgress

	Goal       core.GoalProgress
	Projection core.Projection
	GoalShares []core.GoalShare

	Current    period.CurrentMonth
	HasCurrent bool

	Chart1 []core.ChartPoint
	Chart2 []core.ChartPoint
}

// BudgetService orchestrates budget reads and writes across SQLite, the
// remote store and AMQP.
type BudgetService struct {
	local         *storage.SQLiteRepository
	remote        remote.BudgetStore
	publisher     Publisher
	settings      *SettingsService
	remoteTimeout time.Duration
	loads         singleflight.Group
	now           func() time.Time

	// writes serializes every read-modify-write of one user's budget
	writes userLocks
}

// NewBudgetService builds the service. rs and pub may be nil.
func NewBudgetService(local *storage.SQLiteRepository, rs remote.BudgetStore, pub Publisher, settings *SettingsService, remoteTimeout time.Duration) *BudgetService {
	if remoteTimeout <= 0 {
		remoteTimeout = 10 * time.Second
	}
	return &BudgetService{
		local:         local,
		remote:        rs,
		publisher:     pub,
		settings:      settings,
		remoteTimeout: remoteTimeout,
		now:           time.Now,
	}
}

// Load returns the user's budget. Local edits that have not reached the
// remote store yet win; otherwise the remote copy is used, then the local
// one, and when neither exists fresh months are generated from settings.
func (s *BudgetService) Load(ctx context.Context, userID string, settings core.Settings) (LoadResult, error) {
	stored, localErr := s.local.GetBudget(ctx, userID)
	if localErr != nil && !errors.Is(localErr, storage.ErrNotFound) {
		return LoadResult{}, fmt.Errorf("load local budget: %w", localErr)
	}
	hasLocal := localErr == nil
	if hasLocal && stored.SyncStatus != storage.SyncSynced {
		return LoadResult{Data: stored.Data, Source: SourceLocal}, nil
	}

	var warning string
	if s.remote != nil {
		data, err := s.fetchRemote(ctx, userID)
		switch {
		case err == nil:
			return LoadResult{Data: data, Source: SourceRemote}, nil
		case errors.Is(err, remote.ErrNotFound):
		default:
			slog.WarnContext(ctx, "Failed to load budget from database", "user_id", userID, "error", err)
			warning = WarnLoadFallback
		}
	}

	if hasLocal {
		return LoadResult{Data: stored.Data, Source: SourceLocal, Warning: warning}, nil
	}
	return LoadResult{Data: period.GeneratePeriods(settings), Source: SourceGenerated, Warning: warning}, nil
}

// fetchRemote collapses concurrent loads for the same user into one query.
func (s *BudgetService) fetchRemote(ctx context.Context, userID string) (core.BudgetData, error) {
	v, err, shared := s.loads.Do(userID, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.remoteTimeout)
		defer cancel()
		return s.remote.FetchBudget(rctx, userID)
	})
	if err != nil {
		return core.BudgetData{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Shared remote budget load", "user_id", userID)
	}
	return v.(core.BudgetData).Clone(), nil
}

// Save stores data locally, then tries the remote store, and finally asks
// the worker to finish the sync. Only a local failure is an error.
func (s *BudgetService) Save(ctx context.Context, userID string, data core.BudgetData) (SaveResult, error) {
	unlock := s.writes.lock(userID)
	defer unlock()
	return s.save(ctx, userID, data)
}

func (s *BudgetService) save(ctx context.Context, userID string, data core.BudgetData) (SaveResult, error) {
	if err := data.Validate(); err != nil {
		return SaveResult{}, fmt.Errorf("save budget: %w", err)
	}
	data = data.Clone()
	data.UpdatedAt = s.now().UTC()

	version, err := s.local.SaveBudget(ctx, userID, data)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save budget: %w", err)
	}
	res := SaveResult{Data: data, Version: version}

	if s.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		err := s.remote.UpsertBudget(rctx, userID, data)
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "Failed to save budget to database", "user_id", userID, "error", err)
			res.Warning = WarnSaveLocal
		}
	}

	if err := s.publishSyncMessage(ctx, userID, version); err != nil {
		// the pending row is picked up by the poller
		slog.ErrorContext(ctx, "Failed to publish sync message", "user_id", userID, "version", version, "error", err)
	}
	return res, nil
}

func (s *BudgetService) publishSyncMessage(ctx context.Context, userID string, version int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishBudgetSync(ctx, userID, version)
}

// UpdateMonth applies one edit to a month and saves the result. Edits for
// the same user run one at a time, so each starts from the previous one's result.
func (s *BudgetService) UpdateMonth(ctx context.Context, userID string, p core.Period, monthID string, edit core.MonthEdit) (SaveResult, error) {
	if p != core.Period1 && p != core.Period2 {
		return SaveResult{}, core.ErrInvalidPeriod
	}
	unlock := s.writes.lock(userID)
	defer unlock()

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return SaveResult{}, err
	}
	loaded, err := s.Load(ctx, userID, settings)
	if err != nil {
		return SaveResult{}, err
	}

	data := loaded.Data.Clone()
	updated, err := period.ApplyEdit(data.Months(p), monthID, edit)
	if err != nil {
		return SaveResult{}, err
	}
	if p == core.Period1 {
		data.Period1 = updated
	} else {
		data.Period2 = updated
	}

	slog.InfoContext(ctx, "Month updated",
		"user_id", userID,
		"period", p.String(),
		"month_id", monthID,
		"field", string(edit.Field))

	res, err := s.save(ctx, userID, data)
	if err == nil && res.Warning == "" {
		res.Warning = loaded.Warning
	}
	return res, err
}

// SaveCurrent loads the user's budget and saves it again, pushing it to the
// remote store and queueing a sync.
func (s *BudgetService) SaveCurrent(ctx context.Context, userID string) (SaveResult, error) {
	unlock := s.writes.lock(userID)
	defer unlock()

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return SaveResult{}, err
	}
	loaded, err := s.Load(ctx, userID, settings)
	if err != nil {
		return SaveResult{}, err
	}
	res, err := s.save(ctx, userID, loaded.Data)
	if err == nil && res.Warning == "" {
		res.Warning = loaded.Warning
	}
	return res, err
}

// Reset discards both month lists and generates fresh ones from settings.
func (s *BudgetService) Reset(ctx context.Context, userID string) (SaveResult, error) {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return SaveResult{}, err
	}
	slog.InfoContext(ctx, "Resetting budget", "user_id", userID)
	return s.Save(ctx, userID, period.GeneratePeriods(settings))
}

// ApplySettings saves settings. When the period shape changes (months per
// period, start month or start year) the month lists are regenerated and
// existing entries are discarded; other changes only affect future lists.
func (s *BudgetService) ApplySettings(ctx context.Context, userID string, next core.Settings) (core.Settings, bool, string, error) {
	prev, err := s.settings.Get(ctx, userID)
	if err != nil {
		return core.Settings{}, false, "", err
	}
	saved, warning, err := s.settings.Save(ctx, userID, next)
	if err != nil {
		return core.Settings{}, false, "", err
	}
	if !prev.ReshapesMonths(saved) {
		return saved, false, warning, nil
	}

	res, err := s.Save(ctx, userID, period.GeneratePeriods(saved))
	if err != nil {
		return saved, false, warning, err
	}
	slog.InfoContext(ctx, "Budget regenerated after settings change",
		"user_id", userID,
		"months_per_period", saved.MonthsPerPeriod,
		"start_month", saved.StartMonth,
		"start_year", saved.StartYear)
	if warning == "" {
		warning = res.Warning
	}
	return saved, true, warning, nil
}

// Dashboard loads settings and data and derives every figure shown.
func (s *BudgetService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	loaded, err := s.Load(ctx, userID, settings)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(settings, loaded, s.now()), nil
}

// BuildDashboard derives the dashboard from loaded data.
func BuildDashboard(settings core.Settings, loaded LoadResult, now time.Time) Dashboard {
	d1, d2 := period.ChainPeriods(loaded.Data.Period1, loaded.Data.Period2)
	all := append(append(make([]core.DerivedMonth, 0, len(d1)+len(d2)), d1...), d2...)

	goal := period.AggregateGoalProgress(all, settings.GoalTarget)
	current, ok := period.LocateCurrentMonth(d1, d2, now)

	return Dashboard{
		Settings:   settings,
		Data:       loaded.Data,
		Source:     loaded.Source,
		Warning:    loaded.Warning,
		Period1:    d1,
		Period2:    d2,
		Summary1:   period.SummarizePeriod(settings.Period1Name, d1),
		Summary2:   period.SummarizePeriod(settings.Period2Name, d2),
		Progress1:  progress(d1, current, ok),
		Progress2:  progress(d2, current, ok),
		Goal:       goal,
		Projection: period.ProjectCompletion(goal, now),
		GoalShares: period.SplitAcrossGoals(goal.TotalContributed, core.DefaultGoals),
		Current:    current,
		HasCurrent: ok,
		Chart1:     period.ChartSeries(d1),
		Chart2:     period.ChartSeries(d2),
	}
}

func progress(months []core.DerivedMonth, current period.CurrentMonth, ok bool) []core.MonthTargetProgress {
	out := make([]core.MonthTargetProgress, 0, len(months))
	for _, m := range months {
		out = append(out, period.TargetProgress(m, ok && current.Exact && m.ID == current.Month.ID))
	}
	return out
}

// Close closes the local store.
func (s *BudgetService) Close() error {
	if s.local == nil {
		return nil
	}
	return s.local.Close()
}
