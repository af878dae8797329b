package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/period"
	"budget/internal/remote"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// SyncWorker pushes locally saved budgets to the remote store and mirrors
// the export table into the spreadsheet.
type SyncWorker struct {
	storage       *storage.SQLiteRepository
	remote        remote.BudgetStore
	reports       sheets.ReportWriter
	batchSize     int
	maxAttempts   int
	remoteTimeout time.Duration
}

// NewSyncWorker builds a worker. remote and reports may be nil, in which case
// that leg of the sync is skipped.
func NewSyncWorker(storage *storage.SQLiteRepository, remote remote.BudgetStore, reports sheets.ReportWriter, batchSize, maxAttempts int, remoteTimeout time.Duration) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if remoteTimeout <= 0 {
		remoteTimeout = 10 * time.Second
	}
	return &SyncWorker{
		storage:       storage,
		remote:        remote,
		reports:       reports,
		batchSize:     batchSize,
		maxAttempts:   maxAttempts,
		remoteTimeout: remoteTimeout,
	}
}

// HandleSyncMessage processes a single budget sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.BudgetSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"user_id", msg.UserID,
		"version", msg.Version)
	return w.SyncBudget(ctx, msg.UserID, msg.Version)
}

// SyncBudget pushes the stored budget of userID. Requests for a version
// older than the stored one are skipped since a newer request is on its way,
// and an already synced version is not pushed twice.
func (w *SyncWorker) SyncBudget(ctx context.Context, userID string, version int64) error {
	stored, err := w.storage.GetBudget(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "No local budget to sync", "user_id", userID)
			return nil
		}
		return fmt.Errorf("get budget from storage: %w", err)
	}
	if stored.Version > version {
		slog.InfoContext(ctx, "Skipping stale sync request",
			"user_id", userID,
			"requested_version", version,
			"stored_version", stored.Version)
		return nil
	}
	if stored.SyncStatus == storage.SyncSynced {
		slog.DebugContext(ctx, "Budget already synced", "user_id", userID, "version", stored.Version)
		return nil
	}

	if err := w.push(ctx, userID, stored.Data); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, userID, stored.Version, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "user_id", userID, "error", markErr)
		}
		return err
	}

	ok, err := w.storage.MarkSynced(ctx, userID, stored.Version)
	if err != nil {
		// the push itself worked
		slog.ErrorContext(ctx, "Failed to mark as synced", "user_id", userID, "error", err)
		return nil
	}
	if !ok {
		slog.InfoContext(ctx, "Budget changed during sync, newer version stays pending",
			"user_id", userID, "version", stored.Version)
	}
	return nil
}

func (w *SyncWorker) push(ctx context.Context, userID string, data core.BudgetData) error {
	settings, err := w.storage.GetSettings(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("get settings from storage: %w", err)
	}
	settings = settings.WithDefaults(time.Now().Year())

	if w.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, w.remoteTimeout)
		defer cancel()
		if err := w.remote.UpsertBudget(rctx, userID, data); err != nil {
			return fmt.Errorf("push budget to remote: %w", err)
		}
		if err := w.remote.UpsertSettings(rctx, userID, settings); err != nil {
			return fmt.Errorf("push settings to remote: %w", err)
		}
	}

	if w.reports != nil {
		user, err := w.storage.UserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		d1, d2 := period.ChainPeriods(data.Period1, data.Period2)
		report := export.NewReport(settings, d1, d2)
		tab := w.reports.TabName(settings.StartYear, user.Email)
		if err := w.reports.WriteReport(ctx, tab, report.Table()); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	slog.InfoContext(ctx, "Budget synced",
		"user_id", userID,
		"period1_months", len(data.Period1),
		"period2_months", len(data.Period2))
	return nil
}

// ProcessPending syncs up to one batch of budgets still waiting for sync.
// It is the fallback for lost AMQP messages. Returns the number synced.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.storage.GetPendingSync(ctx, w.maxAttempts, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending budgets: %w", err)
	}

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.SyncBudget(ctx, p.UserID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync budget", "user_id", p.UserID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck drains pending budgets once when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.maxAttempts, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending budgets for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending budgets found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending budgets on startup, processing", "count", len(pending))

	ok, failed := 0, 0
	for _, p := range pending {
		if err := w.SyncBudget(ctx, p.UserID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync budget during startup", "user_id", p.UserID, "error", err)
			failed++
			continue
		}
		ok++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", ok,
		"errors", failed)
	return nil
}
