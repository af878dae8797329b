package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budget/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// StoredBudget is a budget together with its local bookkeeping.
type StoredBudget struct {
	Data       core.BudgetData
	Version    int64
	SyncStatus string
}

// PendingSync identifies a budget version that still has to reach the remote store.
type PendingSync struct {
	UserID    string
	Version   int64
	UpdatedAt time.Time
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser stores a new account. Emails are unique regardless of case.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	err := r.queries.CreateUser(ctx, userRow{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, notFound(err, "get user by email")
	}
	return core.User(row), nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		return core.User{}, notFound(err, "get user by id")
	}
	return core.User(row), nil
}

// GetSettings returns the stored settings as saved. Filling defaults is up to the caller.
func (r *SQLiteRepository) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	row, err := r.queries.GetSettings(ctx, userID)
	if err != nil {
		return core.Settings{}, notFound(err, "get settings")
	}
	return core.Settings{
		Period1Name:            row.Period1Name,
		Period2Name:            row.Period2Name,
		MonthsPerPeriod:        int(row.MonthsPerPeriod),
		StartMonth:             int(row.StartMonth),
		StartYear:              int(row.StartYear),
		Period1Salary:          core.Amount(row.Period1Salary),
		Period2Salary:          core.Amount(row.Period2Salary),
		LongTermSavingsTarget:  core.Amount(row.LongTermSavingsTarget),
		ShortTermSavingsTarget: core.Amount(row.ShortTermSavingsTarget),
		FixedExpenses:          core.Amount(row.FixedExpenses),
		GoalTarget:             core.Amount(row.GoalTarget),
		GoalName:               row.GoalName,
		CurrencySymbol:         row.CurrencySymbol,
		CurrencyCode:           row.CurrencyCode,
	}, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, userID string, s core.Settings) error {
	err := r.queries.UpsertSettings(ctx, settingsRow{
		UserID:                 userID,
		Period1Name:            s.Period1Name,
		Period2Name:            s.Period2Name,
		MonthsPerPeriod:        int64(s.MonthsPerPeriod),
		StartMonth:             int64(s.StartMonth),
		StartYear:              int64(s.StartYear),
		Period1Salary:          int64(s.Period1Salary),
		Period2Salary:          int64(s.Period2Salary),
		LongTermSavingsTarget:  int64(s.LongTermSavingsTarget),
		ShortTermSavingsTarget: int64(s.ShortTermSavingsTarget),
		FixedExpenses:          int64(s.FixedExpenses),
		GoalTarget:             int64(s.GoalTarget),
		GoalName:               s.GoalName,
		CurrencySymbol:         s.CurrencySymbol,
		CurrencyCode:           s.CurrencyCode,
		UpdatedAt:              r.now(),
	})
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID string) (StoredBudget, error) {
	row, err := r.queries.GetBudget(ctx, userID)
	if err != nil {
		return StoredBudget{}, notFound(err, "get budget")
	}

	data := core.BudgetData{UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal([]byte(row.Period1Months), &data.Period1); err != nil {
		return StoredBudget{}, fmt.Errorf("decode period 1 months: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Period2Months), &data.Period2); err != nil {
		return StoredBudget{}, fmt.Errorf("decode period 2 months: %w", err)
	}
	return StoredBudget{Data: data, Version: row.Version, SyncStatus: row.SyncStatus}, nil
}

// SaveBudget writes both periods, bumps the version and queues the row for sync.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, userID string, data core.BudgetData) (int64, error) {
	p1, err := marshalMonths(data.Period1)
	if err != nil {
		return 0, fmt.Errorf("encode period 1 months: %w", err)
	}
	p2, err := marshalMonths(data.Period2)
	if err != nil {
		return 0, fmt.Errorf("encode period 2 months: %w", err)
	}

	at := data.UpdatedAt
	if at.IsZero() {
		at = r.now()
	}
	version, err := r.queries.UpsertBudget(ctx, userID, p1, p2, at)
	if err != nil {
		return 0, fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"user_id", userID,
		"version", version,
		"period1_months", len(data.Period1),
		"period2_months", len(data.Period2))
	return version, nil
}

// GetPendingSync lists budgets waiting for sync, oldest first. Rows that
// failed maxAttempts times are left alone.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, maxAttempts, limit int) ([]PendingSync, error) {
	rows, err := r.queries.ListPendingSync(ctx, int64(maxAttempts), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	out := make([]PendingSync, len(rows))
	for i, p := range rows {
		out[i] = PendingSync(p)
	}
	return out, nil
}

// MarkSynced flags the given version as synced. It reports false when the
// row has moved on to a newer version in the meantime.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, userID string, version int64) (bool, error) {
	n, err := r.queries.MarkSynced(ctx, userID, version, r.now())
	if err != nil {
		return false, fmt.Errorf("mark budget synced: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Budget marked as synced", "user_id", userID, "version", version)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, userID string, version int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := r.queries.MarkSyncError(ctx, userID, version, msg); err != nil {
		return fmt.Errorf("mark budget sync error: %w", err)
	}
	slog.WarnContext(ctx, "Budget marked with sync error", "user_id", userID, "version", version, "error", msg)
	return nil
}

// RevokeToken denies the token id jti until expiresAt.
func (r *SQLiteRepository) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := r.queries.InsertRevokedToken(ctx, jti, expiresAt.Unix()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether jti was revoked and its revocation has not run out.
func (r *SQLiteRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := r.queries.IsTokenRevoked(ctx, jti, r.now().Unix())
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// PruneRevokedTokens drops revocations of tokens that have expired anyway.
func (r *SQLiteRepository) PruneRevokedTokens(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteExpiredRevokedTokens(ctx, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune revoked tokens: %w", err)
	}
	return n, nil
}

// SyncStats counts budgets by sync status.
func (r *SQLiteRepository) SyncStats(ctx context.Context) (map[string]int64, error) {
	stats, err := r.queries.CountBySyncStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sync status: %w", err)
	}
	return stats, nil
}

func marshalMonths(months []core.MonthRecord) (string, error) {
	if months == nil {
		months = []core.MonthRecord{}
	}
	b, err := json.Marshal(months)
	return string(b), err
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
