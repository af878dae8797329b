package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL for every table. Callers choose the connection or
// transaction it runs on.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createUser = `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u userRow) error {
	_, err := q.db.ExecContext(ctx, createUser, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	return err
}

const getUserByEmail = `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (userRow, error) {
	var u userRow
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUserByID = `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (userRow, error) {
	var u userRow
	err := q.db.QueryRowContext(ctx, getUserByID, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getSettings = `SELECT user_id, period1_name, period2_name, months_per_period, start_month, start_year,
	period1_salary, period2_salary, long_term_savings_target, short_term_savings_target, fixed_expenses,
	goal_target, goal_name, currency_symbol, currency_code, updated_at
FROM user_settings WHERE user_id = ?`

func (q *Queries) GetSettings(ctx context.Context, userID string) (settingsRow, error) {
	var s settingsRow
	err := q.db.QueryRowContext(ctx, getSettings, userID).Scan(
		&s.UserID, &s.Period1Name, &s.Period2Name, &s.MonthsPerPeriod, &s.StartMonth, &s.StartYear,
		&s.Period1Salary, &s.Period2Salary, &s.LongTermSavingsTarget, &s.ShortTermSavingsTarget, &s.FixedExpenses,
		&s.GoalTarget, &s.GoalName, &s.CurrencySymbol, &s.CurrencyCode, &s.UpdatedAt,
	)
	return s, err
}

const upsertSettings = `INSERT INTO user_settings (user_id, period1_name, period2_name, months_per_period, start_month,
	start_year, period1_salary, period2_salary, long_term_savings_target, short_term_savings_target, fixed_expenses,
	goal_target, goal_name, currency_symbol, currency_code, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
	period1_name = excluded.period1_name,
	period2_name = excluded.period2_name,
	months_per_period = excluded.months_per_period,
	start_month = excluded.start_month,
	start_year = excluded.start_year,
	period1_salary = excluded.period1_salary,
	period2_salary = excluded.period2_salary,
	long_term_savings_target = excluded.long_term_savings_target,
	short_term_savings_target = excluded.short_term_savings_target,
	fixed_expenses = excluded.fixed_expenses,
	goal_target = excluded.goal_target,
	goal_name = excluded.goal_name,
	currency_symbol = excluded.currency_symbol,
	currency_code = excluded.currency_code,
	updated_at = excluded.updated_at`

func (q *Queries) UpsertSettings(ctx context.Context, s settingsRow) error {
	_, err := q.db.ExecContext(ctx, upsertSettings,
		s.UserID, s.Period1Name, s.Period2Name, s.MonthsPerPeriod, s.StartMonth,
		s.StartYear, s.Period1Salary, s.Period2Salary, s.LongTermSavingsTarget, s.ShortTermSavingsTarget, s.FixedExpenses,
		s.GoalTarget, s.GoalName, s.CurrencySymbol, s.CurrencyCode, s.UpdatedAt,
	)
	return err
}

const getBudget = `SELECT user_id, period1_months, period2_months, version, sync_status, sync_attempts,
	last_sync_error, updated_at, synced_at
FROM budget_data WHERE user_id = ?`

func (q *Queries) GetBudget(ctx context.Context, userID string) (budgetRow, error) {
	var b budgetRow
	err := q.db.QueryRowContext(ctx, getBudget, userID).Scan(
		&b.UserID, &b.Period1Months, &b.Period2Months, &b.Version, &b.SyncStatus, &b.SyncAttempts,
		&b.LastSyncError, &b.UpdatedAt, &b.SyncedAt,
	)
	return b, err
}

const upsertBudget = `INSERT INTO budget_data (user_id, period1_months, period2_months, version, sync_status, sync_attempts, updated_at)
VALUES (?, ?, ?, 1, 'pending', 0, ?)
ON CONFLICT (user_id) DO UPDATE SET
	period1_months = excluded.period1_months,
	period2_months = excluded.period2_months,
	version = budget_data.version + 1,
	sync_status = 'pending',
	sync_attempts = 0,
	last_sync_error = NULL,
	updated_at = excluded.updated_at
RETURNING version`

func (q *Queries) UpsertBudget(ctx context.Context, userID, period1, period2 string, at time.Time) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, upsertBudget, userID, period1, period2, at).Scan(&version)
	return version, err
}

const listPendingSync = `SELECT user_id, version, updated_at FROM budget_data
WHERE sync_status = 'pending' OR (sync_status = 'error' AND sync_attempts < ?)
ORDER BY updated_at ASC
LIMIT ?`

type pendingRow struct {
	UserID    string
	Version   int64
	UpdatedAt time.Time
}

func (q *Queries) ListPendingSync(ctx context.Context, maxAttempts, limit int64) ([]pendingRow, error) {
	rows, err := q.db.QueryContext(ctx, listPendingSync, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []pendingRow
	for rows.Next() {
		var p pendingRow
		if err := rows.Scan(&p.UserID, &p.Version, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const markSynced = `UPDATE budget_data SET sync_status = 'synced', synced_at = ?, last_sync_error = NULL
WHERE user_id = ? AND version = ?`

func (q *Queries) MarkSynced(ctx context.Context, userID string, version int64, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, at, userID, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSyncError = `UPDATE budget_data SET sync_status = 'error', sync_attempts = sync_attempts + 1, last_sync_error = ?
WHERE user_id = ? AND version = ?`

func (q *Queries) MarkSyncError(ctx context.Context, userID string, version int64, msg string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSyncError, msg, userID, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countBySyncStatus = `SELECT sync_status, COUNT(*) FROM budget_data GROUP BY sync_status`

func (q *Queries) CountBySyncStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countBySyncStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

const insertRevokedToken = `INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
ON CONFLICT (jti) DO UPDATE SET expires_at = MAX(revoked_tokens.expires_at, excluded.expires_at)`

func (q *Queries) InsertRevokedToken(ctx context.Context, jti string, expiresAt int64) error {
	_, err := q.db.ExecContext(ctx, insertRevokedToken, jti, expiresAt)
	return err
}

const isTokenRevoked = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ? AND expires_at >= ?)`

func (q *Queries) IsTokenRevoked(ctx context.Context, jti string, now int64) (bool, error) {
	var revoked bool
	err := q.db.QueryRowContext(ctx, isTokenRevoked, jti, now).Scan(&revoked)
	return revoked, err
}

const deleteExpiredRevokedTokens = `DELETE FROM revoked_tokens WHERE expires_at < ?`

func (q *Queries) DeleteExpiredRevokedTokens(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredRevokedTokens, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
