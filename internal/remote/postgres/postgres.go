// Package postgres stores budgets and settings in a hosted PostgreSQL database.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"budget/internal/core"
	"budget/internal/remote"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := runMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	slog.InfoContext(ctx, "Connected to remote PostgreSQL store")
	return &Store{pool: pool}, nil
}

func runMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run remote migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) FetchBudget(ctx context.Context, userID string) (core.BudgetData, error) {
	var p1, p2 []byte
	var updated time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT period1_months, period2_months, updated_at FROM expense_data WHERE user_id = $1`,
		userID,
	).Scan(&p1, &p2, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.BudgetData{}, remote.ErrNotFound
	}
	if err != nil {
		return core.BudgetData{}, fmt.Errorf("select expense data: %w", err)
	}

	data := core.BudgetData{UpdatedAt: updated}
	if err := json.Unmarshal(p1, &data.Period1); err != nil {
		return core.BudgetData{}, fmt.Errorf("decode period 1 months: %w", err)
	}
	if err := json.Unmarshal(p2, &data.Period2); err != nil {
		return core.BudgetData{}, fmt.Errorf("decode period 2 months: %w", err)
	}
	return data, nil
}

func (s *Store) UpsertBudget(ctx context.Context, userID string, data core.BudgetData) error {
	c := data.Clone()
	p1, err := json.Marshal(c.Period1)
	if err != nil {
		return fmt.Errorf("encode period 1 months: %w", err)
	}
	p2, err := json.Marshal(c.Period2)
	if err != nil {
		return fmt.Errorf("encode period 2 months: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO expense_data (id, user_id, period1_months, period2_months, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			period1_months = EXCLUDED.period1_months,
			period2_months = EXCLUDED.period2_months,
			updated_at = EXCLUDED.updated_at`,
		uuid.New(), userID, p1, p2, remote.Timestamp(data, time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("upsert expense data: %w", err)
	}
	return nil
}

func (s *Store) FetchSettings(ctx context.Context, userID string) (core.Settings, error) {
	var v core.Settings
	var monthsPerPeriod, startMonth, startYear int32
	var p1Salary, p2Salary, ltTarget, stTarget, fixed, goalTgt int64
	err := s.pool.QueryRow(ctx, `
		SELECT period1_name, period2_name, months_per_period, start_month, start_year,
			period1_salary, period2_salary, long_term_savings_target, short_term_savings_target,
			fixed_expenses, goal_target, goal_name, currency_symbol, currency_code
		FROM user_settings WHERE user_id = $1`, userID,
	).Scan(
		&v.Period1Name, &v.Period2Name, &monthsPerPeriod, &startMonth, &startYear,
		&p1Salary, &p2Salary, &ltTarget, &stTarget,
		&fixed, &goalTgt, &v.GoalName, &v.CurrencySymbol, &v.CurrencyCode,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Settings{}, remote.ErrNotFound
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("select user settings: %w", err)
	}
	v.MonthsPerPeriod = int(monthsPerPeriod)
	v.StartMonth = int(startMonth)
	v.StartYear = int(startYear)
	v.Period1Salary = core.Amount(p1Salary)
	v.Period2Salary = core.Amount(p2Salary)
	v.LongTermSavingsTarget = core.Amount(ltTarget)
	v.ShortTermSavingsTarget = core.Amount(stTarget)
	v.FixedExpenses = core.Amount(fixed)
	v.GoalTarget = core.Amount(goalTgt)
	return v, nil
}

func (s *Store) UpsertSettings(ctx context.Context, userID string, v core.Settings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, period1_name, period2_name, months_per_period, start_month,
			start_year, period1_salary, period2_salary, long_term_savings_target, short_term_savings_target,
			fixed_expenses, goal_target, goal_name, currency_symbol, currency_code, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		ON CONFLICT (user_id) DO UPDATE SET
			period1_name = EXCLUDED.period1_name,
			period2_name = EXCLUDED.period2_name,
			months_per_period = EXCLUDED.months_per_period,
			start_month = EXCLUDED.start_month,
			start_year = EXCLUDED.start_year,
			period1_salary = EXCLUDED.period1_salary,
			period2_salary = EXCLUDED.period2_salary,
			long_term_savings_target = EXCLUDED.long_term_savings_target,
			short_term_savings_target = EXCLUDED.short_term_savings_target,
			fixed_expenses = EXCLUDED.fixed_expenses,
			goal_target = EXCLUDED.goal_target,
			goal_name = EXCLUDED.goal_name,
			currency_symbol = EXCLUDED.currency_symbol,
			currency_code = EXCLUDED.currency_code,
			updated_at = now()`,
		userID, v.Period1Name, v.Period2Name, int32(v.MonthsPerPeriod), int32(v.StartMonth),
		int32(v.StartYear), int64(v.Period1Salary), int64(v.Period2Salary),
		int64(v.LongTermSavingsTarget), int64(v.ShortTermSavingsTarget),
		int64(v.FixedExpenses), int64(v.GoalTarget), v.GoalName, v.CurrencySymbol, v.CurrencyCode,
	)
	if err != nil {
		return fmt.Errorf("upsert user settings: %w", err)
	}
	return nil
}
