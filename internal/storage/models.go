package storage

import (
	"database/sql"
	"time"
)

// Sync states of a budget_data row.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type userRow struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type settingsRow struct {
	UserID                 string
	Period1Name            string
	Period2Name            string
	MonthsPerPeriod        int64
	StartMonth             int64
	StartYear              int64
	Period1Salary          int64
	Period2Salary          int64
	LongTermSavingsTarget  int64
	ShortTermSavingsTarget int64
	FixedExpenses          int64
	GoalTarget             int64
	GoalName               string
	CurrencySymbol         string
	CurrencyCode           string
	UpdatedAt              time.Time
}

type budgetRow struct {
	UserID        string
	Period1Months string
	Period2Months string
	Version       int64
	SyncStatus    string
	SyncAttempts  int64
	LastSyncError sql.NullString
	UpdatedAt     time.Time
	SyncedAt      sql.NullTime
}
