// Package remote defines the hosted store that mirrors each user's budget
// and settings so they follow the user across devices.
package remote

import (
	"context"
	"errors"
	"time"

	"budget/internal/core"
)

var ErrNotFound = errors.New("remote record not found")

// BudgetStore is keyed by user id; every write is an upsert on that key.
type BudgetStore interface {
	FetchBudget(ctx context.Context, userID string) (core.BudgetData, error)
	UpsertBudget(ctx context.Context, userID string, data core.BudgetData) error
	FetchSettings(ctx context.Context, userID string) (core.Settings, error)
	UpsertSettings(ctx context.Context, userID string, s core.Settings) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Timestamp returns data.UpdatedAt, or now when it is unset.
func Timestamp(data core.BudgetData, now time.Time) time.Time {
	if data.UpdatedAt.IsZero() {
		return now
	}
	return data.UpdatedAt
}
