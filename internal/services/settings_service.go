package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
	"budget/internal/remote"
	"budget/internal/storage"
)

const warnSettingsSaveRemote = "Failed to save settings to database. Settings saved locally."

// SettingsService reads and writes a user's period configuration.
type SettingsService struct {
	local         *storage.SQLiteRepository
	remote        remote.BudgetStore
	remoteTimeout time.Duration
	now           func() time.Time
}

// NewSettingsService builds the service. remote may be nil.
func NewSettingsService(local *storage.SQLiteRepository, rs remote.BudgetStore, remoteTimeout time.Duration) *SettingsService {
	if remoteTimeout <= 0 {
		remoteTimeout = 10 * time.Second
	}
	return &SettingsService{local: local, remote: rs, remoteTimeout: remoteTimeout, now: time.Now}
}

// Get returns the user's settings: remote first, then local, then defaults.
// Missing fields fall back to their defaults.
func (s *SettingsService) Get(ctx context.Context, userID string) (core.Settings, error) {
	year := s.now().Year()

	if s.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		v, err := s.remote.FetchSettings(rctx, userID)
		cancel()
		switch {
		case err == nil:
			return v.WithDefaults(year), nil
		case errors.Is(err, remote.ErrNotFound):
		default:
			slog.WarnContext(ctx, "Failed to load settings from database, using local", "user_id", userID, "error", err)
		}
	}

	v, err := s.local.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.DefaultSettings(year), nil
		}
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return v.WithDefaults(year), nil
}

// Validate fills defaults and checks the result.
func (s *SettingsService) Validate(v core.Settings) (core.Settings, error) {
	v = v.WithDefaults(s.now().Year())
	if err := v.Validate(); err != nil {
		return core.Settings{}, err
	}
	return v, nil
}

// Save validates and stores settings locally, then remotely. A remote
// failure is reported as a warning.
func (s *SettingsService) Save(ctx context.Context, userID string, v core.Settings) (core.Settings, string, error) {
	v, err := s.Validate(v)
	if err != nil {
		return core.Settings{}, "", err
	}
	if err := s.local.SaveSettings(ctx, userID, v); err != nil {
		return core.Settings{}, "", fmt.Errorf("save settings: %w", err)
	}

	if s.remote == nil {
		return v, "", nil
	}
	rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	if err := s.remote.UpsertSettings(rctx, userID, v); err != nil {
		slog.WarnContext(ctx, "Failed to save settings to database", "user_id", userID, "error", err)
		return v, warnSettingsSaveRemote, nil
	}
	return v, "", nil
}
