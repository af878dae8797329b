// Package memory is an in-process remote store used when no hosted database
// is configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/remote"
)

type Store struct {
	mu       sync.RWMutex
	budgets  map[string]core.BudgetData
	settings map[string]core.Settings

	// FailWith, when set, is returned from every call. Tests use it to
	// simulate an unreachable database.
	FailWith error
}

func NewStore() *Store {
	return &Store{
		budgets:  make(map[string]core.BudgetData),
		settings: make(map[string]core.Settings),
	}
}

func (s *Store) FetchBudget(_ context.Context, userID string) (core.BudgetData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return core.BudgetData{}, s.FailWith
	}
	b, ok := s.budgets[userID]
	if !ok {
		return core.BudgetData{}, remote.ErrNotFound
	}
	return b.Clone(), nil
}

func (s *Store) UpsertBudget(_ context.Context, userID string, data core.BudgetData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	c := data.Clone()
	c.UpdatedAt = remote.Timestamp(data, time.Now().UTC())
	s.budgets[userID] = c
	return nil
}

func (s *Store) FetchSettings(_ context.Context, userID string) (core.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return core.Settings{}, s.FailWith
	}
	v, ok := s.settings[userID]
	if !ok {
		return core.Settings{}, remote.ErrNotFound
	}
	return v, nil
}

func (s *Store) UpsertSettings(_ context.Context, userID string, v core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.settings[userID] = v
	return nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.FailWith
}

// SetFailure swaps the injected failure under the lock.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	s.FailWith = err
	s.mu.Unlock()
}
