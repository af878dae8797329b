package memory

import (
	"context"
	"fmt"
	"sync"
)

// Store keeps reports in memory, keyed by tab name.
type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]string
	writes int
}

func New() *Store {
	return &Store{tabs: make(map[string][][]string)}
}

// TabName returns "<year> <label>".
func (s *Store) TabName(year int, label string) string {
	return fmt.Sprintf("%d %s", year, label)
}

func (s *Store) WriteReport(_ context.Context, tab string, table [][]string) error {
	if tab == "" {
		return fmt.Errorf("empty tab name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = copyTable(table)
	s.writes++
	return nil
}

func (s *Store) ReadReport(_ context.Context, tab string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[tab]
	if !ok {
		return nil, fmt.Errorf("tab %q not found", tab)
	}
	return copyTable(t), nil
}

// Writes returns how many reports were written so far.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func copyTable(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
