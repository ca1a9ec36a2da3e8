package memory

import (
	"context"
	"sync"

	"questforge/internal/domain/quest"
	"questforge/internal/domain/rotation"
)

// Store is the in-memory snapshot mirror and handoff log used by tests and
// dependency-free local runs.
type Store struct {
	mu       sync.RWMutex
	states   map[string]*quest.PlayerState
	handoffs []rotation.Handoff
}

func NewStore() *Store {
	return &Store{states: make(map[string]*quest.PlayerState)}
}

func (s *Store) Save(_ context.Context, state *quest.PlayerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Saves run outside the store lock, so two commits for one player can
	// arrive here out of order. The version decides; a stale write is a no-op.
	if held, ok := s.states[state.PlayerID]; ok && state.Version < held.Version {
		return nil
	}
	s.states[state.PlayerID] = state.Clone()
	return nil
}

func (s *Store) LoadAll(_ context.Context) (map[string]*quest.PlayerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*quest.PlayerState, len(s.states))
	for id, state := range s.states {
		out[id] = state.Clone()
	}
	return out, nil
}

func (s *Store) Append(_ context.Context, handoff rotation.Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handoffs = append(s.handoffs, handoff)
	return nil
}

// List returns the newest handoffs first, matching the database adapter's
// ordering.
func (s *Store) List(_ context.Context, limit int) ([]rotation.Handoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.handoffs) {
		limit = len(s.handoffs)
	}
	out := make([]rotation.Handoff, 0, limit)
	for i := len(s.handoffs) - 1; i >= len(s.handoffs)-limit; i-- {
		out = append(out, s.handoffs[i])
	}
	return out, nil
}
