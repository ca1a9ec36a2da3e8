package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"questforge/internal/domain/quest"
)

// Store mirrors player states to a single JSON document: one map keyed by
// player id, rewritten in full on every save (no append log). Date fields
// serialize as RFC 3339 strings through encoding/json.
type Store struct {
	mu   sync.Mutex
	path string
	// cache holds the last written document so each save can rewrite the
	// whole map without re-reading the file.
	cache map[string]*quest.PlayerState
}

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	s := &Store{path: path, cache: make(map[string]*quest.PlayerState)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Save(_ context.Context, state *quest.PlayerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Saves run outside the store lock, so two commits for one player can
	// arrive here out of order. The version decides; a stale write is a no-op.
	if held, ok := s.cache[state.PlayerID]; ok && state.Version < held.Version {
		return nil
	}
	s.cache[state.PlayerID] = state.Clone()
	return s.writeLocked()
}

func (s *Store) LoadAll(_ context.Context) (map[string]*quest.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*quest.PlayerState, len(s.cache))
	for id, state := range s.cache {
		out[id] = state.Clone()
	}
	return out, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read snapshot file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.cache); err != nil {
		return fmt.Errorf("decode snapshot file: %w", err)
	}
	return nil
}

// writeLocked rewrites the whole document atomically via temp file + rename.
func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}
