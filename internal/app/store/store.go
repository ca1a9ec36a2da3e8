package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"questforge/internal/app/ports"
	"questforge/internal/domain/quest"
)

// Store owns the authoritative in-memory copy of every player state held by
// this instance. There is no cross-instance mutation path; peers only learn
// about changes through published events. Mutations run under the store
// lock, which also gives each player a strictly increasing turn counter.
type Store struct {
	mu      sync.Mutex
	states  map[string]*quest.PlayerState
	catalog []quest.Template
	mirror  ports.SnapshotStore
	log     zerolog.Logger
	now     func() time.Time
}

func New(catalog []quest.Template, mirror ports.SnapshotStore, log zerolog.Logger) *Store {
	return &Store{
		states:  make(map[string]*quest.PlayerState),
		catalog: catalog,
		mirror:  mirror,
		log:     log,
		now:     time.Now,
	}
}

// WithClock overrides the store clock. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Warm loads mirrored states into memory at boot. Missing or unreadable
// mirrors are not fatal; the store just starts cold.
func (s *Store) Warm(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	loaded, err := s.mirror.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, state := range loaded {
		s.states[id] = state
	}
	return nil
}

// Snapshot returns a deep copy of the player's state, lazily creating a
// default one on first access.
func (s *Store) Snapshot(ctx context.Context, playerID string) *quest.PlayerState {
	s.mu.Lock()
	state := s.getOrCreateLocked(playerID)
	out := state.Clone()
	s.mu.Unlock()
	return out
}

// Apply runs fn against the live state under the store lock. On success the
// session is touched, the version bumped and the state mirrored; mirror
// failures are logged and swallowed so the committed mutation stands. On
// error nothing is mutated beyond what fn itself did, so fn must not touch
// state before its last failure point.
func (s *Store) Apply(ctx context.Context, playerID string, fn func(state *quest.PlayerState) error) error {
	now := s.now()
	s.mu.Lock()
	state := s.getOrCreateLocked(playerID)
	if err := fn(state); err != nil {
		s.mu.Unlock()
		return err
	}
	state.Touch(now)
	state.Version++
	mirrorCopy := state.Clone()
	s.mu.Unlock()

	if s.mirror != nil {
		if err := s.mirror.Save(ctx, mirrorCopy); err != nil {
			s.log.Error().Err(err).Str("player_id", playerID).Msg("snapshot mirror write failed")
		}
	}
	return nil
}

// Players lists the ids currently held in memory.
func (s *Store) Players() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.states))
	for id := range s.states {
		out = append(out, id)
	}
	return out
}

func (s *Store) getOrCreateLocked(playerID string) *quest.PlayerState {
	if state, ok := s.states[playerID]; ok {
		return state
	}
	state := quest.NewPlayerState(playerID, "", s.catalog, s.now())
	s.states[playerID] = state
	return state
}
