package ports

import (
	"context"

	"questforge/internal/domain/quest"
	"questforge/internal/domain/rotation"
)

// SnapshotStore mirrors the in-memory player states to durable storage. The
// in-memory store stays authoritative; mirror writes are best-effort and a
// failed write never rolls back the committed mutation.
type SnapshotStore interface {
	Save(ctx context.Context, state *quest.PlayerState) error
	LoadAll(ctx context.Context) (map[string]*quest.PlayerState, error)
}

// HandoffLog appends driver-handoff records. Append-only.
type HandoffLog interface {
	Append(ctx context.Context, handoff rotation.Handoff) error
	List(ctx context.Context, limit int) ([]rotation.Handoff, error)
}
