package gormrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"questforge/internal/domain/quest"
)

// SnapshotRepo mirrors player states to Postgres, one row per player. The
// in-memory store stays authoritative; among racing writes for one player the
// highest version wins.
type SnapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepo(db *gorm.DB) SnapshotRepo {
	return SnapshotRepo{db: db}
}

func (r SnapshotRepo) Save(ctx context.Context, state *quest.PlayerState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode player state: %w", err)
	}
	row := PlayerSnapshot{
		PlayerID:  state.PlayerID,
		State:     doc,
		Version:   state.Version,
		UpdatedAt: state.UpdatedAt,
	}
	// Mirror writes race outside the store lock; the version column keeps a
	// late stale write from clobbering a newer row.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "version", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "player_snapshots.version <= excluded.version"},
			}},
		}).
		Create(&row).Error
}

func (r SnapshotRepo) LoadAll(ctx context.Context) (map[string]*quest.PlayerState, error) {
	var rows []PlayerSnapshot
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]*quest.PlayerState, len(rows))
	for _, row := range rows {
		var state quest.PlayerState
		if err := json.Unmarshal(row.State, &state); err != nil {
			return nil, fmt.Errorf("decode player %s: %w", row.PlayerID, err)
		}
		out[row.PlayerID] = &state
	}
	return out, nil
}
