package gormrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"questforge/internal/domain/rotation"
)

// HandoffRepo appends driver-handoff records. Rows are never updated.
type HandoffRepo struct {
	db *gorm.DB
}

func NewHandoffRepo(db *gorm.DB) HandoffRepo {
	return HandoffRepo{db: db}
}

func (r HandoffRepo) Append(ctx context.Context, handoff rotation.Handoff) error {
	metrics, err := json.Marshal(handoff.Metrics)
	if err != nil {
		return fmt.Errorf("encode handoff metrics: %w", err)
	}
	row := HandoffRecord{
		ID:      handoff.ID,
		FromID:  handoff.FromID,
		ToID:    handoff.ToID,
		PhaseID: handoff.PhaseID,
		At:      handoff.At,
		Metrics: metrics,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r HandoffRepo) List(ctx context.Context, limit int) ([]rotation.Handoff, error) {
	q := r.db.WithContext(ctx).Order("at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []HandoffRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]rotation.Handoff, 0, len(rows))
	for _, row := range rows {
		h := rotation.Handoff{
			ID:      row.ID,
			FromID:  row.FromID,
			ToID:    row.ToID,
			PhaseID: row.PhaseID,
			At:      row.At,
		}
		if len(row.Metrics) > 0 {
			if err := json.Unmarshal(row.Metrics, &h.Metrics); err != nil {
				return nil, fmt.Errorf("decode handoff %s: %w", row.ID, err)
			}
		}
		out = append(out, h)
	}
	return out, nil
}
