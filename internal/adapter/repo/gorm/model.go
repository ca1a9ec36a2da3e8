package gormrepo

import "time"

// PlayerSnapshot is one mirrored player state: the full aggregate as a JSON
// document plus the version for last-writer-wins diagnostics.
type PlayerSnapshot struct {
	PlayerID  string    `gorm:"primaryKey;column:player_id"`
	State     []byte    `gorm:"column:state;type:jsonb"`
	Version   int64     `gorm:"column:version"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (PlayerSnapshot) TableName() string { return "player_snapshots" }

// HandoffRecord is one append-only driver handoff row.
type HandoffRecord struct {
	ID        string    `gorm:"primaryKey;column:id"`
	FromID    string    `gorm:"column:from_id"`
	ToID      string    `gorm:"column:to_id"`
	PhaseID   string    `gorm:"column:phase_id"`
	At        time.Time `gorm:"column:at"`
	Metrics   []byte    `gorm:"column:metrics;type:jsonb"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (HandoffRecord) TableName() string { return "handoffs" }
