package quest

import "time"

type RankTier string

const (
	TierNovice     RankTier = "novice"
	TierApprentice RankTier = "apprentice"
	TierExpert     RankTier = "expert"
	TierMaster     RankTier = "master"
)

// TierForScore derives the rank tier from a score. Tiers are never stored on
// their own; every score mutation recomputes them through here.
func TierForScore(score int) RankTier {
	switch {
	case score >= 1000:
		return TierMaster
	case score >= 500:
		return TierExpert
	case score >= 100:
		return TierApprentice
	default:
		return TierNovice
	}
}

type ActivityStatus string

const (
	StatusIdle     ActivityStatus = "idle"
	StatusInQuest  ActivityStatus = "in-quest"
	StatusChatting ActivityStatus = "chatting"
)

type QuestStatus string

const (
	QuestAvailable QuestStatus = "available"
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
)

// Step is one ordered objective inside a quest template.
type Step struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Template is an immutable catalog quest. Instances are stamped out per
// player when the quest is started.
type Template struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []Step   `json:"steps"`
	RewardScore int      `json:"reward_score"`
	RewardItems []string `json:"reward_items,omitempty"`
}

// Instance is a per-player copy of a catalog quest with mutable progress.
type Instance struct {
	Template
	Status      QuestStatus     `json:"status"`
	StepsDone   map[string]bool `json:"steps_done"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type ChatRole string

const (
	RolePlayer   ChatRole = "player"
	RoleNarrator ChatRole = "narrator"
)

type ChatEntry struct {
	Role ChatRole  `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session tracks one player's engine session. Turn increases strictly with
// every applied action.
type Session struct {
	StartedAt    time.Time   `json:"started_at"`
	LastActionAt time.Time   `json:"last_action_at"`
	Turn         int64       `json:"turn"`
	Log          []ChatEntry `json:"log"`
}

// PlayerState is the aggregate owned by exactly one engine instance at a
// time. Version guards optimistic mirror writes.
type PlayerState struct {
	PlayerID    string               `json:"player_id"`
	DisplayName string               `json:"display_name"`
	Score       int                  `json:"score"`
	Tier        RankTier             `json:"tier"`
	Location    string               `json:"location"`
	Status      ActivityStatus       `json:"status"`
	ActiveQuest *Instance            `json:"active_quest,omitempty"`
	Available   map[string]*Instance `json:"available_quests"`
	Completed   []*Instance          `json:"completed_quests"`
	Inventory   map[string]int       `json:"inventory"`
	Session     Session              `json:"session"`
	Version     int64                `json:"version"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
