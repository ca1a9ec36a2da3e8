package ports

import "context"

// Intent is an action the narrator inferred from free-form chat, e.g. "I
// finished finding allies" mapping to a COMPLETE_QUEST_STEP.
type Intent struct {
	Action  string
	QuestID string
	StepID  string
}

// NarratorReply carries the generated reply plus any derived intents.
type NarratorReply struct {
	Text    string
	Intents []Intent
}

// Narrator is the external text-completion collaborator. Failures are
// recovered by the chat flow with a templated fallback; they never fail the
// player's action.
type Narrator interface {
	Reply(ctx context.Context, playerID, message string, nc NarratorContext) (NarratorReply, error)
}

// NarratorContext summarizes the player's state for prompt building.
type NarratorContext struct {
	DisplayName string
	Tier        string
	Location    string
	ActiveQuest string
	OpenSteps   []string
}
