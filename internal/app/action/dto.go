package action

import "questforge/internal/domain/quest"

type Type string

const (
	TypeSetScore          Type = "SET_SCORE"
	TypeStartQuest        Type = "START_QUEST"
	TypeCompleteQuestStep Type = "COMPLETE_QUEST_STEP"
	TypeCompleteQuest     Type = "COMPLETE_QUEST"
	TypeChat              Type = "CHAT"
	TypeChangeLocation    Type = "CHANGE_LOCATION"
	TypeUseItem           Type = "USE_ITEM"
)

type SetScorePayload struct {
	Score int `json:"score"`
}

type StartQuestPayload struct {
	QuestID string `json:"quest_id"`
}

type CompleteStepPayload struct {
	StepID string `json:"step_id"`
}

type ChatPayload struct {
	Message string `json:"message"`
}

type ChangeLocationPayload struct {
	Location string `json:"location"`
}

type UseItemPayload struct {
	Item string `json:"item"`
}

// Request is a closed tagged union: Type selects exactly one payload field,
// checked before any state lookup. COMPLETE_QUEST carries no payload.
type Request struct {
	PlayerID       string                 `json:"player_id"`
	Type           Type                   `json:"type"`
	SetScore       *SetScorePayload       `json:"set_score,omitempty"`
	StartQuest     *StartQuestPayload     `json:"start_quest,omitempty"`
	CompleteStep   *CompleteStepPayload   `json:"complete_step,omitempty"`
	Chat           *ChatPayload           `json:"chat,omitempty"`
	ChangeLocation *ChangeLocationPayload `json:"change_location,omitempty"`
	UseItem        *UseItemPayload        `json:"use_item,omitempty"`

	depth int // chat intent recursion depth
}

type Response struct {
	State  *quest.PlayerState  `json:"state"`
	Events []quest.DomainEvent `json:"events,omitempty"`
	Reply  string              `json:"reply,omitempty"`
}
