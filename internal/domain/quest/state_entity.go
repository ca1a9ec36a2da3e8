package quest

import (
	"errors"
	"time"
)

var (
	ErrNoActiveQuest = errors.New("no active quest")
	ErrQuestActive   = errors.New("another quest is already active")
	ErrUnknownQuest  = errors.New("quest not in available set")
	ErrUnknownStep   = errors.New("step not part of active quest")
	ErrNegativeScore = errors.New("score must be non-negative")
	ErrItemNotHeld   = errors.New("item not in inventory")
	ErrEmptyLocation = errors.New("location must not be empty")
)

// NewPlayerState seeds a fresh aggregate with the catalog as available
// quests. Called on first access; never emits events.
func NewPlayerState(playerID, displayName string, catalog []Template, now time.Time) *PlayerState {
	available := make(map[string]*Instance, len(catalog))
	for _, tpl := range catalog {
		available[tpl.ID] = &Instance{
			Template:  tpl,
			Status:    QuestAvailable,
			StepsDone: map[string]bool{},
		}
	}
	if displayName == "" {
		displayName = playerID
	}
	return &PlayerState{
		PlayerID:    playerID,
		DisplayName: displayName,
		Tier:        TierForScore(0),
		Location:    "tavern",
		Status:      StatusIdle,
		Available:   available,
		Completed:   []*Instance{},
		Inventory:   map[string]int{},
		Session: Session{
			StartedAt:    now,
			LastActionAt: now,
			Log:          []ChatEntry{},
		},
		UpdatedAt: now,
	}
}

// SetScore replaces the score and recomputes the tier. Returns the previous
// tier so callers can detect a tier change.
func (s *PlayerState) SetScore(score int) (RankTier, error) {
	if score < 0 {
		return s.Tier, ErrNegativeScore
	}
	prev := s.Tier
	s.Score = score
	s.Tier = TierForScore(score)
	return prev, nil
}

// AddScore increments the score, clamping at zero, and recomputes the tier.
func (s *PlayerState) AddScore(delta int) RankTier {
	prev := s.Tier
	s.Score += delta
	if s.Score < 0 {
		s.Score = 0
	}
	s.Tier = TierForScore(s.Score)
	return prev
}

func (s *PlayerState) AddItem(item string, amount int) {
	if amount <= 0 || item == "" {
		return
	}
	if s.Inventory == nil {
		s.Inventory = map[string]int{}
	}
	s.Inventory[item] += amount
}

func (s *PlayerState) ConsumeItem(item string) error {
	count, ok := s.Inventory[item]
	if !ok || count <= 0 {
		return ErrItemNotHeld
	}
	if count == 1 {
		delete(s.Inventory, item)
	} else {
		s.Inventory[item] = count - 1
	}
	return nil
}

// StartQuest moves a quest from the available set to active. A player holds
// at most one active quest.
func (s *PlayerState) StartQuest(questID string, now time.Time) (*Instance, error) {
	if s.ActiveQuest != nil {
		return nil, ErrQuestActive
	}
	inst, ok := s.Available[questID]
	if !ok {
		return nil, ErrUnknownQuest
	}
	delete(s.Available, questID)
	inst.Status = QuestActive
	inst.StartedAt = &now
	s.ActiveQuest = inst
	s.Status = StatusInQuest
	return inst, nil
}

// CompleteStep marks a step of the active quest done. Re-completing an
// already-done step reports alreadyDone and mutates nothing.
func (s *PlayerState) CompleteStep(stepID string) (alreadyDone bool, err error) {
	if s.ActiveQuest == nil {
		return false, ErrNoActiveQuest
	}
	found := false
	for _, step := range s.ActiveQuest.Steps {
		if step.ID == stepID {
			found = true
			break
		}
	}
	if !found {
		return false, ErrUnknownStep
	}
	if s.ActiveQuest.StepsDone[stepID] {
		return true, nil
	}
	s.ActiveQuest.StepsDone[stepID] = true
	return false, nil
}

// CompleteQuest finishes the active quest: grants the reward exactly once,
// retires the instance to the completed list and clears the active slot.
// Returns the completed instance and the tier before the reward was applied.
func (s *PlayerState) CompleteQuest(now time.Time) (*Instance, RankTier, error) {
	if s.ActiveQuest == nil {
		return nil, s.Tier, ErrNoActiveQuest
	}
	inst := s.ActiveQuest
	inst.Status = QuestCompleted
	inst.CompletedAt = &now
	prevTier := s.AddScore(inst.RewardScore)
	for _, item := range inst.RewardItems {
		s.AddItem(item, 1)
	}
	s.Completed = append(s.Completed, inst)
	s.ActiveQuest = nil
	s.Status = StatusIdle
	return inst, prevTier, nil
}

func (s *PlayerState) ChangeLocation(location string) error {
	if location == "" {
		return ErrEmptyLocation
	}
	s.Location = location
	return nil
}

func (s *PlayerState) AppendChat(role ChatRole, text string, now time.Time) {
	s.Session.Log = append(s.Session.Log, ChatEntry{Role: role, Text: text, At: now})
}

// BeginChat records the player's line and marks them chatting while the
// narrator exchange is in flight.
func (s *PlayerState) BeginChat(text string, now time.Time) {
	s.Status = StatusChatting
	s.AppendChat(RolePlayer, text, now)
}

// EndChat records the narrator's reply and returns the player to their
// resting status.
func (s *PlayerState) EndChat(text string, now time.Time) {
	s.AppendChat(RoleNarrator, text, now)
	if s.ActiveQuest != nil {
		s.Status = StatusInQuest
	} else {
		s.Status = StatusIdle
	}
}

// Touch advances the session after a successful mutation.
func (s *PlayerState) Touch(now time.Time) {
	s.Session.Turn++
	s.Session.LastActionAt = now
	s.UpdatedAt = now
}

// Clone deep-copies the aggregate so snapshots handed to callers never alias
// the live state.
func (s *PlayerState) Clone() *PlayerState {
	out := *s
	out.Available = make(map[string]*Instance, len(s.Available))
	for id, inst := range s.Available {
		out.Available[id] = inst.clone()
	}
	out.Completed = make([]*Instance, len(s.Completed))
	for i, inst := range s.Completed {
		out.Completed[i] = inst.clone()
	}
	if s.ActiveQuest != nil {
		out.ActiveQuest = s.ActiveQuest.clone()
	}
	out.Inventory = make(map[string]int, len(s.Inventory))
	for k, v := range s.Inventory {
		out.Inventory[k] = v
	}
	out.Session.Log = make([]ChatEntry, len(s.Session.Log))
	copy(out.Session.Log, s.Session.Log)
	return &out
}

func (q *Instance) clone() *Instance {
	out := *q
	out.StepsDone = make(map[string]bool, len(q.StepsDone))
	for k, v := range q.StepsDone {
		out.StepsDone[k] = v
	}
	return &out
}

// StepsRemaining counts steps not yet done.
func (q *Instance) StepsRemaining() int {
	remaining := 0
	for _, step := range q.Steps {
		if !q.StepsDone[step.ID] {
			remaining++
		}
	}
	return remaining
}
