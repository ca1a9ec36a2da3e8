package action

import (
	"time"

	"questforge/internal/domain/quest"
)

func applySetScore(state *quest.PlayerState, score int, now time.Time) ([]quest.DomainEvent, error) {
	prevTier, err := state.SetScore(score)
	if err != nil {
		return nil, mapDomainErr(err)
	}
	events := []quest.DomainEvent{
		quest.NewEvent(quest.EventScoreChanged, state.PlayerID, map[string]any{
			"score": state.Score,
		}, now),
	}
	if state.Tier != prevTier {
		events = append(events, tierEvent(state, prevTier, now))
	}
	return events, nil
}

func applyStartQuest(state *quest.PlayerState, questID string, now time.Time) ([]quest.DomainEvent, error) {
	inst, err := state.StartQuest(questID, now)
	if err != nil {
		return nil, mapDomainErr(err)
	}
	return []quest.DomainEvent{
		quest.NewEvent(quest.EventQuestStarted, state.PlayerID, map[string]any{
			"quest_id": inst.ID,
			"title":    inst.Title,
			"steps":    len(inst.Steps),
		}, now),
	}, nil
}

func applyCompleteStep(state *quest.PlayerState, stepID string, now time.Time) ([]quest.DomainEvent, error) {
	alreadyDone, err := state.CompleteStep(stepID)
	if err != nil {
		return nil, mapDomainErr(err)
	}
	if alreadyDone {
		// Idempotent no-op: success with nothing new to replicate.
		return nil, nil
	}
	return []quest.DomainEvent{
		quest.NewEvent(quest.EventStepCompleted, state.PlayerID, map[string]any{
			"quest_id":  state.ActiveQuest.ID,
			"step_id":   stepID,
			"remaining": state.ActiveQuest.StepsRemaining(),
		}, now),
	}, nil
}

func applyCompleteQuest(state *quest.PlayerState, now time.Time) ([]quest.DomainEvent, error) {
	inst, prevTier, err := state.CompleteQuest(now)
	if err != nil {
		return nil, mapDomainErr(err)
	}
	events := []quest.DomainEvent{
		quest.NewEvent(quest.EventQuestCompleted, state.PlayerID, map[string]any{
			"quest_id":     inst.ID,
			"reward_score": inst.RewardScore,
			"reward_items": inst.RewardItems,
		}, now),
		quest.NewEvent(quest.EventScoreChanged, state.PlayerID, map[string]any{
			"score": state.Score,
		}, now),
	}
	if state.Tier != prevTier {
		events = append(events, tierEvent(state, prevTier, now))
	}
	return events, nil
}

func applyChangeLocation(state *quest.PlayerState, location string, now time.Time) ([]quest.DomainEvent, error) {
	if err := state.ChangeLocation(location); err != nil {
		return nil, mapDomainErr(err)
	}
	return []quest.DomainEvent{
		quest.NewEvent(quest.EventLocationChanged, state.PlayerID, map[string]any{
			"location": location,
		}, now),
	}, nil
}

func applyUseItem(state *quest.PlayerState, item string, now time.Time) ([]quest.DomainEvent, error) {
	if err := state.ConsumeItem(item); err != nil {
		return nil, mapDomainErr(err)
	}
	return []quest.DomainEvent{
		quest.NewEvent(quest.EventInventoryChanged, state.PlayerID, map[string]any{
			"item":      item,
			"remaining": state.Inventory[item],
		}, now),
	}, nil
}

func tierEvent(state *quest.PlayerState, prevTier quest.RankTier, now time.Time) quest.DomainEvent {
	return quest.NewEvent(quest.EventLevelChanged, state.PlayerID, map[string]any{
		"from": string(prevTier),
		"to":   string(state.Tier),
	}, now)
}
