package action

import (
	"context"
	"fmt"

	"questforge/internal/app/ports"
	"questforge/internal/domain/quest"
)

// executeChat is the one suspending action: the narrator call happens outside
// the store lock so other players keep mutating while we wait.
func (u UseCase) executeChat(ctx context.Context, req Request) (Response, error) {
	now := u.now()

	// The player's line commits before the suspension and the state reads
	// chatting until the reply lands.
	err := u.Store.Apply(ctx, req.PlayerID, func(state *quest.PlayerState) error {
		state.BeginChat(req.Chat.Message, now)
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	snapshot := u.Store.Snapshot(ctx, req.PlayerID)

	reply := u.narrate(ctx, req.PlayerID, req.Chat.Message, snapshot)

	// Inferred intents re-enter the processor as first-class actions. Their
	// failures (e.g. "complete a step" with no active quest) never fail the
	// chat itself.
	if req.depth < maxIntentDepth {
		for _, intent := range reply.Intents {
			intentReq, ok := requestFromIntent(req.PlayerID, intent, req.depth+1)
			if !ok {
				continue
			}
			if _, err := u.Execute(ctx, intentReq); err != nil {
				continue
			}
		}
	}

	var events []quest.DomainEvent
	err = u.Store.Apply(ctx, req.PlayerID, func(state *quest.PlayerState) error {
		state.EndChat(reply.Text, now)
		events = []quest.DomainEvent{
			quest.NewEvent(quest.EventChatExchanged, state.PlayerID, map[string]any{
				"message": req.Chat.Message,
				"reply":   reply.Text,
			}, now),
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return Response{
		State:  u.Store.Snapshot(ctx, req.PlayerID),
		Events: events,
		Reply:  reply.Text,
	}, nil
}

func (u UseCase) narrate(ctx context.Context, playerID, message string, snapshot *quest.PlayerState) ports.NarratorReply {
	if u.Narrator == nil {
		return ports.NarratorReply{Text: fallbackReply(snapshot)}
	}
	reply, err := u.Narrator.Reply(ctx, playerID, message, narratorContext(snapshot))
	if err != nil {
		// Collaborator failure is recovered locally; the action still
		// succeeds with a deterministic reply.
		return ports.NarratorReply{Text: fallbackReply(snapshot)}
	}
	return reply
}

func narratorContext(state *quest.PlayerState) ports.NarratorContext {
	nc := ports.NarratorContext{
		DisplayName: state.DisplayName,
		Tier:        string(state.Tier),
		Location:    state.Location,
	}
	if state.ActiveQuest != nil {
		nc.ActiveQuest = state.ActiveQuest.Title
		for _, step := range state.ActiveQuest.Steps {
			if !state.ActiveQuest.StepsDone[step.ID] {
				nc.OpenSteps = append(nc.OpenSteps, step.Description)
			}
		}
	}
	return nc
}

func fallbackReply(state *quest.PlayerState) string {
	if state.ActiveQuest != nil {
		return fmt.Sprintf("The %s nods slowly. Your quest %q awaits, %s.",
			state.Location, state.ActiveQuest.Title, state.DisplayName)
	}
	return fmt.Sprintf("The %s grows quiet. Perhaps a new quest calls, %s.",
		state.Location, state.DisplayName)
}

func requestFromIntent(playerID string, intent ports.Intent, depth int) (Request, bool) {
	switch Type(intent.Action) {
	case TypeStartQuest:
		if intent.QuestID == "" {
			return Request{}, false
		}
		return Request{PlayerID: playerID, Type: TypeStartQuest, StartQuest: &StartQuestPayload{QuestID: intent.QuestID}, depth: depth}, true
	case TypeCompleteQuestStep:
		if intent.StepID == "" {
			return Request{}, false
		}
		return Request{PlayerID: playerID, Type: TypeCompleteQuestStep, CompleteStep: &CompleteStepPayload{StepID: intent.StepID}, depth: depth}, true
	case TypeCompleteQuest:
		return Request{PlayerID: playerID, Type: TypeCompleteQuest, depth: depth}, true
	default:
		return Request{}, false
	}
}
