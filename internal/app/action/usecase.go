package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"questforge/internal/app/ports"
	"questforge/internal/app/store"
	"questforge/internal/domain/quest"
)

// Publisher hands committed events to the replication broadcaster. The
// broadcaster pushes them to local clients and publishes them to the bus;
// neither path can fail the action.
type Publisher interface {
	BroadcastLocal(ctx context.Context, events []quest.DomainEvent)
}

// UseCase is the action processor: validate, mutate, persist, broadcast.
type UseCase struct {
	Store     *store.Store
	Narrator  ports.Narrator
	Publisher Publisher
	Metrics   ports.ActionMetrics
	Now       func() time.Time
}

const maxIntentDepth = 2

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if err := validate(req); err != nil {
		if u.Metrics != nil {
			u.Metrics.RecordFailure(string(req.Type))
		}
		return Response{}, err
	}

	var (
		out Response
		err error
	)
	if req.Type == TypeChat {
		out, err = u.executeChat(ctx, req)
	} else {
		out, err = u.executeSync(ctx, req)
	}
	if err != nil {
		if u.Metrics != nil {
			u.Metrics.RecordFailure(string(req.Type))
		}
		return Response{}, err
	}

	if u.Metrics != nil {
		u.Metrics.RecordSuccess(string(req.Type))
	}
	if u.Publisher != nil && len(out.Events) > 0 {
		u.Publisher.BroadcastLocal(ctx, out.Events)
	}
	return out, nil
}

func (u UseCase) executeSync(ctx context.Context, req Request) (Response, error) {
	now := u.now()
	var events []quest.DomainEvent
	err := u.Store.Apply(ctx, req.PlayerID, func(state *quest.PlayerState) error {
		var applyErr error
		events, applyErr = u.apply(state, req, now)
		return applyErr
	})
	if err != nil {
		return Response{}, err
	}
	return Response{State: u.Store.Snapshot(ctx, req.PlayerID), Events: events}, nil
}

func (u UseCase) apply(state *quest.PlayerState, req Request, now time.Time) ([]quest.DomainEvent, error) {
	switch req.Type {
	case TypeSetScore:
		return applySetScore(state, req.SetScore.Score, now)
	case TypeStartQuest:
		return applyStartQuest(state, req.StartQuest.QuestID, now)
	case TypeCompleteQuestStep:
		return applyCompleteStep(state, req.CompleteStep.StepID, now)
	case TypeCompleteQuest:
		return applyCompleteQuest(state, now)
	case TypeChangeLocation:
		return applyChangeLocation(state, req.ChangeLocation.Location, now)
	case TypeUseItem:
		return applyUseItem(state, req.UseItem.Item, now)
	default:
		return nil, fmt.Errorf("%w: unsupported action type %q", ports.ErrValidation, req.Type)
	}
}

func (u UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func validate(req Request) error {
	if req.PlayerID == "" {
		return fmt.Errorf("%w: player_id is required", ports.ErrValidation)
	}
	switch req.Type {
	case TypeSetScore:
		if req.SetScore == nil {
			return fmt.Errorf("%w: set_score payload is required", ports.ErrValidation)
		}
		if req.SetScore.Score < 0 {
			return fmt.Errorf("%w: score must be non-negative", ports.ErrValidation)
		}
	case TypeStartQuest:
		if req.StartQuest == nil || strings.TrimSpace(req.StartQuest.QuestID) == "" {
			return fmt.Errorf("%w: quest_id is required", ports.ErrValidation)
		}
	case TypeCompleteQuestStep:
		if req.CompleteStep == nil || strings.TrimSpace(req.CompleteStep.StepID) == "" {
			return fmt.Errorf("%w: step_id is required", ports.ErrValidation)
		}
	case TypeCompleteQuest:
		// no payload
	case TypeChat:
		if req.Chat == nil || strings.TrimSpace(req.Chat.Message) == "" {
			return fmt.Errorf("%w: message is required", ports.ErrValidation)
		}
	case TypeChangeLocation:
		if req.ChangeLocation == nil || strings.TrimSpace(req.ChangeLocation.Location) == "" {
			return fmt.Errorf("%w: location is required", ports.ErrValidation)
		}
	case TypeUseItem:
		if req.UseItem == nil || strings.TrimSpace(req.UseItem.Item) == "" {
			return fmt.Errorf("%w: item is required", ports.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown action type %q", ports.ErrValidation, req.Type)
	}
	return nil
}

// mapDomainErr lifts domain errors onto the ports taxonomy so the transport
// layer can match them with errors.Is.
func mapDomainErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, quest.ErrUnknownQuest),
		errors.Is(err, quest.ErrUnknownStep),
		errors.Is(err, quest.ErrItemNotHeld):
		return fmt.Errorf("%w: %v", ports.ErrNotFound, err)
	case errors.Is(err, quest.ErrQuestActive),
		errors.Is(err, quest.ErrNoActiveQuest):
		return fmt.Errorf("%w: %v", ports.ErrInvalidState, err)
	case errors.Is(err, quest.ErrNegativeScore),
		errors.Is(err, quest.ErrEmptyLocation):
		return fmt.Errorf("%w: %v", ports.ErrValidation, err)
	default:
		return err
	}
}
