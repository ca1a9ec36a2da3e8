package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"questforge/internal/app/ports"
	"questforge/internal/app/store"
	"questforge/internal/domain/quest"
)

var ErrInvalidRequest = errors.New("invalid snapshot request")

type Request struct {
	PlayerID string `json:"player_id"`
}

type Response struct {
	State *quest.PlayerState `json:"state"`
}

// UseCase reads a full player snapshot, lazily creating a default state for
// unknown players.
type UseCase struct {
	Store *store.Store
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.PlayerID) == "" {
		return Response{}, fmt.Errorf("%w: %v", ports.ErrValidation, ErrInvalidRequest)
	}
	return Response{State: u.Store.Snapshot(ctx, strings.TrimSpace(req.PlayerID))}, nil
}
