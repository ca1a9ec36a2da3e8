package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/websocket"
	"github.com/rs/zerolog"

	"questforge/internal/adapter/ws"
	"questforge/internal/app/action"
	"questforge/internal/app/ports"
	"questforge/internal/app/rotation"
	"questforge/internal/app/snapshot"
	domrotation "questforge/internal/domain/rotation"
)

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

type Handler struct {
	ActionUC   action.UseCase
	SnapshotUC snapshot.UseCase
	Scheduler  *rotation.Scheduler
	Handoffs   ports.HandoffLog
	Hub        *ws.Hub
	KPI        kpiSnapshotProvider
	Log        zerolog.Logger
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	player := s.Group("/api/player")
	player.POST("/action", h.action)
	player.GET("/state", h.state)
	player.GET("/events/ws", h.events)

	rot := s.Group("/api/rotation")
	rot.POST("/start", h.rotationStart)
	rot.POST("/advance", h.rotationAdvance)
	rot.POST("/extend", h.rotationExtend)
	rot.GET("/status", h.rotationStatus)
	rot.GET("/handoffs", h.rotationHandoffs)

	s.GET("/ops/kpi", h.kpi)
}

// actionRequest is the collaborator-facing envelope: the payload shape is
// selected by type and validated before the processor sees it.
type actionRequest struct {
	PlayerID string          `json:"player_id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func (h Handler) action(c context.Context, ctx *app.RequestContext) {
	var body actionRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeFailure(ctx, consts.StatusBadRequest, "validation_error", "invalid json")
		return
	}
	req, err := buildActionRequest(body)
	if err != nil {
		writeError(ctx, err)
		return
	}

	resp, err := h.ActionUC.Execute(c, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeSuccess(ctx, resp)
}

func buildActionRequest(body actionRequest) (action.Request, error) {
	req := action.Request{
		PlayerID: strings.TrimSpace(body.PlayerID),
		Type:     action.Type(strings.TrimSpace(body.Type)),
	}
	var err error
	switch req.Type {
	case action.TypeSetScore:
		req.SetScore, err = decodePayload[action.SetScorePayload](body.Payload)
	case action.TypeStartQuest:
		req.StartQuest, err = decodePayload[action.StartQuestPayload](body.Payload)
	case action.TypeCompleteQuestStep:
		req.CompleteStep, err = decodePayload[action.CompleteStepPayload](body.Payload)
	case action.TypeCompleteQuest:
		// no payload
	case action.TypeChat:
		req.Chat, err = decodePayload[action.ChatPayload](body.Payload)
	case action.TypeChangeLocation:
		req.ChangeLocation, err = decodePayload[action.ChangeLocationPayload](body.Payload)
	case action.TypeUseItem:
		req.UseItem, err = decodePayload[action.UseItemPayload](body.Payload)
	}
	if err != nil {
		return action.Request{}, err
	}
	return req, nil
}

func decodePayload[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 {
		return nil, ports.ErrValidation
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, ports.ErrValidation
	}
	return &out, nil
}

func (h Handler) state(c context.Context, ctx *app.RequestContext) {
	resp, err := h.SnapshotUC.Execute(c, snapshot.Request{PlayerID: string(ctx.Query("player_id"))})
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeSuccess(ctx, resp)
}

var upgrader = websocket.HertzUpgrader{
	CheckOrigin: func(_ *app.RequestContext) bool { return true },
}

func (h Handler) events(c context.Context, ctx *app.RequestContext) {
	playerID := strings.TrimSpace(string(ctx.Query("player_id")))
	if playerID == "" {
		writeFailure(ctx, consts.StatusBadRequest, "validation_error", "player_id is required")
		return
	}
	err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		h.Hub.Serve(playerID, conn)
	})
	if err != nil {
		h.Log.Debug().Err(err).Str("player_id", playerID).Msg("websocket upgrade failed")
	}
}

type extendRequest struct {
	Minutes int `json:"minutes"`
}

func (h Handler) rotationStart(c context.Context, ctx *app.RequestContext) {
	view, err := h.Scheduler.Start(context.WithoutCancel(c))
	if err != nil {
		writeRotationError(ctx, view, err)
		return
	}
	writeSuccess(ctx, view)
}

func (h Handler) rotationAdvance(c context.Context, ctx *app.RequestContext) {
	view, err := h.Scheduler.Advance(c)
	if err != nil {
		writeRotationError(ctx, view, err)
		return
	}
	writeSuccess(ctx, view)
}

func (h Handler) rotationExtend(c context.Context, ctx *app.RequestContext) {
	var body extendRequest
	if err := decodeJSON(ctx, &body); err != nil || body.Minutes <= 0 {
		writeFailure(ctx, consts.StatusBadRequest, "validation_error", "minutes must be positive")
		return
	}
	view, err := h.Scheduler.Extend(c, time.Duration(body.Minutes)*time.Minute)
	if err != nil {
		writeRotationError(ctx, view, err)
		return
	}
	writeSuccess(ctx, view)
}

func (h Handler) rotationStatus(_ context.Context, ctx *app.RequestContext) {
	writeSuccess(ctx, h.Scheduler.Status())
}

func (h Handler) rotationHandoffs(c context.Context, ctx *app.RequestContext) {
	if h.Handoffs == nil {
		writeFailure(ctx, consts.StatusNotFound, "not_found", "handoff log not configured")
		return
	}
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	handoffs, err := h.Handoffs.List(c, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeSuccess(ctx, map[string]any{"handoffs": handoffs})
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeFailure(ctx, consts.StatusNotFound, "not_found", "kpi provider not configured")
		return
	}
	writeSuccess(ctx, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func writeSuccess(ctx *app.RequestContext, data any) {
	ctx.JSON(consts.StatusOK, envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

func writeFailure(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, envelope{
		Success:   false,
		Error:     &errorBody{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	})
}

// writeError maps the ports taxonomy onto stable codes. Internal errors never
// leak beyond a generic message.
func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, ports.ErrValidation):
		writeFailure(ctx, consts.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeFailure(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrInvalidState):
		writeFailure(ctx, consts.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeFailure(ctx, consts.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ports.ErrCollaborator):
		writeFailure(ctx, consts.StatusBadGateway, "collaborator_failure", err.Error())
	default:
		writeFailure(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

// writeRotationError treats transitions on an inactive rotation as reported
// no-ops rather than failures.
func writeRotationError(ctx *app.RequestContext, view rotation.StatusView, err error) {
	switch {
	case errors.Is(err, domrotation.ErrInactive), errors.Is(err, domrotation.ErrAlreadyLive):
		writeSuccess(ctx, map[string]any{"noop": true, "reason": err.Error(), "status": view})
	case errors.Is(err, domrotation.ErrNoPhases):
		writeFailure(ctx, consts.StatusConflict, "invalid_state", err.Error())
	default:
		writeError(ctx, err)
	}
}
