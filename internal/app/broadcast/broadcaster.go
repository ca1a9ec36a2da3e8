package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"questforge/internal/app/ports"
	"questforge/internal/domain/quest"
)

// Wire message types pushed to real-time clients.
const (
	msgStateUpdate = "STATE_UPDATE"
	msgChatGlobal  = "CHAT_GLOBAL"
	msgPresence    = "PRESENCE"
	msgPhase       = "PHASE"
)

type wireMessage struct {
	Type     string            `json:"type"`
	PlayerID string            `json:"playerId,omitempty"`
	Update   quest.DomainEvent `json:"update"`
}

// Broadcaster bridges committed local mutations to the event bus and inbound
// peer events to locally attached clients. Publishing is fire-and-forget: a
// dropped publish is logged and counted, never rolled back.
type Broadcaster struct {
	InstanceID string
	Bus        ports.EventBus
	Gateway    ports.ClientGateway
	Presence   *Tracker
	Metrics    ports.ActionMetrics
	Log        zerolog.Logger
}

// BroadcastLocal pushes locally produced events to this instance's clients
// and publishes them to the bus for peers. Peers see the origin id and drop
// the echo on their side; we never re-apply our own bus copy.
func (b *Broadcaster) BroadcastLocal(ctx context.Context, events []quest.DomainEvent) {
	for _, ev := range events {
		ev.OriginID = b.InstanceID
		b.push(ev)
		if b.Bus == nil {
			continue
		}
		if err := b.Bus.Publish(ctx, ev); err != nil {
			if b.Metrics != nil {
				b.Metrics.RecordDroppedPublish()
			}
			b.Log.Warn().Err(err).
				Str("class", string(ev.Class)).
				Str("player_id", ev.PlayerID).
				Msg("event publish dropped")
		}
	}
}

// Run subscribes to every event class and forwards peer events to local
// clients until ctx is done. Also drives the presence sweep.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.Bus != nil {
		stop, err := b.Bus.Subscribe(ctx, quest.Classes(), b.handleRemote)
		if err != nil {
			return err
		}
		defer stop()
	}

	sweep := time.NewTicker(b.sweepInterval())
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-sweep.C:
			b.sweepPresence(ctx, now)
		}
	}
}

func (b *Broadcaster) handleRemote(ev quest.DomainEvent) {
	if ev.OriginID == b.InstanceID {
		// Echo of our own publish; already applied and pushed locally.
		return
	}
	if b.Presence != nil && ev.PlayerID != "" {
		b.Presence.Renew(ev.PlayerID)
	}
	b.push(ev)
}

func (b *Broadcaster) push(ev quest.DomainEvent) {
	if b.Gateway == nil {
		return
	}
	msg := wireMessage{Type: wireType(ev.Class), PlayerID: ev.PlayerID, Update: ev}
	data, err := json.Marshal(msg)
	if err != nil {
		b.Log.Error().Err(err).Str("class", string(ev.Class)).Msg("event encode failed")
		return
	}
	if ev.Class.Broadcast() {
		b.Gateway.PushAll(data)
		return
	}
	b.Gateway.PushToPlayer(ev.PlayerID, data)
}

func wireType(class quest.EventClass) string {
	switch class {
	case quest.EventChatExchanged:
		return msgChatGlobal
	case quest.EventPresenceChanged:
		return msgPresence
	case quest.EventPhaseChanged, quest.EventHandoff, quest.EventDemoEnded:
		return msgPhase
	default:
		return msgStateUpdate
	}
}

// OnClientConnect records the player as online and announces the transition
// when this is their first local connection.
func (b *Broadcaster) OnClientConnect(ctx context.Context, playerID string) {
	if b.Presence == nil {
		return
	}
	if b.Presence.MarkOnline(playerID) {
		b.BroadcastLocal(ctx, []quest.DomainEvent{presenceEvent(playerID, true, time.Now())})
	}
}

// OnClientDisconnect announces offline presence once the last local
// connection for the player is gone.
func (b *Broadcaster) OnClientDisconnect(ctx context.Context, playerID string, remaining int) {
	if b.Presence == nil || remaining > 0 {
		return
	}
	if b.Presence.MarkOffline(playerID) {
		b.BroadcastLocal(ctx, []quest.DomainEvent{presenceEvent(playerID, false, time.Now())})
	}
}

func (b *Broadcaster) sweepPresence(ctx context.Context, now time.Time) {
	if b.Presence == nil {
		return
	}
	for _, playerID := range b.Presence.Sweep(now) {
		b.BroadcastLocal(ctx, []quest.DomainEvent{presenceEvent(playerID, false, now)})
	}
}

func (b *Broadcaster) sweepInterval() time.Duration {
	if b.Presence != nil && b.Presence.ttl > 0 {
		return b.Presence.ttl / 2
	}
	return 30 * time.Second
}

func presenceEvent(playerID string, online bool, now time.Time) quest.DomainEvent {
	status := "offline"
	if online {
		status = "online"
	}
	return quest.NewEvent(quest.EventPresenceChanged, playerID, map[string]any{
		"status": status,
	}, now)
}
