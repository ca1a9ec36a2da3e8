package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	membus "questforge/internal/adapter/bus/memory"
	"questforge/internal/domain/quest"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu       sync.Mutex
	toPlayer map[string][][]byte
	toAll    [][]byte
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{toPlayer: make(map[string][][]byte)}
}

func (g *fakeGateway) PushToPlayer(playerID string, message []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.toPlayer[playerID] = append(g.toPlayer[playerID], message)
}

func (g *fakeGateway) PushAll(message []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.toAll = append(g.toAll, message)
}

func (g *fakeGateway) playerCount(playerID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.toPlayer[playerID])
}

func (g *fakeGateway) allCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.toAll)
}

type failingBus struct {
	err error
}

func (b failingBus) Publish(context.Context, quest.DomainEvent) error { return b.err }

func (b failingBus) Subscribe(context.Context, []quest.EventClass, func(quest.DomainEvent)) (func(), error) {
	return func() {}, nil
}

type countingMetrics struct {
	mu      sync.Mutex
	dropped int
}

func (m *countingMetrics) RecordSuccess(string) {}
func (m *countingMetrics) RecordFailure(string) {}
func (m *countingMetrics) RecordDroppedPublish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

func TestBroadcastLocal_PushesAndPublishesWithOrigin(t *testing.T) {
	bus := membus.New()
	gateway := newFakeGateway()
	b := &Broadcaster{InstanceID: "i1", Bus: bus, Gateway: gateway, Log: zerolog.Nop()}

	var published []quest.DomainEvent
	stop, err := bus.Subscribe(context.Background(), quest.Classes(), func(ev quest.DomainEvent) {
		published = append(published, ev)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ev := quest.NewEvent(quest.EventScoreChanged, "p1", map[string]any{"score": 10}, fixedNow)
	b.BroadcastLocal(context.Background(), []quest.DomainEvent{ev})

	if gateway.playerCount("p1") != 1 {
		t.Fatalf("expected one local push, got %d", gateway.playerCount("p1"))
	}
	if len(published) != 1 {
		t.Fatalf("expected one publish, got %d", len(published))
	}
	if published[0].OriginID != "i1" {
		t.Fatalf("published event must carry the origin id, got %q", published[0].OriginID)
	}
}

func TestReplication_OwnEchoSuppressed(t *testing.T) {
	bus := membus.New()
	ctx := context.Background()

	g1, g2 := newFakeGateway(), newFakeGateway()
	b1 := &Broadcaster{InstanceID: "i1", Bus: bus, Gateway: g1, Log: zerolog.Nop()}
	b2 := &Broadcaster{InstanceID: "i2", Bus: bus, Gateway: g2, Log: zerolog.Nop()}

	// Both instances subscribed to the shared backbone, exactly as Run does.
	for _, b := range []*Broadcaster{b1, b2} {
		stop, err := bus.Subscribe(ctx, quest.Classes(), b.handleRemote)
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer stop()
	}

	ev := quest.NewEvent(quest.EventQuestStarted, "p1", map[string]any{"quest_id": "q1"}, fixedNow)
	b1.BroadcastLocal(ctx, []quest.DomainEvent{ev})

	// Origin instance pushes exactly once: the direct local push. Its own
	// bus copy comes back with OriginID=i1 and is dropped.
	if got := g1.playerCount("p1"); got != 1 {
		t.Fatalf("origin instance pushed %d times, want 1", got)
	}
	// The peer sees the bus copy once.
	if got := g2.playerCount("p1"); got != 1 {
		t.Fatalf("peer instance pushed %d times, want 1", got)
	}
}

func TestReplication_PeerEventRenewsPresence(t *testing.T) {
	tracker := NewTracker(time.Minute).WithClock(func() time.Time { return fixedNow })
	b := &Broadcaster{InstanceID: "i2", Presence: tracker, Gateway: newFakeGateway(), Log: zerolog.Nop()}

	tracker.MarkOnline("p1")
	ev := quest.NewEvent(quest.EventScoreChanged, "p1", nil, fixedNow)
	ev.OriginID = "i1"
	b.handleRemote(ev)

	if !tracker.Online("p1") {
		t.Fatalf("inbound peer event should renew presence")
	}
}

func TestBroadcastLocal_DroppedPublishIsCountedNotFatal(t *testing.T) {
	gateway := newFakeGateway()
	metrics := &countingMetrics{}
	b := &Broadcaster{
		InstanceID: "i1",
		Bus:        failingBus{err: errors.New("broker gone")},
		Gateway:    gateway,
		Metrics:    metrics,
		Log:        zerolog.Nop(),
	}

	ev := quest.NewEvent(quest.EventScoreChanged, "p1", nil, fixedNow)
	b.BroadcastLocal(context.Background(), []quest.DomainEvent{ev})

	if gateway.playerCount("p1") != 1 {
		t.Fatalf("local push must still happen, got %d", gateway.playerCount("p1"))
	}
	if metrics.dropped != 1 {
		t.Fatalf("dropped publish count %d, want 1", metrics.dropped)
	}
}

func TestPush_BroadcastClassesFanOut(t *testing.T) {
	gateway := newFakeGateway()
	b := &Broadcaster{InstanceID: "i1", Gateway: gateway, Log: zerolog.Nop()}

	b.push(quest.NewEvent(quest.EventChatExchanged, "p1", nil, fixedNow))
	b.push(quest.NewEvent(quest.EventScoreChanged, "p1", nil, fixedNow))

	if gateway.allCount() != 1 {
		t.Fatalf("chat should fan out to everyone, got %d", gateway.allCount())
	}
	if gateway.playerCount("p1") != 1 {
		t.Fatalf("score change should target the owner, got %d", gateway.playerCount("p1"))
	}

	var msg wireMessage
	if err := json.Unmarshal(gateway.toAll[0], &msg); err != nil {
		t.Fatalf("unmarshal wire message: %v", err)
	}
	if msg.Type != msgChatGlobal {
		t.Fatalf("wire type %q, want %q", msg.Type, msgChatGlobal)
	}
}

func TestConnectDisconnect_AnnouncesEdgeTransitionsOnly(t *testing.T) {
	bus := membus.New()
	tracker := NewTracker(time.Minute).WithClock(func() time.Time { return fixedNow })
	gateway := newFakeGateway()
	b := &Broadcaster{InstanceID: "i1", Bus: bus, Gateway: gateway, Presence: tracker, Log: zerolog.Nop()}
	ctx := context.Background()

	b.OnClientConnect(ctx, "p1")
	b.OnClientConnect(ctx, "p1")
	if got := gateway.allCount(); got != 1 {
		t.Fatalf("second connection must not re-announce, got %d presence pushes", got)
	}

	// Player keeps one of two connections; no offline announcement yet.
	b.OnClientDisconnect(ctx, "p1", 1)
	if got := gateway.allCount(); got != 1 {
		t.Fatalf("disconnect with live connections must stay quiet, got %d", got)
	}

	b.OnClientDisconnect(ctx, "p1", 0)
	if got := gateway.allCount(); got != 2 {
		t.Fatalf("final disconnect should announce offline, got %d", got)
	}
	if tracker.Online("p1") {
		t.Fatalf("player should be offline after final disconnect")
	}
}

func TestSweep_AnnouncesExpiredPlayers(t *testing.T) {
	tracker := NewTracker(time.Minute).WithClock(func() time.Time { return fixedNow })
	gateway := newFakeGateway()
	b := &Broadcaster{InstanceID: "i1", Gateway: gateway, Presence: tracker, Log: zerolog.Nop()}

	tracker.MarkOnline("p1")
	tracker.MarkOnline("p2")
	tracker.MarkOffline("p2")

	b.sweepPresence(context.Background(), fixedNow.Add(30*time.Second))
	if got := gateway.allCount(); got != 0 {
		t.Fatalf("nothing expired yet, got %d pushes", got)
	}

	b.sweepPresence(context.Background(), fixedNow.Add(2*time.Minute))
	if got := gateway.allCount(); got != 1 {
		t.Fatalf("expected one offline announcement after expiry, got %d", got)
	}
	var msg wireMessage
	if err := json.Unmarshal(gateway.toAll[0], &msg); err != nil {
		t.Fatalf("unmarshal wire message: %v", err)
	}
	if msg.Update.PlayerID != "p1" {
		t.Fatalf("expected p1 to expire, got %q", msg.Update.PlayerID)
	}
}
