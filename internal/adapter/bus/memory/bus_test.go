package membus

import (
	"context"
	"testing"
	"time"

	"questforge/internal/domain/quest"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestPublish_ReachesOnlySubscribedClasses(t *testing.T) {
	bus := New()
	ctx := context.Background()

	var scoreEvents, chatEvents []quest.DomainEvent
	stopScore, err := bus.Subscribe(ctx, []quest.EventClass{quest.EventScoreChanged}, func(ev quest.DomainEvent) {
		scoreEvents = append(scoreEvents, ev)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stopScore()
	stopChat, err := bus.Subscribe(ctx, []quest.EventClass{quest.EventChatExchanged}, func(ev quest.DomainEvent) {
		chatEvents = append(chatEvents, ev)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stopChat()

	if err := bus.Publish(ctx, quest.NewEvent(quest.EventScoreChanged, "p1", nil, fixedNow)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(scoreEvents) != 1 || len(chatEvents) != 0 {
		t.Fatalf("expected class routing, got score=%d chat=%d", len(scoreEvents), len(chatEvents))
	}
}

func TestPublish_FansOutToEverySubscriber(t *testing.T) {
	bus := New()
	ctx := context.Background()

	counts := [3]int{}
	for i := 0; i < 3; i++ {
		i := i
		stop, err := bus.Subscribe(ctx, []quest.EventClass{quest.EventHandoff}, func(quest.DomainEvent) {
			counts[i]++
		})
		if err != nil {
			t.Fatalf("Subscribe %d: %v", i, err)
		}
		defer stop()
	}

	if err := bus.Publish(ctx, quest.NewEvent(quest.EventHandoff, "", nil, fixedNow)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for i, n := range counts {
		if n != 1 {
			t.Fatalf("subscriber %d saw %d events, want 1", i, n)
		}
	}
}

func TestStop_RemovesSubscription(t *testing.T) {
	bus := New()
	ctx := context.Background()

	seen := 0
	stop, err := bus.Subscribe(ctx, quest.Classes(), func(quest.DomainEvent) { seen++ })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := bus.Publish(ctx, quest.NewEvent(quest.EventQuestStarted, "p1", nil, fixedNow)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	stop()
	if err := bus.Publish(ctx, quest.NewEvent(quest.EventQuestStarted, "p1", nil, fixedNow)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if seen != 1 {
		t.Fatalf("stopped subscriber saw %d events, want 1", seen)
	}
}

func TestPublish_NoSubscribersIsFine(t *testing.T) {
	bus := New()
	if err := bus.Publish(context.Background(), quest.NewEvent(quest.EventDemoEnded, "", nil, fixedNow)); err != nil {
		t.Fatalf("Publish without subscribers: %v", err)
	}
}
