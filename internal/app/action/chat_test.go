package action

import (
	"context"
	"errors"
	"strings"
	"testing"

	"questforge/internal/app/ports"
	"questforge/internal/domain/quest"
)

func TestChat_AppendsExchangeAndEmitsEvent(t *testing.T) {
	pub := &stubPublisher{}
	narrator := &stubNarrator{reply: ports.NarratorReply{Text: "The tavern keeper waves."}}
	uc := newTestUseCase(pub, narrator)

	resp, err := uc.Execute(context.Background(), Request{
		PlayerID: "p1",
		Type:     TypeChat,
		Chat:     &ChatPayload{Message: "hello there"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Reply != "The tavern keeper waves." {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
	log := resp.State.Session.Log
	if len(log) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(log))
	}
	if log[0].Role != quest.RolePlayer || log[0].Text != "hello there" {
		t.Fatalf("unexpected first entry %+v", log[0])
	}
	if log[1].Role != quest.RoleNarrator {
		t.Fatalf("unexpected second entry %+v", log[1])
	}
	if got := pub.byClass(quest.EventChatExchanged); len(got) != 1 {
		t.Fatalf("expected chat-exchanged event, got %d", len(got))
	}
}

func TestChat_CollaboratorFailureFallsBack(t *testing.T) {
	pub := &stubPublisher{}
	narrator := &stubNarrator{err: errors.New("provider down")}
	uc := newTestUseCase(pub, narrator)

	resp, err := uc.Execute(context.Background(), Request{
		PlayerID: "p1",
		Type:     TypeChat,
		Chat:     &ChatPayload{Message: "anyone home?"},
	})
	if err != nil {
		t.Fatalf("chat must succeed despite collaborator failure: %v", err)
	}
	if resp.Reply == "" {
		t.Fatalf("fallback reply must not be empty")
	}
	if !strings.Contains(resp.Reply, "p1") {
		t.Fatalf("fallback should be the deterministic template, got %q", resp.Reply)
	}
	if got := pub.byClass(quest.EventChatExchanged); len(got) != 1 {
		t.Fatalf("expected chat-exchanged event, got %d", len(got))
	}
}

type observingNarrator struct {
	observe func() quest.ActivityStatus
	seen    quest.ActivityStatus
	reply   ports.NarratorReply
}

func (n *observingNarrator) Reply(context.Context, string, string, ports.NarratorContext) (ports.NarratorReply, error) {
	n.seen = n.observe()
	return n.reply, nil
}

func TestChat_StatusReadsChattingDuringExchange(t *testing.T) {
	pub := &stubPublisher{}
	narrator := &observingNarrator{reply: ports.NarratorReply{Text: "mm-hm."}}
	uc := newTestUseCase(pub, narrator)
	ctx := context.Background()
	narrator.observe = func() quest.ActivityStatus {
		return uc.Store.Snapshot(ctx, "p1").Status
	}

	resp, err := uc.Execute(ctx, Request{
		PlayerID: "p1",
		Type:     TypeChat,
		Chat:     &ChatPayload{Message: "are you there?"},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if narrator.seen != quest.StatusChatting {
		t.Fatalf("status during exchange %s, want %s", narrator.seen, quest.StatusChatting)
	}
	if resp.State.Status != quest.StatusIdle {
		t.Fatalf("status after exchange %s, want %s", resp.State.Status, quest.StatusIdle)
	}

	// With an active quest the player returns to in-quest, not idle.
	if _, err := uc.Execute(ctx, Request{PlayerID: "p1", Type: TypeStartQuest, StartQuest: &StartQuestPayload{QuestID: "q1"}}); err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err = uc.Execute(ctx, Request{PlayerID: "p1", Type: TypeChat, Chat: &ChatPayload{Message: "onward"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.State.Status != quest.StatusInQuest {
		t.Fatalf("status after exchange %s, want %s", resp.State.Status, quest.StatusInQuest)
	}
}

func TestChat_IntentReentersProcessor(t *testing.T) {
	pub := &stubPublisher{}
	narrator := &stubNarrator{reply: ports.NarratorReply{
		Text:    "Well done, the allies are found.",
		Intents: []ports.Intent{{Action: "COMPLETE_QUEST_STEP", StepID: "s1"}},
	}}
	uc := newTestUseCase(pub, narrator)
	ctx := context.Background()

	if _, err := uc.Execute(ctx, Request{PlayerID: "p1", Type: TypeStartQuest, StartQuest: &StartQuestPayload{QuestID: "q1"}}); err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := uc.Execute(ctx, Request{PlayerID: "p1", Type: TypeChat, Chat: &ChatPayload{Message: "I finished finding allies"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !resp.State.ActiveQuest.StepsDone["s1"] {
		t.Fatalf("intent should have completed the step")
	}
	if got := pub.byClass(quest.EventStepCompleted); len(got) != 1 {
		t.Fatalf("expected step-completed from intent, got %d", len(got))
	}
}

func TestChat_FailedIntentDoesNotFailChat(t *testing.T) {
	pub := &stubPublisher{}
	narrator := &stubNarrator{reply: ports.NarratorReply{
		Text:    "Bold claim.",
		Intents: []ports.Intent{{Action: "COMPLETE_QUEST"}},
	}}
	uc := newTestUseCase(pub, narrator)

	// No active quest, so the inferred COMPLETE_QUEST fails internally.
	resp, err := uc.Execute(context.Background(), Request{
		PlayerID: "p1",
		Type:     TypeChat,
		Chat:     &ChatPayload{Message: "I did everything"},
	})
	if err != nil {
		t.Fatalf("chat must absorb intent failures: %v", err)
	}
	if resp.Reply != "Bold claim." {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
}

func TestChat_IntentRecursionIsCapped(t *testing.T) {
	pub := &stubPublisher{}
	// A narrator that always wants more chat would loop without the cap;
	// here it infers an unknown action, which is simply skipped.
	narrator := &stubNarrator{reply: ports.NarratorReply{
		Text:    "again",
		Intents: []ports.Intent{{Action: "CHAT"}},
	}}
	uc := newTestUseCase(pub, narrator)

	if _, err := uc.Execute(context.Background(), Request{
		PlayerID: "p1",
		Type:     TypeChat,
		Chat:     &ChatPayload{Message: "loop?"},
	}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if narrator.calls != 1 {
		t.Fatalf("unsupported intent actions must not re-enter chat, calls=%d", narrator.calls)
	}
}
