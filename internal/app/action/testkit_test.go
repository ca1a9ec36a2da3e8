package action

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"questforge/internal/app/ports"
	"questforge/internal/app/store"
	"questforge/internal/domain/quest"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testCatalog() []quest.Template {
	return []quest.Template{
		{
			ID:    "q1",
			Title: "First Quest",
			Steps: []quest.Step{
				{ID: "s1", Description: "step one"},
				{ID: "s2", Description: "step two"},
			},
			RewardScore: 150,
			RewardItems: []string{"torch"},
		},
		{
			ID:          "q2",
			Title:       "Second Quest",
			Steps:       []quest.Step{{ID: "s3", Description: "only step"}},
			RewardScore: 50,
		},
	}
}

type stubPublisher struct {
	mu     sync.Mutex
	events []quest.DomainEvent
}

func (p *stubPublisher) BroadcastLocal(_ context.Context, events []quest.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *stubPublisher) byClass(class quest.EventClass) []quest.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []quest.DomainEvent
	for _, ev := range p.events {
		if ev.Class == class {
			out = append(out, ev)
		}
	}
	return out
}

type stubNarrator struct {
	reply ports.NarratorReply
	err   error
	calls int
}

func (n *stubNarrator) Reply(_ context.Context, _, _ string, _ ports.NarratorContext) (ports.NarratorReply, error) {
	n.calls++
	return n.reply, n.err
}

type failingMirror struct {
	err error
}

func (m failingMirror) Save(context.Context, *quest.PlayerState) error {
	return m.err
}

func (m failingMirror) LoadAll(context.Context) (map[string]*quest.PlayerState, error) {
	return nil, nil
}

func newTestUseCase(pub *stubPublisher, narrator ports.Narrator) UseCase {
	st := store.New(testCatalog(), nil, zerolog.Nop()).WithClock(func() time.Time { return fixedNow })
	return UseCase{
		Store:     st,
		Narrator:  narrator,
		Publisher: pub,
		Now:       func() time.Time { return fixedNow },
	}
}
