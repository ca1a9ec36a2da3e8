package membus

import (
	"context"
	"sync"

	"questforge/internal/domain/quest"
)

// Bus is an in-process event channel with the same contract as the Redis
// adapter: topic per event class, at-most-once, no cross-subscriber ordering.
// Used in tests and single-instance runs; several Broadcasters subscribed to
// one Bus behave like instances sharing a backbone.
type Bus struct {
	mu   sync.RWMutex
	subs map[quest.EventClass][]*subscription
}

type subscription struct {
	handler func(quest.DomainEvent)
}

func New() *Bus {
	return &Bus{subs: make(map[quest.EventClass][]*subscription)}
}

func (b *Bus) Publish(_ context.Context, event quest.DomainEvent) error {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[event.Class]))
	copy(subs, b.subs[event.Class])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(event)
	}
	return nil
}

func (b *Bus) Subscribe(_ context.Context, classes []quest.EventClass, handler func(quest.DomainEvent)) (func(), error) {
	sub := &subscription{handler: handler}
	b.mu.Lock()
	for _, class := range classes {
		b.subs[class] = append(b.subs[class], sub)
	}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, class := range classes {
			list := b.subs[class]
			for i, candidate := range list {
				if candidate == sub {
					b.subs[class] = append(list[:i], list[i+1:]...)
					break
				}
			}
		}
	}, nil
}
