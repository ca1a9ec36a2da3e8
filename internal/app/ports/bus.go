package ports

import (
	"context"

	"questforge/internal/domain/quest"
)

// EventBus is the only inter-instance channel. One topic per event class;
// delivery is at-most-once and unordered across instances.
type EventBus interface {
	Publish(ctx context.Context, event quest.DomainEvent) error
	// Subscribe delivers every event published to the given classes,
	// including the caller's own (receivers filter echoes by origin id).
	// The returned stop function releases the subscription.
	Subscribe(ctx context.Context, classes []quest.EventClass, handler func(quest.DomainEvent)) (stop func(), err error)
}
