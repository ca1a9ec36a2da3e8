package quest

import "time"

// EventClass tags a DomainEvent and doubles as its bus topic suffix.
type EventClass string

const (
	EventQuestStarted     EventClass = "quest-started"
	EventStepCompleted    EventClass = "step-completed"
	EventQuestCompleted   EventClass = "quest-completed"
	EventScoreChanged     EventClass = "score-changed"
	EventLevelChanged     EventClass = "level-changed"
	EventChatExchanged    EventClass = "chat-exchanged"
	EventLocationChanged  EventClass = "location-changed"
	EventInventoryChanged EventClass = "inventory-changed"
	EventPresenceChanged  EventClass = "presence-changed"
	EventPhaseChanged     EventClass = "phase-changed"
	EventHandoff          EventClass = "handoff"
	EventDemoEnded        EventClass = "demo-ended"
)

// Classes lists every event class a broadcaster must subscribe to.
func Classes() []EventClass {
	return []EventClass{
		EventQuestStarted,
		EventStepCompleted,
		EventQuestCompleted,
		EventScoreChanged,
		EventLevelChanged,
		EventChatExchanged,
		EventLocationChanged,
		EventInventoryChanged,
		EventPresenceChanged,
		EventPhaseChanged,
		EventHandoff,
		EventDemoEnded,
	}
}

// Broadcast reports whether events of this class fan out to every local
// connection instead of only the subject player's.
func (c EventClass) Broadcast() bool {
	switch c {
	case EventChatExchanged, EventPresenceChanged, EventPhaseChanged, EventHandoff, EventDemoEnded:
		return true
	default:
		return false
	}
}

// DomainEvent is a fact about a state change that already committed locally.
// Events are ephemeral; the originating instance's store stays the source of
// truth.
type DomainEvent struct {
	Class      EventClass     `json:"class"`
	PlayerID   string         `json:"player_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OriginID   string         `json:"origin_id"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent builds an event without an origin id; the broadcaster stamps the
// origin just before publishing.
func NewEvent(class EventClass, playerID string, payload map[string]any, now time.Time) DomainEvent {
	return DomainEvent{
		Class:      class,
		PlayerID:   playerID,
		Payload:    payload,
		OccurredAt: now,
	}
}
