// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types emitted after a ledger unit of work commits.
const (
	EventShortlistAdded     EventType = "ledger.shortlist_added"
	EventShortlistRemoved   EventType = "ledger.shortlist_removed"
	EventUniversityLocked   EventType = "ledger.university_locked"
	EventUniversityUnlocked EventType = "ledger.university_unlocked"
	EventDocumentsGenerated EventType = "ledger.documents_generated"
	EventOrphansPurged      EventType = "ledger.orphans_purged"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Events
// ═══════════════════════════════════════════════════════════════════════════

// LedgerEvent is emitted for every committed shortlist/lock change.
// The aggregate is the user: all ledger invariants are per user.
type LedgerEvent struct {
	BaseEvent
	UserID         UserID       `json:"user_id"`
	UniversityID   UniversityID `json:"university_id"`
	PreviousLocked UniversityID `json:"previous_locked,omitempty"`
	TasksCreated   int          `json:"tasks_created"`
	TasksDeleted   int          `json:"tasks_deleted"`
	DocsCreated    int          `json:"documents_created"`
	DocsDeleted    int          `json:"documents_deleted"`
}

// NewLedgerEvent creates a ledger event for the given user and university.
func NewLedgerEvent(eventType EventType, userID UserID, universityID UniversityID) *LedgerEvent {
	return &LedgerEvent{
		BaseEvent:    NewBaseEvent(eventType, userID.String()),
		UserID:       userID,
		UniversityID: universityID,
	}
}

// Payload implements Event interface.
func (e *LedgerEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"user_id":           e.UserID.String(),
		"university_id":     e.UniversityID.String(),
		"tasks_created":     e.TasksCreated,
		"tasks_deleted":     e.TasksDeleted,
		"documents_created": e.DocsCreated,
		"documents_deleted": e.DocsDeleted,
	}
	if !e.PreviousLocked.IsEmpty() {
		p["previous_locked"] = e.PreviousLocked.String()
	}
	return p
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NoopPublisher discards events. Useful when no bus is wired.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
