package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CASE_ESCALATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic Event implementation used across the system.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewCaseEscalated builds the event published when a triage session is
// escalated to a human physician.
func NewCaseEscalated(sessionId, reason string) Event {
	return BaseEvent{
		Type: "CASE_ESCALATED",
		Data: map[string]interface{}{
			"session_id": sessionId,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

// NewCaseFinalized builds the event published when a session produces its
// immutable case record.
func NewCaseFinalized(sessionId, caseId, outcome string) Event {
	return BaseEvent{
		Type: "CASE_FINALIZED",
		Data: map[string]interface{}{
			"session_id": sessionId,
			"case_id":    caseId,
			"outcome":    outcome,
		},
		OccurredAt: time.Now(),
	}
}
