package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a lifecycle event
type EventKind string

const (
	EventSessionScheduled EventKind = "SESSION_SCHEDULED"
	EventSessionReady     EventKind = "SESSION_READY"
	EventSessionFailed    EventKind = "SESSION_FAILED"
	EventSessionCompleted EventKind = "SESSION_COMPLETED"
	EventSessionShutdown  EventKind = "SESSION_SHUTDOWN"
	EventShutdownFailed   EventKind = "SHUTDOWN_FAILED"
	EventCostAlert        EventKind = "COST_ALERT"
	EventQuotaExhausted   EventKind = "QUOTA_EXHAUSTED"
)

// Severity grades a lifecycle event
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// LifecycleEvent is an append-only audit record of a notification dispatch.
// SessionID is nil for aggregate events not tied to a single session.
type LifecycleEvent struct {
	ID        uuid.UUID              `db:"id"`
	SessionID *uuid.UUID             `db:"session_id"`
	Kind      EventKind              `db:"kind"`
	Severity  Severity               `db:"severity"`
	Message   string                 `db:"message"`
	CreatedAt time.Time              `db:"created_at"`
	Payload   map[string]interface{} `db:"payload"`
}

type LifecycleEventTable struct {
	ID        string
	SessionID string
	Kind      string
	Severity  string
	Message   string
	CreatedAt string
	Payload   string
}

func GetLifecycleEventTable() LifecycleEventTable {
	return LifecycleEventTable{
		ID:        "id",
		SessionID: "session_id",
		Kind:      "kind",
		Severity:  "severity",
		Message:   "message",
		CreatedAt: "created_at",
		Payload:   "payload",
	}
}

func (LifecycleEventTable) TableName() string {
	return "lifecycle_events"
}

// NewLifecycleEvent creates an event for a single session
func NewLifecycleEvent(sessionID uuid.UUID, kind EventKind, severity Severity, message string, payload map[string]interface{}) *LifecycleEvent {
	return &LifecycleEvent{
		ID:        uuid.New(),
		SessionID: &sessionID,
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now(),
		Payload:   payload,
	}
}
