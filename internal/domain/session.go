package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState represents the lifecycle state of a judging session
type SessionState string

const (
	SessionStateProvisioning SessionState = "PROVISIONING"
	SessionStateReady        SessionState = "READY"
	SessionStateShuttingDown SessionState = "SHUTTING_DOWN"
	SessionStateTerminated   SessionState = "TERMINATED"
	SessionStateFailed       SessionState = "FAILED"
)

// stateRank orders the main lifecycle path. FAILED sits outside the path and
// is only reachable from PROVISIONING.
var stateRank = map[SessionState]int{
	SessionStateProvisioning: 0,
	SessionStateReady:        1,
	SessionStateShuttingDown: 2,
	SessionStateTerminated:   3,
}

// CanTransitionTo reports whether a one-step forward transition to next is
// legal. Transitions are one-directional; no state is revisited.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	if next == SessionStateFailed {
		return s == SessionStateProvisioning
	}
	from, okFrom := stateRank[s]
	to, okTo := stateRank[next]
	if !okFrom || !okTo {
		return false
	}
	return to == from+1
}

// AtOrPast reports whether the session has already reached other on the main
// lifecycle path. Used by the shutdown idempotency guard.
func (s SessionState) AtOrPast(other SessionState) bool {
	from, okFrom := stateRank[s]
	to, okTo := stateRank[other]
	if !okFrom || !okTo {
		return false
	}
	return from >= to
}

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == SessionStateTerminated || s == SessionStateFailed
}

// InstanceClass is the cost tier of the provisioned compute instance
type InstanceClass string

const (
	InstanceClassSmall       InstanceClass = "SMALL"
	InstanceClassStandard    InstanceClass = "STANDARD"
	InstanceClassPerformance InstanceClass = "PERFORMANCE"
)

// ShutdownReason records why a session was torn down
type ShutdownReason string

const (
	ShutdownReasonAutoCompletion ShutdownReason = "AUTO_COMPLETION"
	ShutdownReasonManual         ShutdownReason = "MANUAL"
	ShutdownReasonEmergency      ShutdownReason = "EMERGENCY"
	ShutdownReasonTimeout        ShutdownReason = "TIMEOUT"
)

// Instance is a provisioned compute instance running the judging backend
type Instance struct {
	ID   string
	Addr string
}

// Session represents one provisioned judging environment bound to exactly
// one timed testing event. Rows are never deleted; terminated sessions are
// retained as immutable audit records.
type Session struct {
	ID                   uuid.UUID       `db:"id"`
	InstanceID           *string         `db:"instance_id"`
	InstanceAddr         *string         `db:"instance_addr"`
	InstanceClass        InstanceClass   `db:"instance_class"`
	State                SessionState    `db:"state"`
	ProblemSetID         string          `db:"problem_set_id"`
	CreatedAt            time.Time       `db:"created_at"`
	ReadyAt              *time.Time      `db:"ready_at"`
	ShutdownAt           *time.Time      `db:"shutdown_at"`
	ShutdownReason       *ShutdownReason `db:"shutdown_reason"`
	FinalCost            *float64        `db:"final_cost"`
	ExpectedParticipants int             `db:"expected_participants"`
	ParticipantsServed   int             `db:"participants_served"`
	EstimatedMinutes     int             `db:"estimated_minutes"`
}

type SessionTable struct {
	ID                   string
	InstanceID           string
	InstanceAddr         string
	InstanceClass        string
	State                string
	ProblemSetID         string
	CreatedAt            string
	ReadyAt              string
	ShutdownAt           string
	ShutdownReason       string
	FinalCost            string
	ExpectedParticipants string
	ParticipantsServed   string
	EstimatedMinutes     string
}

func GetSessionTable() SessionTable {
	return SessionTable{
		ID:                   "id",
		InstanceID:           "instance_id",
		InstanceAddr:         "instance_addr",
		InstanceClass:        "instance_class",
		State:                "state",
		ProblemSetID:         "problem_set_id",
		CreatedAt:            "created_at",
		ReadyAt:              "ready_at",
		ShutdownAt:           "shutdown_at",
		ShutdownReason:       "shutdown_reason",
		FinalCost:            "final_cost",
		ExpectedParticipants: "expected_participants",
		ParticipantsServed:   "participants_served",
		EstimatedMinutes:     "estimated_minutes",
	}
}

func (SessionTable) TableName() string {
	return "sessions"
}

// NewSession creates a new session in PROVISIONING state
func NewSession(class InstanceClass, problemSetID string, expectedParticipants, estimatedMinutes int) *Session {
	return &Session{
		ID:                   uuid.New(),
		InstanceClass:        class,
		State:                SessionStateProvisioning,
		ProblemSetID:         problemSetID,
		CreatedAt:            time.Now(),
		ExpectedParticipants: expectedParticipants,
		EstimatedMinutes:     estimatedMinutes,
	}
}

// Elapsed returns the billable duration of the session: readiness to
// shutdown, or readiness to now while the session is still live.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.ReadyAt == nil {
		return 0
	}
	end := now
	if s.ShutdownAt != nil {
		end = *s.ShutdownAt
	}
	if end.Before(*s.ReadyAt) {
		return 0
	}
	return end.Sub(*s.ReadyAt)
}
