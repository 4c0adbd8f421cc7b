// package sessionrepository contains the PostgreSQL session store
package sessionrepository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ secondary.SessionRepository = &SessionRepository{}

// SessionRepository implements the SessionRepository port with PostgreSQL
type SessionRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB, logger primary.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// SaveSession inserts or updates a session row
func (r *SessionRepository) SaveSession(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (
			id, instance_id, instance_addr, instance_class, state,
			problem_set_id, created_at, ready_at, shutdown_at, shutdown_reason,
			final_cost, expected_participants, participants_served, estimated_minutes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			instance_id = EXCLUDED.instance_id,
			instance_addr = EXCLUDED.instance_addr,
			state = EXCLUDED.state,
			ready_at = EXCLUDED.ready_at,
			shutdown_at = EXCLUDED.shutdown_at,
			shutdown_reason = EXCLUDED.shutdown_reason,
			final_cost = EXCLUDED.final_cost,
			participants_served = EXCLUDED.participants_served
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.InstanceID,
		session.InstanceAddr,
		session.InstanceClass,
		session.State,
		session.ProblemSetID,
		session.CreatedAt,
		session.ReadyAt,
		session.ShutdownAt,
		session.ShutdownReason,
		session.FinalCost,
		session.ExpectedParticipants,
		session.ParticipantsServed,
		session.EstimatedMinutes,
	)

	if err != nil {
		r.logger.Error("Failed to save session", "sessionID", session.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

const sessionColumns = `
	id, instance_id, instance_addr, instance_class, state,
	problem_set_id, created_at, ready_at, shutdown_at, shutdown_reason,
	final_cost, expected_participants, participants_served, estimated_minutes
`

// GetSession retrieves a session by ID, nil when absent
func (r *SessionRepository) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, sessionID)
	session, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get session", "sessionID", sessionID, "error", err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetActiveSessions retrieves sessions that are provisioning or ready
func (r *SessionRepository) GetActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE state IN ($1, $2) ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, domain.SessionStateProvisioning, domain.SessionStateReady)
	if err != nil {
		return nil, fmt.Errorf("failed to get active sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// GetTerminatedBetween retrieves sessions shut down inside [from, to)
func (r *SessionRepository) GetTerminatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE state = $1 AND shutdown_at >= $2 AND shutdown_at < $3
		ORDER BY shutdown_at`

	rows, err := r.db.QueryContext(ctx, query, domain.SessionStateTerminated, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get terminated sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var instanceID, instanceAddr, shutdownReason sql.NullString
	var readyAt, shutdownAt sql.NullTime
	var finalCost sql.NullFloat64

	err := row.Scan(
		&session.ID,
		&instanceID,
		&instanceAddr,
		&session.InstanceClass,
		&session.State,
		&session.ProblemSetID,
		&session.CreatedAt,
		&readyAt,
		&shutdownAt,
		&shutdownReason,
		&finalCost,
		&session.ExpectedParticipants,
		&session.ParticipantsServed,
		&session.EstimatedMinutes,
	)
	if err != nil {
		return nil, err
	}

	if instanceID.Valid {
		session.InstanceID = &instanceID.String
	}
	if instanceAddr.Valid {
		session.InstanceAddr = &instanceAddr.String
	}
	if readyAt.Valid {
		session.ReadyAt = &readyAt.Time
	}
	if shutdownAt.Valid {
		session.ShutdownAt = &shutdownAt.Time
	}
	if shutdownReason.Valid {
		reason := domain.ShutdownReason(shutdownReason.String)
		session.ShutdownReason = &reason
	}
	if finalCost.Valid {
		session.FinalCost = &finalCost.Float64
	}

	return &session, nil
}

func collectSessions(rows *sql.Rows) ([]*domain.Session, error) {
	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}
