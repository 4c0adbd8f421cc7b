// package eventrepository contains the PostgreSQL lifecycle-event store
package eventrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ secondary.EventRepository = &EventRepository{}

// EventRepository implements the append-only lifecycle-event log with
// PostgreSQL. Rows are never updated or deleted.
type EventRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewEventRepository creates a new PostgreSQL event repository
func NewEventRepository(db *sqlx.DB, logger primary.Logger) *EventRepository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// AppendEvent durably appends a lifecycle event
func (r *EventRepository) AppendEvent(ctx context.Context, event *domain.LifecycleEvent) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		r.logger.Error("Failed to marshal event payload", "error", err)
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO lifecycle_events (id, session_id, kind, severity, message, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.SessionID,
		event.Kind,
		event.Severity,
		event.Message,
		event.CreatedAt,
		payloadJSON,
	)

	if err != nil {
		r.logger.Error("Failed to append lifecycle event", "kind", event.Kind, "error", err)
		return fmt.Errorf("failed to append lifecycle event: %w", err)
	}

	return nil
}

// GetEventsBySession retrieves events for a session, newest first
func (r *EventRepository) GetEventsBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.LifecycleEvent, error) {
	query := `
		SELECT id, session_id, kind, severity, message, created_at, payload
		FROM lifecycle_events
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get lifecycle events: %w", err)
	}
	defer rows.Close()

	var events []*domain.LifecycleEvent
	for rows.Next() {
		var event domain.LifecycleEvent
		var sessID sql.NullString
		var payloadJSON []byte

		err := rows.Scan(
			&event.ID,
			&sessID,
			&event.Kind,
			&event.Severity,
			&event.Message,
			&event.CreatedAt,
			&payloadJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lifecycle event: %w", err)
		}

		if sessID.Valid {
			id, err := uuid.Parse(sessID.String)
			if err == nil {
				event.SessionID = &id
			}
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
				r.logger.Warn("Failed to unmarshal event payload", "eventID", event.ID, "error", err)
			}
		}

		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lifecycle events: %w", err)
	}

	return events, nil
}
