package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

// Registry is the in-memory arena of live sessions. Every state transition
// goes through its guards, so idempotency and ordering invariants are
// enforced in one place instead of being re-checked by every caller.
// Entries are kept after termination for the lifetime of the process.
type Registry struct {
	sessions *xsync.MapOf[uuid.UUID, *entry]
}

type entry struct {
	mu      sync.Mutex
	session *domain.Session
}

func New() *Registry {
	return &Registry{
		sessions: xsync.NewMapOf[uuid.UUID, *entry](),
	}
}

// Add registers a freshly created session.
func (r *Registry) Add(session *domain.Session) {
	r.sessions.Store(session.ID, &entry{session: session})
}

// Get returns a snapshot copy of the session.
func (r *Registry) Get(sessionID uuid.UUID) (*domain.Session, error) {
	e, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.session), nil
}

// Update applies fn to the session under its lock and returns a snapshot of
// the result. fn must not transition the state; use Transition for that.
func (r *Registry) Update(sessionID uuid.UUID, fn func(*domain.Session)) (*domain.Session, error) {
	e, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.session)
	return snapshot(e.session), nil
}

// Transition moves the session to next, applying fn to record transition
// side effects (timestamps, reasons) under the same lock. Illegal
// transitions fail with ErrIllegalTransition.
func (r *Registry) Transition(sessionID uuid.UUID, next domain.SessionState, fn func(*domain.Session)) (*domain.Session, error) {
	e, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.session.State.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", errs.ErrIllegalTransition, e.session.State, next)
	}
	e.session.State = next
	if fn != nil {
		fn(e.session)
	}
	return snapshot(e.session), nil
}

// CompareAndTransition is the idempotency guard for shutdown entry: it moves
// the session to next exactly once. When the session is already at or past
// next the call reports applied=false with no side effects. A session that
// cannot legally reach next fails with ErrIllegalTransition.
func (r *Registry) CompareAndTransition(sessionID uuid.UUID, next domain.SessionState, fn func(*domain.Session)) (*domain.Session, bool, error) {
	e, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, false, errs.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.State.AtOrPast(next) {
		return snapshot(e.session), false, nil
	}
	if !e.session.State.CanTransitionTo(next) {
		return nil, false, fmt.Errorf("%w: %s -> %s", errs.ErrIllegalTransition, e.session.State, next)
	}
	e.session.State = next
	if fn != nil {
		fn(e.session)
	}
	return snapshot(e.session), true, nil
}

// Active returns snapshots of all sessions not yet in a terminal state.
func (r *Registry) Active() []*domain.Session {
	var out []*domain.Session
	r.sessions.Range(func(_ uuid.UUID, e *entry) bool {
		e.mu.Lock()
		if !e.session.State.Terminal() {
			out = append(out, snapshot(e.session))
		}
		e.mu.Unlock()
		return true
	})
	return out
}

func snapshot(s *domain.Session) *domain.Session {
	cp := *s
	return &cp
}
