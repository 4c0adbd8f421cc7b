package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/gateway"
	"gitlab.com/examgrid-2026.net/internal/core/services/lifecycle"
	"gitlab.com/examgrid-2026.net/internal/core/services/session"
	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/handlers"
	"gitlab.com/examgrid-2026.net/internal/handlers/response"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

// SessionHandler handles session lifecycle API requests
type SessionHandler struct {
	sessionService session.ISessionService
	gatewayService gateway.IGatewayService
	coordinator    lifecycle.ICoordinatorService
	completion     lifecycle.ICompletionService
	events         secondary.EventRepository
	logger         primary.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	sessionService session.ISessionService,
	gatewayService gateway.IGatewayService,
	coordinator lifecycle.ICoordinatorService,
	completion lifecycle.ICompletionService,
	events secondary.EventRepository,
	logger primary.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		gatewayService: gatewayService,
		coordinator:    coordinator,
		completion:     completion,
		events:         events,
		logger:         logger,
	}
}

// RegisterRoutes registers the API routes for SessionHandler
func (h *SessionHandler) RegisterRoutes(router *mux.Router, mw *handlers.MiddlewareProvider) {
	router.HandleFunc("/api/sessions", h.ScheduleSession).Methods("POST")
	router.HandleFunc("/api/sessions/{sessionId}", h.GetSession).Methods("GET")
	router.HandleFunc("/api/sessions/{sessionId}/submissions/probe", h.RunProbe).Methods("POST")
	router.HandleFunc("/api/sessions/{sessionId}/submissions/final", h.RunFinal).Methods("POST")
	router.HandleFunc("/api/sessions/{sessionId}/completion", h.GetCompletion).Methods("GET")
	router.HandleFunc("/api/sessions/{sessionId}/events", h.GetEvents).Methods("GET")
	router.HandleFunc("/api/quota", h.GetQuota).Methods("GET")

	router.Handle("/api/sessions/{sessionId}/shutdown",
		mw.OperatorMiddleware(http.HandlerFunc(h.Shutdown))).Methods("POST")
	router.Handle("/api/sessions/{sessionId}/shutdown/emergency",
		mw.OperatorMiddleware(http.HandlerFunc(h.EmergencyShutdown))).Methods("POST")
}

// ScheduleSession handles session scheduling requests
func (h *SessionHandler) ScheduleSession(w http.ResponseWriter, r *http.Request) {
	var req ScheduleSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", "error", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	sess, err := h.sessionService.ScheduleSession(r.Context(), session.ScheduleRequest{
		ExpectedParticipants: req.ExpectedParticipants,
		EstimatedMinutes:     req.EstimatedMinutes,
		ProblemSetID:         req.ProblemSetID,
		InstanceClass:        domain.InstanceClass(req.InstanceClass),
	})
	if err != nil {
		h.writeServiceError(w, err, "Failed to schedule session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(ScheduleSessionResponse{
		SessionID: sess.ID,
		State:     string(sess.State),
	})
}

// GetSession handles session retrieval requests
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.sessionService.GetSession(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get session")
		return
	}

	response.WriteSuccess(w, sess)
}

// RunProbe handles probe submission requests
func (h *SessionHandler) RunProbe(w http.ResponseWriter, r *http.Request) {
	h.runSubmission(w, r, h.gatewayService.RunProbe)
}

// RunFinal handles final submission requests
func (h *SessionHandler) RunFinal(w http.ResponseWriter, r *http.Request) {
	h.runSubmission(w, r, h.gatewayService.RunFinal)
}

type runFunc func(ctx context.Context, sessionID uuid.UUID, problemID string, unit domain.SourceUnit) (*domain.ExecutionBatch, error)

func (h *SessionHandler) runSubmission(w http.ResponseWriter, r *http.Request, run runFunc) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", "error", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.ParticipantID == "" || req.ProblemID == "" || req.SourceCode == "" {
		http.Error(w, "participantId, problemId and sourceCode are required", http.StatusBadRequest)
		return
	}

	batch, err := run(r.Context(), sessionID, req.ProblemID, domain.SourceUnit{
		ParticipantID: req.ParticipantID,
		Language:      req.Language,
		SourceCode:    req.SourceCode,
	})
	if err != nil && batch == nil {
		h.writeServiceError(w, err, "Failed to run submission")
		return
	}

	resp := BatchResultResponse{
		BatchID:     batch.ID,
		Partial:     err != nil,
		PassedCount: batch.PassedCount(),
		TotalUnits:  len(batch.Units),
		Results:     make([]UnitResultResponse, 0, len(batch.Results)),
	}
	for _, res := range batch.Results {
		resp.Results = append(resp.Results, UnitResultResponse{
			Status:   string(res.Status),
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			TimeMs:   res.TimeMs,
			MemoryKB: res.MemoryKB,
			Passed:   res.Passed,
		})
	}
	if err != nil {
		h.logger.Warn("Submission resolved partially", "sessionID", sessionID, "error", err)
	}
	response.WriteSuccess(w, resp)
}

// GetCompletion handles completion status requests
func (h *SessionHandler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	status, err := h.completion.Status(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get completion status")
		return
	}

	response.WriteSuccess(w, status)
}

// GetEvents handles lifecycle event listing requests
func (h *SessionHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	events, err := h.events.GetEventsBySession(r.Context(), sessionID, 100)
	if err != nil {
		h.logger.Error("Failed to get events", "sessionID", sessionID, "error", err)
		http.Error(w, "Failed to get events", http.StatusInternalServerError)
		return
	}

	response.WriteSuccess(w, map[string]interface{}{"events": events})
}

// GetQuota handles quota usage requests
func (h *SessionHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	used, ceiling := h.gatewayService.QuotaUsage()
	response.WriteSuccess(w, map[string]int{"used": used, "ceiling": ceiling})
}

// Shutdown handles manual shutdown requests
func (h *SessionHandler) Shutdown(w http.ResponseWriter, r *http.Request) {
	h.shutdown(w, r, domain.ShutdownReasonManual, false)
}

// EmergencyShutdown handles forced teardown requests
func (h *SessionHandler) EmergencyShutdown(w http.ResponseWriter, r *http.Request) {
	h.shutdown(w, r, domain.ShutdownReasonEmergency, true)
}

func (h *SessionHandler) shutdown(w http.ResponseWriter, r *http.Request, reason domain.ShutdownReason, force bool) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.coordinator.Shutdown(r.Context(), sessionID, reason, force); err != nil {
		h.writeServiceError(w, err, "Failed to shut down session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	sessionID, err := uuid.Parse(vars["sessionId"])
	if err != nil {
		h.logger.Error("Invalid session ID", "id", vars["sessionId"])
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return sessionID, true
}

func (h *SessionHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	h.logger.Error(msg, "error", err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidParticipants),
		errors.Is(err, errs.ErrInvalidDuration):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrSessionNotReady),
		errors.Is(err, errs.ErrShutdownNotPermitted):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrQuotaExhausted),
		errors.Is(err, errs.ErrRateLimitExceeded):
		status = http.StatusTooManyRequests
	case errors.Is(err, errs.ErrRequestTimeout),
		errors.Is(err, errs.ErrMonitoringTimeout):
		status = http.StatusGatewayTimeout
	}

	response.WriteError(w, response.ErrorMessage{Message: err.Error(), StatusCode: status})
}
