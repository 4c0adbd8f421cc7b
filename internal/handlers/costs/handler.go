package costs

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/services/cost"
	"gitlab.com/examgrid-2026.net/internal/core/services/session"
	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/handlers/response"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

// CostHandler handles cost reporting API requests
type CostHandler struct {
	accountant     cost.IAccountantService
	sessionService session.ISessionService
	logger         primary.Logger
}

// NewCostHandler creates a new cost handler
func NewCostHandler(accountant cost.IAccountantService, sessionService session.ISessionService, logger primary.Logger) *CostHandler {
	return &CostHandler{
		accountant:     accountant,
		sessionService: sessionService,
		logger:         logger,
	}
}

// RegisterRoutes registers the API routes for CostHandler
func (h *CostHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/sessions/{sessionId}/cost", h.GetSessionCost).Methods("GET")
	router.HandleFunc("/api/sessions/{sessionId}/cost/report", h.GetCostReport).Methods("GET")
	router.HandleFunc("/api/costs/summary", h.GetSummary).Methods("GET")
}

// GetSessionCost reports running and projected cost for a live session, or
// the finalized cost for a terminated one.
func (h *CostHandler) GetSessionCost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, err := uuid.Parse(vars["sessionId"])
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	sess, err := h.sessionService.GetSession(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if err == errs.ErrSessionNotFound {
			status = http.StatusNotFound
		}
		h.logger.Error("Failed to get session for cost report", "sessionID", sessionID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: err.Error(), StatusCode: status})
		return
	}

	if sess.State == domain.SessionStateTerminated && sess.FinalCost != nil {
		response.WriteSuccess(w, map[string]interface{}{
			"sessionId": sess.ID,
			"finalCost": *sess.FinalCost,
		})
		return
	}

	current, projected := h.accountant.RealTime(sess, time.Now())
	response.WriteSuccess(w, map[string]interface{}{
		"sessionId": sess.ID,
		"current":   current,
		"projected": projected,
	})
}

// GetCostReport returns the full cost breakdown alongside session usage
// figures.
func (h *CostHandler) GetCostReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, err := uuid.Parse(vars["sessionId"])
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	sess, err := h.sessionService.GetSession(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if err == errs.ErrSessionNotFound {
			status = http.StatusNotFound
		}
		response.WriteError(w, response.ErrorMessage{Message: err.Error(), StatusCode: status})
		return
	}

	now := time.Now()
	breakdown := h.accountant.Breakdown(sess.Elapsed(now), sess.InstanceClass)
	report := map[string]interface{}{
		"sessionId":            sess.ID,
		"state":                sess.State,
		"instanceClass":        sess.InstanceClass,
		"breakdown":            breakdown,
		"participantsServed":   sess.ParticipantsServed,
		"expectedParticipants": sess.ExpectedParticipants,
	}
	if sess.FinalCost != nil {
		report["finalCost"] = *sess.FinalCost
	}
	response.WriteSuccess(w, report)
}

// GetSummary aggregates finalized costs over a query window. Defaults to the
// last 24 hours.
func (h *CostHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Invalid from timestamp", http.StatusBadRequest)
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Invalid to timestamp", http.StatusBadRequest)
			return
		}
		to = t
	}

	summary, err := h.accountant.PeriodSummary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("Failed to build cost summary", "error", err)
		http.Error(w, "Failed to build cost summary", http.StatusInternalServerError)
		return
	}

	response.WriteSuccess(w, summary)
}
