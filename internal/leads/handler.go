package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/elite-waitlist/internal/funnel"
	"github.com/wolfman30/elite-waitlist/internal/observability/metrics"
	"github.com/wolfman30/elite-waitlist/internal/wizard"
	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

const maxAnswerBody = 16 << 10

// Handler handles HTTP requests for waitlist wizard sessions
type Handler struct {
	repo      Repository
	def       *funnel.Definition
	submitter wizard.Submitter
	logger    *logging.Logger
	metrics   *metrics.WaitlistMetrics
}

// NewHandler creates a new waitlist session handler
func NewHandler(repo Repository, def *funnel.Definition, submitter wizard.Submitter, logger *logging.Logger, m *metrics.WaitlistMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:      repo,
		def:       def,
		submitter: submitter,
		logger:    logger.Component("leads"),
		metrics:   m,
	}
}

// Routes mounts the session endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/steps", h.Steps)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Put("/answers/{key}", h.SetAnswer)
		r.Post("/advance", h.Advance)
		r.Post("/back", h.Back)
	})
	return r
}

// Steps handles GET /waitlist/steps requests
func (h *Handler) Steps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StepsResponse{
		Steps:        h.def.Steps,
		Confirmation: h.def.Confirmation,
	})
}

// CreateSession handles POST /waitlist/sessions requests
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := &Session{ID: uuid.NewString()}
	wz, err := wizard.New(h.def, h.submitter, wizard.WithObserver(h.observe(session.ID)))
	if err != nil {
		h.logger.Error("failed to mount wizard", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to start session"})
		return
	}
	session.Wizard = wz

	if err := h.repo.Create(r.Context(), session); err != nil {
		h.logger.Error("failed to store session", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to start session"})
		return
	}
	h.metrics.SetActiveSessions(h.repo.Count())
	h.logger.Info("wizard session created", "session_id", session.ID)

	w.Header().Set("Location", "/waitlist/sessions/"+session.ID)
	writeJSON(w, http.StatusCreated, NewSessionView(session, h.def))
}

// GetSession handles GET /waitlist/sessions/{sessionID} requests
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(session, h.def))
}

// SetAnswer handles PUT /waitlist/sessions/{sessionID}/answers/{key} requests.
// Values are stored as typed; acceptability is only checked on advance.
func (h *Handler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}

	var req SetAnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnswerBody)).Decode(&req); err != nil {
		h.logger.Debug("failed to decode answer", "error", err)
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	key := chi.URLParam(r, "key")
	if err := session.Wizard.SetAnswer(key, req.Value); err != nil {
		h.writeWizardError(w, session, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(session, h.def))
}

// Advance handles POST /waitlist/sessions/{sessionID}/advance requests
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}

	// The submission must not be torn down with the request.
	ctx := context.WithoutCancel(r.Context())
	if _, err := session.Wizard.Advance(ctx); err != nil {
		h.metrics.ObserveAdvance(advanceResult(err))
		h.writeWizardError(w, session, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(session, h.def))
}

// Back handles POST /waitlist/sessions/{sessionID}/back requests
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	if _, err := session.Wizard.Back(); err != nil {
		h.writeWizardError(w, session, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(session, h.def))
}

// DeleteSession handles DELETE /waitlist/sessions/{sessionID} requests
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.repo.Delete(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	session.Wizard.Close()
	h.metrics.SetActiveSessions(h.repo.Count())
	h.logger.Info("wizard session closed", "session_id", session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Sweep closes sessions idle for longer than ttl.
func (h *Handler) Sweep(ctx context.Context, ttl time.Duration) int {
	removed := h.repo.Sweep(ctx, time.Now().UTC().Add(-ttl))
	for _, session := range removed {
		session.Wizard.Close()
	}
	h.metrics.SetActiveSessions(h.repo.Count())
	if len(removed) > 0 {
		h.logger.Info("expired wizard sessions", "count", len(removed))
	}
	return len(removed)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (h *Handler) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep(ctx, ttl)
		}
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	session, err := h.repo.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return session, true
}

func (h *Handler) observe(sessionID string) func(wizard.Transition) {
	return func(tr wizard.Transition) {
		switch tr.To.Phase {
		case wizard.PhaseIdle:
			if tr.To.StepIndex < tr.From.StepIndex {
				h.metrics.ObserveAdvance("back")
				return
			}
			h.metrics.ObserveAdvance("moved")
		case wizard.PhaseSubmitting:
			h.metrics.ObserveAdvance("submitting")
		case wizard.PhaseSuccess:
			h.logger.Info("waitlist application submitted", "session_id", sessionID)
		case wizard.PhaseFailed:
			h.logger.Warn("waitlist submission failed", "session_id", sessionID, "reason", tr.To.FailureReason)
		}
	}
}

func (h *Handler) writeWizardError(w http.ResponseWriter, session *Session, err error) {
	view := NewSessionView(session, h.def)
	resp := ErrorResponse{Error: err.Error(), Session: &view}

	switch {
	case errors.Is(err, wizard.ErrIncomplete):
		resp.Field = view.Step.Key
		writeError(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, wizard.ErrUnknownField):
		writeError(w, http.StatusBadRequest, resp)
	case errors.Is(err, wizard.ErrSubmitting),
		errors.Is(err, wizard.ErrFinished),
		errors.Is(err, wizard.ErrNotIdle),
		errors.Is(err, wizard.ErrAtFirstStep),
		errors.Is(err, wizard.ErrClosed):
		writeError(w, http.StatusConflict, resp)
	default:
		h.logger.Error("wizard operation failed", "session_id", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func advanceResult(err error) string {
	switch {
	case errors.Is(err, wizard.ErrIncomplete):
		return "incomplete"
	case errors.Is(err, wizard.ErrSubmitting):
		return "busy"
	case errors.Is(err, wizard.ErrFinished):
		return "finished"
	case errors.Is(err, wizard.ErrClosed):
		return "closed"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	writeJSON(w, status, body)
}
