package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-vault/internal/api/shared"
	"github.com/phrazzld/scry-vault/internal/domain"
	"github.com/phrazzld/scry-vault/internal/platform/logger"
	"github.com/phrazzld/scry-vault/internal/redact"
	"github.com/phrazzld/scry-vault/internal/service"
	"github.com/phrazzld/scry-vault/internal/session"
)

// SessionIDParam is the chi URL parameter holding the session ID.
const SessionIDParam = "id"

// StudyHandler serves the study API.
type StudyHandler struct {
	studyService service.StudyService
	source       service.ContainerSource
	logger       *slog.Logger
}

// NewStudyHandler creates a new StudyHandler
func NewStudyHandler(
	studyService service.StudyService,
	source service.ContainerSource,
	logger *slog.Logger,
) *StudyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudyHandler{
		studyService: studyService,
		source:       source,
		logger:       logger.With(slog.String("component", "study_handler")),
	}
}

// GetContainer handles GET /container. It serves the raw encrypted bytes so a
// client can decrypt locally.
func (h *StudyHandler) GetContainer(w http.ResponseWriter, r *http.Request) {
	blob, err := h.source.Load(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load flashcards")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		h.log(r).Error("failed to write container", redact.ErrorAttr(err))
	}
}

// StartSession handles POST /api/sessions
func (h *StudyHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	id, view, err := h.studyService.Start(r.Context(), *req.Password)
	if err != nil {
		log.Info("unlock rejected", slog.String("kind", domain.Kind(err)))
		HandleAPIError(w, r, err, "Failed to start study session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, SessionResponse{ID: id, View: view})
}

// GetSession handles GET /api/sessions/{id}
func (h *StudyHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	view, err := h.studyService.View(r.Context(), id)
	h.respondView(w, r, id, view, err)
}

// SubmitAnswer handles POST /api/sessions/{id}/answer
func (h *StudyHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	outcome, view, err := h.studyService.Answer(r.Context(), id, *req.Choice)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AnswerResponse{
		SessionResponse: SessionResponse{ID: id, View: view},
		Outcome:         outcome,
	})
}

// Next handles POST /api/sessions/{id}/next
func (h *StudyHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.studyService.Next)
}

// Previous handles POST /api/sessions/{id}/previous
func (h *StudyHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.studyService.Previous)
}

// Restart handles POST /api/sessions/{id}/restart
func (h *StudyHandler) Restart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.studyService.Restart)
}

// Shuffle handles POST /api/sessions/{id}/shuffle
func (h *StudyHandler) Shuffle(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.studyService.Shuffle)
}

// EndSession handles DELETE /api/sessions/{id}
func (h *StudyHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.studyService.End(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to end study session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StudyHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id uuid.UUID) (session.View, error),
) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	view, err := op(r.Context(), id)
	h.respondView(w, r, id, view, err)
}

func (h *StudyHandler) respondView(w http.ResponseWriter, r *http.Request, id uuid.UUID, view session.View, err error) {
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update study session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SessionResponse{ID: id, View: view})
}

// sessionID parses the {id} path parameter, writing a 400 when it is invalid.
func (h *StudyHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, SessionIDParam)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		if err == nil {
			err = errors.New("nil session id")
		}
		h.log(r).Debug("invalid session id", slog.String("value", raw))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid session ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *StudyHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}
