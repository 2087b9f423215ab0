package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/asktracker/asktracker-go/internal/middleware"
	"github.com/asktracker/asktracker-go/internal/model"
	"github.com/asktracker/asktracker-go/internal/service"
)

// FeedbackHandler handles HTTP requests for feedback owned by the caller.
type FeedbackHandler struct {
	service *service.FeedbackService
	logger  *slog.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(svc *service.FeedbackService, logger *slog.Logger) *FeedbackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackHandler{service: svc, logger: logger}
}

// HandleCreate handles POST /feedback requests.
func (h *FeedbackHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req model.CreateFeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleList handles GET /feedback requests.
func (h *FeedbackHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	resp, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /feedback/{feedback_id} requests.
func (h *FeedbackHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := feedbackID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdate handles PUT /feedback/{feedback_id} requests.
func (h *FeedbackHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := feedbackID(w, r)
	if !ok {
		return
	}

	var req model.UpdateFeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /feedback/{feedback_id} requests.
func (h *FeedbackHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := feedbackID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedbackHandler) caller(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusForbidden, errorResponse("Invalid authorization code."))
	}
	return userID, ok
}

func feedbackID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(chi.URLParam(r, "feedback_id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid feedback id"))
	}
	return id, ok
}

func (h *FeedbackHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrTitleRequired), errors.Is(err, service.ErrMessageRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrFeedbackNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse("Feedback not found"))
	default:
		h.logger.ErrorContext(r.Context(), "feedback request failed",
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}
