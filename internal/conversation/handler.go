package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/scam-honeypot/internal/report"
	"github.com/wolfman30/scam-honeypot/internal/state"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

const maxBodyBytes = 1 << 20

// Processor is the part of Service the HTTP layer needs.
type Processor interface {
	ProcessMessage(ctx context.Context, req Request) (*report.Response, error)
	Conversation(ctx context.Context, id string) (*state.State, error)
}

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service Processor
	logger  *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(service Processor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type errorBody struct {
	Status string   `json:"status"`
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// Message handles POST /api/v1/honeypot/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("failed to decode message request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorBody{Status: "error", Error: "invalid request body"})
		return
	}

	resp, err := h.service.ProcessMessage(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Conversation handles GET /admin/conversations/{id}.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.service.Conversation(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, errorBody{Status: "error", Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, state.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorBody{Status: "error", Error: "conversation not found"})
	case errors.Is(err, state.ErrStateConflict),
		errors.Is(err, state.ErrUnavailable),
		errors.Is(err, state.ErrLockUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("conversation temporarily unavailable", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, errorBody{Status: "error", Error: "temporarily unavailable, retry"})
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		h.logger.Info("request cancelled", "error", err)
	default:
		h.logger.Error("failed to process message", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorBody{Status: "error", Error: "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
