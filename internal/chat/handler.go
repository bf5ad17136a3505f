package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/heartvoice/heartvoice/internal/api"
	"github.com/heartvoice/heartvoice/internal/message"
)

// Handler exposes the conversation endpoints.
type Handler struct {
	orchestrator *Orchestrator
	contexts     ContextStore
	messages     message.Repository
	historyLimit int
	validate     *validator.Validate
}

func NewHandler(orchestrator *Orchestrator, contexts ContextStore, messages message.Repository, historyLimit int) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		contexts:     contexts,
		messages:     messages,
		historyLimit: historyLimit,
		validate:     validator.New(),
	}
}

func (h *Handler) userID(r *http.Request) (uuid.UUID, bool) {
	claims := api.GetUserClaims(r.Context())
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Send processes one conversation turn and returns the assistant reply
// in the fixed wire shape (unenveloped).
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var in Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		api.HandleError(w, api.NewValidationError("text must be 1-2000 characters"))
		return
	}

	out, err := h.orchestrator.HandleTurn(r.Context(), userID, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrMemoryNotFound):
			api.HandleError(w, api.ErrMemoryNotFound)
		case errors.Is(err, ErrInvalidInput):
			api.HandleError(w, api.NewValidationError(err.Error()))
		default:
			api.HandleError(w, err)
		}
		return
	}

	api.JSONRaw(w, http.StatusOK, out)
}

// History returns the last N messages, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	msgs, err := h.messages.History(r.Context(), userID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	total, err := h.messages.CountByUser(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	wire := make([]message.APIMessage, 0, len(msgs))
	for i := range msgs {
		wire = append(wire, msgs[i].ToAPI())
	}

	api.JSON(w, http.StatusOK, map[string]any{"messages": wire, "total": total})
}

// Context returns the user's current conversation context. Debug aid.
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	c, err := h.contexts.Get(r.Context(), userID.String())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, map[string]any{"context": c})
}

// ClearContext drops the user's conversation context, recovering a stuck flow.
func (h *Handler) ClearContext(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.contexts.Clear(r.Context(), userID.String()); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSONMessage(w, http.StatusOK, "context cleared")
}
