package audit

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/heartvoice/heartvoice/internal/api"
)

// Handler exposes audit log queries.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns the authenticated user's audit trail, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims := api.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := DefaultListParams()
	q := r.URL.Query()
	params.EventType = q.Get("event_type")
	params.Severity = q.Get("severity")
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		params.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil && size > 0 {
		params.PageSize = size
	}

	logs, total, err := h.repo.ListByUser(r.Context(), userID, params)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if logs == nil {
		logs = []AuditLog{}
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}
