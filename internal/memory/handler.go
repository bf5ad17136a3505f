package memory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/heartvoice/heartvoice/internal/api"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

type createRequest struct {
	ImageURL    string   `json:"image_url" validate:"omitempty,url,max=500"`
	Title       string   `json:"title" validate:"omitempty,max=200"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Labels      []string `json:"labels" validate:"omitempty,max=10,dive,max=50"`
}

type updateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url,max=500"`
	IsFavorite  *bool   `json:"is_favorite"`
}

type searchRequest struct {
	Query     string    `json:"query"`
	Embedding []float32 `json:"embedding"`
	Limit     int       `json:"limit" validate:"omitempty,gte=1,lte=100"`
	Threshold float64   `json:"threshold" validate:"omitempty,gte=0,lte=1"`
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	memories, total, err := h.service.ListByUser(r.Context(), userID, page, pageSize)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if memories == nil {
		memories = []Memory{}
	}

	api.JSONPaginated(w, http.StatusOK, memories, total, page, pageSize)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid memory fields"))
		return
	}

	mem, err := h.service.Create(r.Context(), userID, CreateMemoryParams{
		ImageURL:    req.ImageURL,
		Title:       req.Title,
		Description: req.Description,
		Labels:      req.Labels,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, mem)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid memory id"))
		return
	}

	mem, err := h.service.GetByID(r.Context(), id, userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if mem == nil {
		api.HandleError(w, api.ErrMemoryNotFound)
		return
	}

	api.JSON(w, http.StatusOK, mem)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid memory id"))
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid memory fields"))
		return
	}

	mem, err := h.service.Update(r.Context(), id, userID, UpdateMemoryParams{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsFavorite:  req.IsFavorite,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if mem == nil {
		api.HandleError(w, api.ErrMemoryNotFound)
		return
	}

	api.JSON(w, http.StatusOK, mem)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid memory id"))
		return
	}

	deleteType := DeleteMemory
	if r.URL.Query().Get("delete_type") == string(DeletePhoto) {
		deleteType = DeletePhoto
	}

	if err := h.service.Delete(r.Context(), id, userID, deleteType); err != nil {
		if errors.Is(err, ErrNotFound) {
			api.HandleError(w, api.ErrMemoryNotFound)
			return
		}
		api.HandleError(w, err)
		return
	}

	api.JSONMessage(w, http.StatusOK, "memory deleted")
}

// Search supports keyword search by default and switches to embedding
// similarity when an embedding vector is supplied.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("invalid search parameters"))
		return
	}
	if req.Query == "" && len(req.Embedding) == 0 {
		api.HandleError(w, api.NewBadRequestError("query or embedding is required"))
		return
	}

	if len(req.Embedding) > 0 {
		results, err := h.service.SearchSimilar(r.Context(), userID, req.Embedding, req.Limit, req.Threshold)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		if results == nil {
			results = []SearchResult{}
		}
		api.JSON(w, http.StatusOK, results)
		return
	}

	memories, err := h.service.Search(r.Context(), userID, req.Query, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if memories == nil {
		memories = []Memory{}
	}
	api.JSON(w, http.StatusOK, memories)
}
