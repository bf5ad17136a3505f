package users

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/heartvoice/heartvoice/internal/api"
)

// Handler serves the profile endpoints. Password hashing is injected so
// this package stays independent of the auth package, which already
// depends on users for registration.
type Handler struct {
	service         *Service
	hashPassword    func(password string) (string, error)
	comparePassword func(hash, password string) error
	validate        *validator.Validate
}

func NewHandler(service *Service, hashPassword func(string) (string, error), comparePassword func(hash, password string) error) *Handler {
	return &Handler{
		service:         service,
		hashPassword:    hashPassword,
		comparePassword: comparePassword,
		validate:        validator.New(),
	}
}

type updateNameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type updateAvatarRequest struct {
	AvatarURL string `json:"avatar_url" validate:"required,url,max=500"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
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

// GetProfile returns the authenticated user's profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if user == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSON(w, http.StatusOK, user)
}

// UpdateName changes the user's display name.
func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req updateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("name must be 1-100 characters"))
		return
	}

	if err := h.service.UpdateName(r.Context(), id, req.Name); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSONMessage(w, http.StatusOK, "name updated")
}

// UpdateAvatar changes the user's avatar URL.
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req updateAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("avatar_url must be a valid URL"))
		return
	}

	if err := h.service.UpdateAvatar(r.Context(), id, req.AvatarURL); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSONMessage(w, http.StatusOK, "avatar updated")
}

// UpdatePassword verifies the current password before setting a new one.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("new password must be 8-72 characters"))
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if user == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	if err := h.comparePassword(user.PasswordHash, req.CurrentPassword); err != nil {
		api.HandleError(w, api.ErrInvalidCredentials)
		return
	}

	hash, err := h.hashPassword(req.NewPassword)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.service.UpdatePassword(r.Context(), id, hash); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSONMessage(w, http.StatusOK, "password updated")
}
