package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/heartvoice/heartvoice/internal/api"
	"github.com/heartvoice/heartvoice/internal/users"
)

type Handler struct {
	authService *Service
	userService *users.Service
	validate    *validator.Validate
}

func NewHandler(authService *Service, userService *users.Service) *Handler {
	return &Handler{
		authService: authService,
		userService: userService,
		validate:    validator.New(),
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Gender   string `json:"gender" validate:"omitempty,oneof=male female other"`
	Age      *int   `json:"age" validate:"omitempty,gte=1,lte=150"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type registerResponse struct {
	User   *users.User `json:"user"`
	Tokens *TokenPair  `json:"tokens"`
}

// Register creates a new account and returns an initial token pair.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("username must be 3-50 characters and password 8-72"))
		return
	}

	exists, err := h.userService.ExistsByUsername(r.Context(), req.Username)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if exists {
		api.HandleError(w, api.ErrUsernameTaken)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	user, err := h.userService.Create(r.Context(), users.CreateUserParams{
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		Gender:       req.Gender,
		Age:          req.Age,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	tokens, err := h.authService.GenerateTokens(r.Context(), user.ID.String(), user.Username)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, registerResponse{User: user, Tokens: tokens})
}

// Login exchanges credentials for a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.ErrInvalidCredentials)
		return
	}

	user, err := h.userService.GetByUsername(r.Context(), req.Username)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if user == nil || !user.IsActive {
		api.HandleError(w, api.ErrInvalidCredentials)
		return
	}

	if err := ComparePassword(user.PasswordHash, req.Password); err != nil {
		api.HandleError(w, api.ErrInvalidCredentials)
		return
	}

	tokens, err := h.authService.GenerateTokens(r.Context(), user.ID.String(), user.Username)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, tokens)
}

// Refresh rotates a refresh token for a new token pair.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.ErrInvalidToken)
		return
	}

	tokens, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		api.HandleError(w, api.ErrInvalidToken)
		return
	}

	api.JSON(w, http.StatusOK, tokens)
}

// Logout revokes all refresh tokens for the authenticated user.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := api.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), claims.UserID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSONMessage(w, http.StatusOK, "logged out")
}
