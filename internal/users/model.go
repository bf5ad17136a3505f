package users

import (
	"time"

	"github.com/google/uuid"
)

// User holds the companion user's account and profile data.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Gender       string    `json:"gender,omitempty"`
	Age          *int      `json:"age,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateUserParams struct {
	Username     string
	PasswordHash string
	Name         string
	Gender       string
	Age          *int
}
