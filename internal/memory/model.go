package memory

import (
	"time"

	"github.com/google/uuid"
)

// Memory is a user's saved moment: an optional photo plus title,
// description and auto-extracted labels.
type Memory struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ImageURL    string    `json:"image_url,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Labels      []string  `json:"labels"`
	Embedding   []float32 `json:"-"`
	MemoryDate  time.Time `json:"memory_date"`
	IsDeleted   bool      `json:"-"`
	IsFavorite  bool      `json:"is_favorite"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateMemoryParams struct {
	ImageURL    string
	Title       string
	Description string
	Labels      []string
	Embedding   []float32
}

// UpdateMemoryParams carries partial updates. Nil means leave unchanged.
type UpdateMemoryParams struct {
	Title       *string
	Description *string
	ImageURL    *string
	IsFavorite  *bool
}

// DeleteType selects between removing just the photo or the whole memory.
type DeleteType string

const (
	DeletePhoto  DeleteType = "photo"
	DeleteMemory DeleteType = "memory"
)

type SearchParams struct {
	Query     string
	Embedding []float32
	Limit     int
	Threshold float64
}
