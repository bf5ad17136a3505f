package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Repository defines memory persistence operations.
type Repository interface {
	Create(ctx context.Context, mem *Memory) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*Memory, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Memory, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, id, userID uuid.UUID, params UpdateMemoryParams) (*Memory, error)
	Delete(ctx context.Context, id, userID uuid.UUID, deleteType DeleteType) error
	Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]Memory, error)
	SearchSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, limit int, threshold float64) ([]SearchResult, error)
}

// SearchResult pairs a memory with its cosine similarity score.
type SearchResult struct {
	Memory     Memory  `json:"memory"`
	Similarity float64 `json:"similarity"`
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed memory repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const memoryColumns = `id, user_id, image_url, title, description, labels,
	memory_date, is_deleted, is_favorite, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, mem *Memory) error {
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}
	if mem.Labels == nil {
		mem.Labels = []string{}
	}
	labelsJSON, err := json.Marshal(mem.Labels)
	if err != nil {
		return fmt.Errorf("encoding labels: %w", err)
	}

	now := time.Now()
	mem.MemoryDate = now
	mem.CreatedAt = now
	mem.UpdatedAt = now

	if len(mem.Embedding) > 0 {
		vec := pgvector.NewVector(mem.Embedding)
		_, err = r.pool.Exec(ctx,
			`INSERT INTO memories (id, user_id, image_url, title, description, labels, embedding,
			                       memory_date, is_deleted, is_favorite, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, false, $9, $10)`,
			mem.ID, mem.UserID, mem.ImageURL, mem.Title, mem.Description, labelsJSON, vec,
			mem.MemoryDate, mem.CreatedAt, mem.UpdatedAt,
		)
	} else {
		_, err = r.pool.Exec(ctx,
			`INSERT INTO memories (id, user_id, image_url, title, description, labels,
			                       memory_date, is_deleted, is_favorite, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, false, false, $8, $9)`,
			mem.ID, mem.UserID, mem.ImageURL, mem.Title, mem.Description, labelsJSON,
			mem.MemoryDate, mem.CreatedAt, mem.UpdatedAt,
		)
	}
	if err != nil {
		return fmt.Errorf("inserting memory: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*Memory, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+memoryColumns+`
		 FROM memories
		 WHERE id = $1 AND user_id = $2 AND is_deleted = false`,
		id, userID,
	)
	return scanMemoryRow(row)
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Memory, error) {
	offset := (page - 1) * pageSize
	rows, err := r.pool.Query(ctx,
		`SELECT `+memoryColumns+`
		 FROM memories
		 WHERE user_id = $1 AND is_deleted = false
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, pageSize, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (r *postgresRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM memories WHERE user_id = $1 AND is_deleted = false`,
		userID,
	).Scan(&count)
	return count, err
}

func (r *postgresRepository) Update(ctx context.Context, id, userID uuid.UUID, params UpdateMemoryParams) (*Memory, error) {
	mem, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, nil
	}

	if params.Title != nil {
		mem.Title = *params.Title
	}
	if params.Description != nil {
		mem.Description = *params.Description
		mem.Labels = ExtractLabels(*params.Description)
	}
	if params.ImageURL != nil {
		mem.ImageURL = *params.ImageURL
	}
	if params.IsFavorite != nil {
		mem.IsFavorite = *params.IsFavorite
	}
	mem.UpdatedAt = time.Now()

	labelsJSON, err := json.Marshal(mem.Labels)
	if err != nil {
		return nil, fmt.Errorf("encoding labels: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE memories
		 SET title = $3, description = $4, image_url = $5, labels = $6,
		     is_favorite = $7, updated_at = $8
		 WHERE id = $1 AND user_id = $2 AND is_deleted = false`,
		id, userID, mem.Title, mem.Description, mem.ImageURL, labelsJSON,
		mem.IsFavorite, mem.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("updating memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return mem, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id, userID uuid.UUID, deleteType DeleteType) error {
	query := `UPDATE memories SET is_deleted = true, updated_at = NOW()
	          WHERE id = $1 AND user_id = $2 AND is_deleted = false`
	if deleteType == DeletePhoto {
		query = `UPDATE memories SET image_url = '', updated_at = NOW()
		         WHERE id = $1 AND user_id = $2 AND is_deleted = false`
	}

	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("deleting memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]Memory, error) {
	pattern := "%" + query + "%"
	rows, err := r.pool.Query(ctx,
		`SELECT `+memoryColumns+`
		 FROM memories
		 WHERE user_id = $1 AND is_deleted = false
		   AND (title ILIKE $2 OR description ILIKE $2)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (r *postgresRepository) SearchSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, limit int, threshold float64) ([]SearchResult, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT `+memoryColumns+`, 1 - (embedding <=> $2) AS similarity
		 FROM memories
		 WHERE user_id = $1 AND is_deleted = false
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $2) >= $3
		 ORDER BY embedding <=> $2
		 LIMIT $4`,
		userID, vec, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching similar memories: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var m Memory
		var labelsJSON []byte
		var similarity float64
		if err := rows.Scan(&m.ID, &m.UserID, &m.ImageURL, &m.Title, &m.Description, &labelsJSON,
			&m.MemoryDate, &m.IsDeleted, &m.IsFavorite, &m.CreatedAt, &m.UpdatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if err := json.Unmarshal(labelsJSON, &m.Labels); err != nil {
			m.Labels = []string{}
		}
		results = append(results, SearchResult{Memory: m, Similarity: similarity})
	}
	return results, rows.Err()
}

// ErrNotFound is returned when a memory does not exist or belongs to another user.
var ErrNotFound = errors.New("memory not found")

func scanMemoryRow(row pgx.Row) (*Memory, error) {
	var m Memory
	var labelsJSON []byte
	err := row.Scan(&m.ID, &m.UserID, &m.ImageURL, &m.Title, &m.Description, &labelsJSON,
		&m.MemoryDate, &m.IsDeleted, &m.IsFavorite, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting memory: %w", err)
	}
	if err := json.Unmarshal(labelsJSON, &m.Labels); err != nil {
		m.Labels = []string{}
	}
	return &m, nil
}

func scanMemories(rows pgx.Rows) ([]Memory, error) {
	var memories []Memory
	for rows.Next() {
		var m Memory
		var labelsJSON []byte
		if err := rows.Scan(&m.ID, &m.UserID, &m.ImageURL, &m.Title, &m.Description, &labelsJSON,
			&m.MemoryDate, &m.IsDeleted, &m.IsFavorite, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		if err := json.Unmarshal(labelsJSON, &m.Labels); err != nil {
			m.Labels = []string{}
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}
