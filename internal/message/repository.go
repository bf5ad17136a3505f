package message

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines message persistence operations.
type Repository interface {
	Create(ctx context.Context, msg *Message) error
	History(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, msg *Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	meta := msg.Meta
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, user_id, msg_id, sender, intent, content, meta, memory_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.UserID, msg.MsgID, msg.Sender, msg.Intent, msg.Content, meta, msg.MemoryID, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// History returns the most recent messages in chronological order,
// oldest first.
func (r *postgresRepository) History(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, msg_id, sender, intent, content, meta, memory_id, created_at
		 FROM messages
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("loading message history: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.MsgID, &m.Sender, &m.Intent, &m.Content, &m.Meta, &m.MemoryID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse so the newest message comes last.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *postgresRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE user_id = $1`,
		userID,
	).Scan(&count)
	return count, err
}
