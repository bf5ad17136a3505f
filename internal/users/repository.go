package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const userColumns = `id, username, password_hash, name, gender, age, avatar_url, is_active, is_verified, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, password_hash, name, gender, age, avatar_url, is_active, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.Name, user.Gender, user.Age,
		user.AvatarURL, user.IsActive, user.IsVerified, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

func (r *postgresRepository) scanOne(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Name, &user.Gender, &user.Age,
		&user.AvatarURL, &user.IsActive, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking username existence: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return r.updateField(ctx, id, "name", name)
}

func (r *postgresRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	return r.updateField(ctx, id, "avatar_url", avatarURL)
}

func (r *postgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.updateField(ctx, id, "password_hash", passwordHash)
}

func (r *postgresRepository) updateField(ctx context.Context, id uuid.UUID, column, value string) error {
	query := fmt.Sprintf(`UPDATE users SET %s = $2, updated_at = NOW() WHERE id = $1`, column)

	result, err := r.pool.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
