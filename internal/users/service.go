package users

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, params CreateUserParams) (*User, error) {
	now := time.Now()
	user := &User{
		ID:           uuid.New(),
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		Name:         params.Name,
		Gender:       params.Gender,
		Age:          params.Age,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.repo.ExistsByUsername(ctx, username)
}

func (s *Service) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return s.repo.UpdateName(ctx, id, name)
}

func (s *Service) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	return s.repo.UpdateAvatar(ctx, id, avatarURL)
}

func (s *Service) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}
