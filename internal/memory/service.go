package memory

import (
	"context"

	"github.com/google/uuid"
)

const defaultSearchLimit = 5

// Service wraps the repository with label extraction and defaults.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateMemoryParams) (*Memory, error) {
	labels := params.Labels
	if len(labels) == 0 && params.Description != "" {
		labels = ExtractLabels(params.Description)
	}

	mem := &Memory{
		UserID:      userID,
		ImageURL:    params.ImageURL,
		Title:       params.Title,
		Description: params.Description,
		Labels:      labels,
		Embedding:   params.Embedding,
	}
	if err := s.repo.Create(ctx, mem); err != nil {
		return nil, err
	}
	return mem, nil
}

func (s *Service) GetByID(ctx context.Context, id, userID uuid.UUID) (*Memory, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Memory, int64, error) {
	memories, err := s.repo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return memories, total, nil
}

// Update applies partial changes. A new description re-extracts labels.
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, params UpdateMemoryParams) (*Memory, error) {
	return s.repo.Update(ctx, id, userID, params)
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID, deleteType DeleteType) error {
	return s.repo.Delete(ctx, id, userID, deleteType)
}

// Search runs a keyword search over titles and descriptions.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.repo.Search(ctx, userID, query, limit)
}

// SearchSimilar runs a cosine similarity search against stored embeddings.
func (s *Service) SearchSimilar(ctx context.Context, userID uuid.UUID, embedding []float32, limit int, threshold float64) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.repo.SearchSimilar(ctx, userID, embedding, limit, threshold)
}
