package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Context is the per-user continuation state of an in-progress
// multi-turn flow. A zero Context means no flow is in progress.
type Context struct {
	ExpectedIntent Intent    `json:"expected_intent,omitempty"`
	MemoryID       string    `json:"memory_id,omitempty"`
	PendingField   string    `json:"pending_field,omitempty"`
	NewValue       string    `json:"new_value,omitempty"`
	TouchedAt      time.Time `json:"touched_at,omitempty"`
}

// IsEmpty reports whether no flow is in progress.
func (c Context) IsEmpty() bool {
	return c.ExpectedIntent == "" && c.MemoryID == "" && c.PendingField == "" && c.NewValue == ""
}

// ContextStore holds conversation contexts keyed by user id. Entries
// expire so an abandoned flow cannot misroute later messages.
type ContextStore interface {
	Get(ctx context.Context, userID string) (Context, error)
	Set(ctx context.Context, userID string, c Context) error
	Clear(ctx context.Context, userID string) error
}

// RedisContextStore keeps contexts in Redis with a TTL.
type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisContextStore(client *redis.Client, ttl time.Duration) *RedisContextStore {
	return &RedisContextStore{client: client, ttl: ttl}
}

func contextKey(userID string) string {
	return "chat:context:" + userID
}

func (s *RedisContextStore) Get(ctx context.Context, userID string) (Context, error) {
	data, err := s.client.Get(ctx, contextKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Context{}, nil
		}
		return Context{}, fmt.Errorf("loading conversation context: %w", err)
	}

	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return Context{}, fmt.Errorf("decoding conversation context: %w", err)
	}
	return c, nil
}

func (s *RedisContextStore) Set(ctx context.Context, userID string, c Context) error {
	c.TouchedAt = time.Now()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding conversation context: %w", err)
	}
	if err := s.client.Set(ctx, contextKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing conversation context: %w", err)
	}
	return nil
}

func (s *RedisContextStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, contextKey(userID)).Err(); err != nil {
		return fmt.Errorf("clearing conversation context: %w", err)
	}
	return nil
}

// InMemoryContextStore is a map-backed store with lazy expiry, used in
// tests and single-process deployments.
type InMemoryContextStore struct {
	mu      sync.RWMutex
	entries map[string]Context
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemoryContextStore(ttl time.Duration) *InMemoryContextStore {
	return &InMemoryContextStore{
		entries: make(map[string]Context),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *InMemoryContextStore) Get(_ context.Context, userID string) (Context, error) {
	s.mu.RLock()
	c, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok {
		return Context{}, nil
	}
	if s.ttl > 0 && s.now().Sub(c.TouchedAt) > s.ttl {
		s.mu.Lock()
		delete(s.entries, userID)
		s.mu.Unlock()
		return Context{}, nil
	}
	return c, nil
}

func (s *InMemoryContextStore) Set(_ context.Context, userID string, c Context) error {
	c.TouchedAt = s.now()
	s.mu.Lock()
	s.entries[userID] = c
	s.mu.Unlock()
	return nil
}

func (s *InMemoryContextStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}
