package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisContextStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisContextStore(client, ttl), mr
}

func TestRedisContextStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	c := Context{ExpectedIntent: IntentSaveMemory, MemoryID: "mem-1"}
	require.NoError(t, store.Set(ctx, "user-1", c))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, IntentSaveMemory, got.ExpectedIntent)
	assert.Equal(t, "mem-1", got.MemoryID)
	assert.False(t, got.TouchedAt.IsZero())
}

func TestRedisContextStoreMissingUser(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)

	got, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRedisContextStoreClear(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user-1", Context{ExpectedIntent: IntentEditMemory}))
	require.NoError(t, store.Clear(ctx, "user-1"))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRedisContextStoreExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user-1", Context{ExpectedIntent: IntentUpdatePassword}))

	mr.FastForward(31 * time.Minute)

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty(), "abandoned flow must expire")
}

func TestInMemoryContextStoreRoundTrip(t *testing.T) {
	store := NewInMemoryContextStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user-1", Context{ExpectedIntent: IntentConfirmDelete, MemoryID: "m"}))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, IntentConfirmDelete, got.ExpectedIntent)

	require.NoError(t, store.Clear(ctx, "user-1"))
	got, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestInMemoryContextStoreLazyExpiry(t *testing.T) {
	store := NewInMemoryContextStore(30 * time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user-1", Context{ExpectedIntent: IntentSaveMemory}))

	store.now = func() time.Time { return now.Add(31 * time.Minute) }

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty(), "expired entry must be dropped on read")
}

func TestContextIsEmpty(t *testing.T) {
	assert.True(t, Context{}.IsEmpty())
	assert.True(t, Context{TouchedAt: time.Now()}.IsEmpty())
	assert.False(t, Context{ExpectedIntent: IntentChat}.IsEmpty())
	assert.False(t, Context{MemoryID: "m"}.IsEmpty())
	assert.False(t, Context{PendingField: "title"}.IsEmpty())
	assert.False(t, Context{NewValue: "v"}.IsEmpty())
}
