package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibolsen/campus-portal/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestRevocationStore_RevokeAndCheck(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRevocationStore(client)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "sess-1", time.Now().Add(time.Minute)))

	revoked, err = store.IsRevoked(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, "portal:revoked:sess-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestRevocationStore_ExpiredArtifactIsNoop(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewRevocationStoreWithPrefix(client, "test:revoked:")
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "old", time.Now().Add(-time.Second)))
	n, err := client.Exists(ctx, "test:revoked:old").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRevocationStore_EmptyID(t *testing.T) {
	store := NewRevocationStore(nil)
	assert.Error(t, store.Revoke(context.Background(), "", time.Now().Add(time.Minute)))

	revoked, err := store.IsRevoked(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryRevocationStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, store.Revoke(ctx, "stale", now.Add(-time.Minute)))

	revoked, err := store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked, "entry should lapse with the artifact")

	assert.Error(t, store.Revoke(ctx, "", now.Add(time.Minute)))
}
