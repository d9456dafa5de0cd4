package siggate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestDistributedNonceStoreRejectsReplay(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewDistributedNonceStore(client, time.Minute, "")
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "nonce-a"))
	err := store.CheckAndInsert(ctx, "nonce-a")
	require.Error(t, err)
}

func TestDistributedNonceStoreAllowsDistinctNonces(t *testing.T) {
	client := newTestRedisClient(t)
	store := NewDistributedNonceStore(client, time.Minute, "")
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "nonce-b"))
	require.NoError(t, store.CheckAndInsert(ctx, "nonce-c"))
}
