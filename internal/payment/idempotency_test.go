package payment

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and a RedisStore on it.
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStore_GetMiss(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_PutGet(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	in := &Result{Status: StatusCaptured, TransactionID: "TXN-123"}
	require.NoError(t, store.Put(ctx, "key-1", in))

	out, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.TransactionID, out.TransactionID)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key-1", &Result{Status: StatusCaptured, TransactionID: "TXN-1"}))

	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "key-1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := setupTestRedis(t)

	mr.Set(redisKey("key-1"), "{not json")

	_, err := store.Get(context.Background(), "key-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, "key-1", &Result{Status: StatusCaptured, TransactionID: "TXN-9"}))

	out, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "TXN-9", out.TransactionID)
}
