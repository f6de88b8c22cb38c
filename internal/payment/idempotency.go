package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrKeyNotFound = errors.New("idempotency key not found")

// IdempotencyStore persists authorization results keyed by the
// caller-supplied idempotency key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*Result, error)
	Put(ctx context.Context, key string, result *Result) error
}

// MemoryStore is an in-process IdempotencyStore.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]Result)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return &r, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = *result
	return nil
}

// RedisStore keeps idempotency results in Redis so retried requests
// are recognized across process restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Result, error) {
	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result failed: %w", err)
	}
	return &result, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, result *Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result failed: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return fmt.Sprintf("payment:idem:%s", key)
}
