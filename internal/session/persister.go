package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:session:"

// Persister stores small string values per browser session. Load returns an
// empty string when nothing is stored under key.
type Persister interface {
	Load(ctx context.Context, sid, key string) (string, error)
	Save(ctx context.Context, sid, key, value string) error
	Delete(ctx context.Context, sid, key string) error
}

// RedisPersister implements Persister using Redis with a per-key TTL.
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister creates a Redis-backed persister. A zero ttl keeps keys
// until they are deleted.
func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

func redisKey(sid, key string) string {
	return keyPrefix + sid + ":" + key
}

// Load reads the value stored under key.
func (p *RedisPersister) Load(ctx context.Context, sid, key string) (string, error) {
	v, err := p.client.Get(ctx, redisKey(sid, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get session %s: %w", key, err)
	}
	return v, nil
}

// Save stores value under key with the configured TTL.
func (p *RedisPersister) Save(ctx context.Context, sid, key, value string) error {
	if err := p.client.Set(ctx, redisKey(sid, key), value, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (p *RedisPersister) Delete(ctx context.Context, sid, key string) error {
	if err := p.client.Del(ctx, redisKey(sid, key)).Err(); err != nil {
		return fmt.Errorf("redis del session %s: %w", key, err)
	}
	return nil
}

// MemoryPersister keeps values in process memory. Used by tests and by
// single-instance development setups without Redis.
type MemoryPersister struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryPersister creates an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{values: make(map[string]string)}
}

// Load implements Persister.
func (p *MemoryPersister) Load(_ context.Context, sid, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values[redisKey(sid, key)], nil
}

// Save implements Persister.
func (p *MemoryPersister) Save(_ context.Context, sid, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[redisKey(sid, key)] = value
	return nil
}

// Delete implements Persister.
func (p *MemoryPersister) Delete(_ context.Context, sid, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, redisKey(sid, key))
	return nil
}
