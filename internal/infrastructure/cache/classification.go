// Package cache memoizes classifier answers so identical text always maps to the same group.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
)

const keyPrefix = "procuro:classification:"

// Store keeps classification results by key
type Store interface {
	Get(ctx context.Context, key string) (*port.Classification, bool, error)
	Set(ctx context.Context, key string, c *port.Classification) error
}

// Key derives the cache key for a classifier input. Case and whitespace runs are ignored.
func Key(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// CachedClassifier wraps a classifier with a result cache
type CachedClassifier struct {
	next   port.Classifier
	store  Store
	logger *zap.Logger
}

// NewCachedClassifier creates a caching decorator around next
func NewCachedClassifier(next port.Classifier, store Store, logger *zap.Logger) *CachedClassifier {
	return &CachedClassifier{
		next:   next,
		store:  store,
		logger: logger,
	}
}

// Classify returns the cached answer when present. Cache errors degrade to a direct call.
func (c *CachedClassifier) Classify(ctx context.Context, text string) (*port.Classification, error) {
	key := Key(text)

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Classification cache read failed", zap.Error(err))
	} else if ok {
		c.logger.Debug("Classification cache hit", zap.String("commodity_group_id", cached.CommodityGroupID))
		return cached, nil
	}

	result, err := c.next.Classify(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, result); err != nil {
		c.logger.Warn("Classification cache write failed", zap.Error(err))
	}
	return result, nil
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]port.Classification
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]port.Classification)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*port.Classification, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &c, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, c *port.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = *c
	return nil
}

// RedisStore shares classification results between instances
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A zero ttl keeps entries forever.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*port.Classification, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var c port.Classification
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, false, fmt.Errorf("decode cached classification: %w", err)
	}
	return &c, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, c *port.Classification) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

var (
	_ port.Classifier = (*CachedClassifier)(nil)
	_ Store           = (*MemoryStore)(nil)
	_ Store           = (*RedisStore)(nil)
)
