// Package cache stores per-user cart and tracking snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foodflow-backend/internal/models"

	"github.com/go-redis/redis/v8"
)

// DefaultPrefix namespaces snapshot keys
const DefaultPrefix = "foodflow:"

// DefaultSnapshotTTL expires abandoned carts and tracking state
const DefaultSnapshotTTL = 7 * 24 * time.Hour

// RedisSnapshotStore keeps snapshots as JSON strings under
// <prefix>cart:<user> and <prefix>tracking:<user>
type RedisSnapshotStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// StoreOption customizes the store
type StoreOption func(*RedisSnapshotStore)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) StoreOption {
	return func(s *RedisSnapshotStore) { s.prefix = prefix }
}

// WithTTL sets the snapshot expiry (0 keeps snapshots forever)
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *RedisSnapshotStore) { s.ttl = ttl }
}

// NewRedisSnapshotStore wraps a connected client
func NewRedisSnapshotStore(client *redis.Client, opts ...StoreOption) *RedisSnapshotStore {
	s := &RedisSnapshotStore{
		client: client,
		prefix: DefaultPrefix,
		ttl:    DefaultSnapshotTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect parses a redis:// URL and pings the server
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisSnapshotStore) cartKey(userID string) string {
	return s.prefix + "cart:" + userID
}

func (s *RedisSnapshotStore) trackingKey(userID string) string {
	return s.prefix + "tracking:" + userID
}

// LoadCart returns the stored cart or nil
func (s *RedisSnapshotStore) LoadCart(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	found, err := s.load(ctx, s.cartKey(userID), &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// SaveCart stores the cart; a nil cart deletes the record
func (s *RedisSnapshotStore) SaveCart(ctx context.Context, userID string, c *models.Cart) error {
	if c == nil {
		if err := s.client.Del(ctx, s.cartKey(userID)).Err(); err != nil {
			return fmt.Errorf("failed to delete cart snapshot: %w", err)
		}
		return nil
	}
	return s.save(ctx, s.cartKey(userID), c)
}

// LoadTracking returns the stored tracking snapshot or nil
func (s *RedisSnapshotStore) LoadTracking(ctx context.Context, userID string) (*models.TrackingSnapshot, error) {
	var snap models.TrackingSnapshot
	found, err := s.load(ctx, s.trackingKey(userID), &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

// SaveTracking stores the tracking snapshot; nil deletes the record
func (s *RedisSnapshotStore) SaveTracking(ctx context.Context, userID string, snap *models.TrackingSnapshot) error {
	if snap == nil {
		if err := s.client.Del(ctx, s.trackingKey(userID)).Err(); err != nil {
			return fmt.Errorf("failed to delete tracking snapshot: %w", err)
		}
		return nil
	}
	return s.save(ctx, s.trackingKey(userID), snap)
}

func (s *RedisSnapshotStore) load(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisSnapshotStore) save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
