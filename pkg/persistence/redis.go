package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCommands is the subset of redis.Cmdable the store relies on.
type RedisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps each snapshot under prefix+identifier.
type RedisStore struct {
	client RedisCommands
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL expires snapshots after d. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func NewRedisStore(client RedisCommands, prefix string, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: prefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("persistence: redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) key(identifier string) string {
	return s.prefix + identifier
}

func (s *RedisStore) Save(ctx context.Context, identifier string, data []byte) error {
	if err := checkIdentifier(identifier); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(identifier), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("persistence: redis save: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, identifier string) ([]byte, error) {
	if err := checkIdentifier(identifier); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: redis load: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Clear(ctx context.Context, identifier string) error {
	if err := checkIdentifier(identifier); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("persistence: redis clear: %w", err)
	}
	return nil
}
