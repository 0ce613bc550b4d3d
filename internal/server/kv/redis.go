package kv

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

const scanBatch = 200

// RedisOptions configures the shared Redis client.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore maps one namespace onto keys "<prefix><namespace>:<key>".
// TTLs are native Redis expirations, PutIfAbsent is SET NX.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStoreWithClient builds a namespace view over an existing client.
// Tests pass a client pointed at miniredis.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix, namespace string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix + namespace + ":"}
}

// NewRedisNamespaces connects to Redis and returns the three namespaces
// sharing one client. The connection is checked with PING.
func NewRedisNamespaces(ctx context.Context, opts RedisOptions) (*Namespaces, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return redisNamespaces(client, opts.KeyPrefix), nil
}

func redisNamespaces(client redis.UniversalClient, keyPrefix string) *Namespaces {
	return &Namespaces{
		Secrets:  NewRedisStoreWithClient(client, keyPrefix, SecretsNamespace),
		Sessions: NewRedisStoreWithClient(client, keyPrefix, SessionsNamespace),
		Audit:    NewRedisStoreWithClient(client, keyPrefix, AuditNamespace),
		closer:   client.Close,
	}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) PutMany(ctx context.Context, items []Item, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, it := range items {
			p.Set(ctx, s.key(it.Key), it.Value, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis multi set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"

	keys := make([]string, 0)
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	// SCAN may return a key more than once.
	slices.Sort(keys)
	keys = slices.Compact(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
