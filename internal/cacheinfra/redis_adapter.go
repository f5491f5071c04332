package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig configures the redis backed client.
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`

	// KeyPrefix namespaces every key written by the client. It is stripped from
	// keys returned by Keys, Del and Clear. It must not contain glob metacharacters.
	KeyPrefix string `json:"key_prefix"`

	// TTL applies to every Set. Zero keeps entries until deleted.
	TTL time.Duration `json:"ttl"`

	// ScanCount is the COUNT hint passed to SCAN.
	ScanCount int64 `json:"scan_count"`

	// DialTimeout bounds the initial ping.
	DialTimeout time.Duration `json:"dial_timeout"`
}

// DefaultRedisConfig returns a RedisConfig pointing at a local redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:     "localhost:6379",
		PoolSize:    10,
		ScanCount:   100,
		DialTimeout: 5 * time.Second,
	}
}

// Validate checks if the configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.Address == "" {
		return &ConfigError{Field: "Address", Message: "cannot be empty"}
	}
	if c.DB < 0 {
		return &ConfigError{Field: "DB", Message: "must be non-negative"}
	}
	if c.PoolSize < 0 {
		return &ConfigError{Field: "PoolSize", Message: "must be non-negative"}
	}
	if err := validateKeyPrefix(c.KeyPrefix); err != nil {
		return err
	}
	if c.TTL < 0 {
		return &ConfigError{Field: "TTL", Message: "must be non-negative"}
	}
	if c.ScanCount < 0 {
		return &ConfigError{Field: "ScanCount", Message: "must be non-negative"}
	}
	return nil
}

// validateKeyPrefix rejects prefixes SCAN MATCH would read as a pattern.
func validateKeyPrefix(prefix string) error {
	if strings.ContainsAny(prefix, `*?[]\`) {
		return &ConfigError{Field: "KeyPrefix", Message: "cannot contain glob metacharacters"}
	}
	return nil
}

// RedisClient is a cache client backed by a shared redis instance.
type RedisClient struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	scanCount int64
	owned     bool

	closeOnce sync.Once
	closeErr  error
}

// NewRedisClient validates cfg, connects and pings redis.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client := newRedisClient(rdb, cfg.KeyPrefix, cfg.TTL)
	client.scanCount = cfg.ScanCount
	client.owned = true
	return client, nil
}

// NewRedisClientFrom wraps an existing go-redis client. The caller keeps
// ownership of rdb and Close will not close it. keyPrefix must not contain glob
// metacharacters.
func NewRedisClientFrom(rdb *redis.Client, keyPrefix string, ttl time.Duration) (*RedisClient, error) {
	if rdb == nil {
		return nil, &ConfigError{Field: "Client", Message: "cannot be nil"}
	}
	if err := validateKeyPrefix(keyPrefix); err != nil {
		return nil, err
	}
	if ttl < 0 {
		return nil, &ConfigError{Field: "TTL", Message: "must be non-negative"}
	}
	return newRedisClient(rdb, keyPrefix, ttl), nil
}

func newRedisClient(rdb *redis.Client, keyPrefix string, ttl time.Duration) *RedisClient {
	return &RedisClient{
		rdb:       rdb,
		prefix:    keyPrefix,
		ttl:       ttl,
		scanCount: 100,
	}
}

// Set stores value under key.
func (r *RedisClient) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key. redis.Nil maps to a miss.
func (r *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, true, nil
}

// Keys returns the keys matching any of the patterns using SCAN.
func (r *RedisClient) Keys(ctx context.Context, patterns ...string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		iter := r.rdb.Scan(ctx, 0, r.prefix+pattern, r.scanCount).Iterator()
		for iter.Next(ctx) {
			seen[strings.TrimPrefix(iter.Val(), r.prefix)] = struct{}{}
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("redis scan %q: %w", pattern, err)
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Del removes the keys matching any of the patterns. Keys removed concurrently by
// another writer between SCAN and DEL are not reported.
func (r *RedisClient) Del(ctx context.Context, patterns ...string) ([]string, error) {
	keys, err := r.Keys(ctx, patterns...)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return keys, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Del(ctx, r.prefix+key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis del: %w", err)
	}

	deleted := make([]string, 0, len(keys))
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			deleted = append(deleted, keys[i])
		}
	}
	return deleted, nil
}

// Clear removes every key under the client's prefix.
func (r *RedisClient) Clear(ctx context.Context) ([]string, error) {
	return r.Del(ctx, "*")
}

// Close releases the connection pool when the client created it. Calls after
// the first return the first result.
func (r *RedisClient) Close() error {
	if !r.owned {
		return nil
	}
	r.closeOnce.Do(func() {
		r.closeErr = r.rdb.Close()
	})
	return r.closeErr
}
