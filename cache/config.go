package cache

import (
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goliatone/go-cache-multiplexer/internal/cacheinfra"
)

// Config exposes the in-memory (sturdyc) client options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// TTLConfig configures the go-cache backed client.
type TTLConfig = cacheinfra.TTLConfig

// RedisConfig configures the redis backed client.
type RedisConfig = cacheinfra.RedisConfig

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// DefaultTTLConfig returns the default go-cache client configuration.
func DefaultTTLConfig() TTLConfig {
	return cacheinfra.DefaultTTLConfig()
}

// DefaultRedisConfig returns the default redis client configuration.
func DefaultRedisConfig() RedisConfig {
	return cacheinfra.DefaultRedisConfig()
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewMemoryClient constructs the sharded in-memory client.
func NewMemoryClient(cfg Config) (Client, error) {
	client, err := cacheinfra.NewMemoryClient(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewTTLClient constructs the go-cache backed in-memory client.
func NewTTLClient(cfg TTLConfig) (Client, error) {
	client, err := cacheinfra.NewTTLClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewRedisClient connects to redis and returns a client. The returned value also
// implements io.Closer.
func NewRedisClient(cfg RedisConfig) (Client, error) {
	client, err := cacheinfra.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewRedisClientFrom wraps an existing go-redis client owned by the caller.
func NewRedisClientFrom(rdb *redis.Client, keyPrefix string, ttl time.Duration) (Client, error) {
	client, err := cacheinfra.NewRedisClientFrom(rdb, keyPrefix, ttl)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
