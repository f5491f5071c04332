package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc backed memory client.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the time-to-live for every entry. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for a local tier.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the optional parts of Config to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage are constructor arguments.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// MemoryClient is an in-process cache client backed by a sharded sturdyc client.
type MemoryClient struct {
	client *sturdyc.Client[string]
}

// NewMemoryClient validates cfg and creates a sturdyc backed client.
func NewMemoryClient(cfg Config) (*MemoryClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[string](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryClient{client: client}, nil
}

// Set stores value under key.
func (m *MemoryClient) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.client.Set(key, value)
	return nil
}

// Get returns the value stored under key.
func (m *MemoryClient) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	value, ok := m.client.Get(key)
	return value, ok, nil
}

// Keys returns the live keys matching any of the patterns.
func (m *MemoryClient) Keys(ctx context.Context, patterns ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	match, err := CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return m.live(match.Filter(m.client.ScanKeys())), nil
}

// Del removes the live keys matching any of the patterns.
func (m *MemoryClient) Del(ctx context.Context, patterns ...string) ([]string, error) {
	keys, err := m.Keys(ctx, patterns...)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		m.client.Delete(key)
	}
	return keys, nil
}

// Clear removes every live key.
func (m *MemoryClient) Clear(ctx context.Context) ([]string, error) {
	return m.Del(ctx, "*")
}

// live drops keys that were scanned but have already expired.
func (m *MemoryClient) live(keys []string) []string {
	out := keys[:0]
	for _, key := range keys {
		if _, ok := m.client.Get(key); ok {
			out = append(out, key)
		}
	}
	return out
}
