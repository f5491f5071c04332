package cacheinfra

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLConfig configures the go-cache backed client.
type TTLConfig struct {
	// DefaultTTL applies to every entry. Zero or a negative value disables expiration.
	DefaultTTL time.Duration

	// CleanupInterval controls how often expired entries are purged.
	// Zero disables the janitor.
	CleanupInterval time.Duration
}

// DefaultTTLConfig returns a TTLConfig suitable for short lived local entries.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		DefaultTTL:      time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// Validate checks if the configuration values are valid.
func (c TTLConfig) Validate() error {
	if c.CleanupInterval < 0 {
		return &ConfigError{Field: "CleanupInterval", Message: "must be non-negative"}
	}
	return nil
}

// TTLClient is an in-process cache client backed by patrickmn/go-cache.
type TTLClient struct {
	cache *gocache.Cache
}

// NewTTLClient validates cfg and creates a go-cache backed client.
func NewTTLClient(cfg TTLConfig) (*TTLClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	return &TTLClient{cache: gocache.New(ttl, cfg.CleanupInterval)}, nil
}

// Set stores value under key with the default TTL.
func (c *TTLClient) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.cache.Set(key, value, gocache.DefaultExpiration)
	return nil
}

// Get returns the value stored under key.
func (c *TTLClient) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	raw, ok := c.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("unexpected value type %T for key %q", raw, key)
	}
	return value, true, nil
}

// Keys returns the unexpired keys matching any of the patterns.
func (c *TTLClient) Keys(ctx context.Context, patterns ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	match, err := CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}

	items := c.cache.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	return match.Filter(keys), nil
}

// Del removes the keys matching any of the patterns.
func (c *TTLClient) Del(ctx context.Context, patterns ...string) ([]string, error) {
	keys, err := c.Keys(ctx, patterns...)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		c.cache.Delete(key)
	}
	return keys, nil
}

// Clear removes every key.
func (c *TTLClient) Clear(ctx context.Context) ([]string, error) {
	return c.Del(ctx, "*")
}
