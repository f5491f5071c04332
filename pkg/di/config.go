package di

import (
	"fmt"

	"github.com/goliatone/go-cache-multiplexer/cache"
	"github.com/goliatone/go-cache-multiplexer/multiplexer"
	"go.uber.org/zap"
)

// BackendKind selects the implementation behind a BackendConfig.
type BackendKind string

const (
	// KindMemory is the sharded sturdyc in-process cache.
	KindMemory BackendKind = "memory"
	// KindTTL is the patrickmn/go-cache in-process cache.
	KindTTL BackendKind = "ttl"
	// KindRedis is the shared redis tier.
	KindRedis BackendKind = "redis"
	// KindMultiplexer nests another multiplexer built from Backends.
	KindMultiplexer BackendKind = "multiplexer"
	// KindExternal registers a caller supplied Client. The container takes
	// ownership and closes it on Close when it implements io.Closer.
	KindExternal BackendKind = "external"
)

// PartitionConfig assigns a backend one shard of the key space.
type PartitionConfig struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// BackendConfig declares one backend and the keys it accepts for Set and Get.
type BackendConfig struct {
	// Name labels the backend in Del, Clear and Keys results.
	Name string      `json:"name"`
	Kind BackendKind `json:"kind"`

	// Include restricts Set and Get to keys matching any of these glob patterns.
	// Empty accepts every key.
	Include []string `json:"include,omitempty"`

	// Partition restricts Set and Get to one xxhash shard of the key space.
	Partition *PartitionConfig `json:"partition,omitempty"`

	// KeyPrefix is prepended to accepted keys for Set and Get.
	KeyPrefix string `json:"key_prefix,omitempty"`

	Memory cache.Config      `json:"memory"`
	TTL    cache.TTLConfig   `json:"ttl"`
	Redis  cache.RedisConfig `json:"redis"`

	// Backends and RacePolicy configure a KindMultiplexer backend.
	Backends   []BackendConfig `json:"backends,omitempty"`
	RacePolicy string          `json:"race_policy,omitempty"`

	// Client is used as-is for KindExternal.
	Client cache.Client `json:"-"`
}

// Config describes the multiplexer built by a Container.
type Config struct {
	Backends []BackendConfig `json:"backends"`

	// RacePolicy is "first_settled" (default) or "first_hit".
	RacePolicy string `json:"race_policy,omitempty"`

	// LogLevel enables zap logging at the given level ("debug", "info", "warn", "error").
	// Empty disables logging.
	LogLevel string `json:"log_level,omitempty"`
}

// DefaultConfig returns a single in-memory backend named "memory".
func DefaultConfig() Config {
	return Config{
		Backends: []BackendConfig{
			{Name: "memory", Kind: KindMemory, Memory: cache.DefaultConfig()},
		},
	}
}

// ConfigError represents a container configuration error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Validate checks the configuration without connecting to any backend.
func (c Config) Validate() error {
	if _, err := multiplexer.ParseRacePolicy(c.RacePolicy); err != nil {
		return err
	}
	if c.LogLevel != "" {
		if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
			return &ConfigError{Field: "LogLevel", Message: err.Error()}
		}
	}
	return validateBackends("Backends", c.Backends)
}

func validateBackends(field string, backends []BackendConfig) error {
	if len(backends) == 0 {
		return &ConfigError{Field: field, Message: "at least one backend is required"}
	}

	seen := make(map[string]struct{}, len(backends))
	for i, b := range backends {
		path := fmt.Sprintf("%s[%d]", field, i)

		if b.Name == "" {
			return &ConfigError{Field: path + ".Name", Message: "cannot be empty"}
		}
		if _, dup := seen[b.Name]; dup {
			return &ConfigError{Field: path + ".Name", Message: fmt.Sprintf("duplicate name %q", b.Name)}
		}
		seen[b.Name] = struct{}{}

		if p := b.Partition; p != nil && (p.Count <= 0 || p.Index < 0 || p.Index >= p.Count) {
			return &ConfigError{Field: path + ".Partition", Message: fmt.Sprintf("invalid shard %d of %d", p.Index, p.Count)}
		}

		var err error
		switch b.Kind {
		case KindMemory:
			err = b.Memory.Validate()
		case KindTTL:
			err = b.TTL.Validate()
		case KindRedis:
			err = b.Redis.Validate()
		case KindMultiplexer:
			if _, perr := multiplexer.ParseRacePolicy(b.RacePolicy); perr != nil {
				return fmt.Errorf("%s: %w", path, perr)
			}
			err = validateBackends(path+".Backends", b.Backends)
		case KindExternal:
			if b.Client == nil {
				return &ConfigError{Field: path + ".Client", Message: "cannot be nil for external backends"}
			}
		default:
			return &ConfigError{Field: path + ".Kind", Message: fmt.Sprintf("unknown kind %q", b.Kind)}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	return nil
}
