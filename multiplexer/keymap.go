package multiplexer

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/goliatone/go-cache-multiplexer/internal/cacheinfra"
)

// KeyMapFunc maps a logical key onto a backend key. Returning false, or an empty
// key, excludes the backend for that key.
type KeyMapFunc func(key string) (string, bool)

// Identity routes every non-empty key unchanged.
func Identity() KeyMapFunc {
	return func(key string) (string, bool) {
		return key, key != ""
	}
}

// Contains accepts keys containing substr.
func Contains(substr string) KeyMapFunc {
	return func(key string) (string, bool) {
		return key, strings.Contains(key, substr)
	}
}

// MatchKeys accepts keys matching any of the patterns, using the same redis style
// dialect as the bundled backends.
func MatchKeys(patterns ...string) (KeyMapFunc, error) {
	match, err := cacheinfra.CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}

	return func(key string) (string, bool) {
		if match.Match(key) {
			return key, true
		}
		return "", false
	}, nil
}

// Prefix namespaces every key with prefix.
//
// Del, Clear and Keys receive the caller's patterns unmapped, so a backend
// registered with Prefix should be cleaned with prefixed patterns or should
// namespace at the client level instead (see cache.RedisConfig.KeyPrefix).
func Prefix(prefix string) KeyMapFunc {
	return func(key string) (string, bool) {
		return prefix + key, true
	}
}

// Partition accepts the keys whose xxhash falls into shard index out of count.
// Registering Partition(0, n) .. Partition(n-1, n) on n backends spreads keys
// across them with every key owned by exactly one backend.
func Partition(index, count int) KeyMapFunc {
	if count <= 0 || index < 0 || index >= count {
		panic(fmt.Sprintf("multiplexer: invalid partition %d of %d", index, count))
	}

	return func(key string) (string, bool) {
		return key, xxhash.Sum64String(key)%uint64(count) == uint64(index)
	}
}

// Chain applies maps in order, feeding each output into the next one.
// The first exclusion stops the chain.
func Chain(maps ...KeyMapFunc) KeyMapFunc {
	return func(key string) (string, bool) {
		for _, m := range maps {
			if m == nil {
				continue
			}
			mapped, ok := m(key)
			if !ok || mapped == "" {
				return "", false
			}
			key = mapped
		}
		return key, true
	}
}
