// Package cache defines the uniform cache client interface and its default backends.
//
// # Overview
//
// Every backend, and the multiplexer that routes across backends, implements Client:
//
//   - Set(ctx, key, value) stores a value
//   - Get(ctx, key) returns the value and whether it was found
//   - Del(ctx, patterns...) removes keys matching glob patterns and returns them
//   - Clear(ctx) removes every key and returns them
//   - Keys(ctx, patterns...) lists keys matching glob patterns
//
// # Backends
//
// Three backends ship with the package:
//
//   - NewMemoryClient: sharded in-process cache built on sturdyc, entries expire after Config.TTL
//   - NewTTLClient: in-process cache built on patrickmn/go-cache
//   - NewRedisClient / NewRedisClientFrom: shared remote tier built on go-redis
//
// Every backend reads patterns in the redis MATCH dialect, so one pattern selects the
// same keys on every tier. "*" spans separators: "foo/*" matches "foo/1" and "foo/a/b".
// "[^a]" negates a class; braces and commas are literal. The redis backend delegates
// matching to SCAN MATCH.
//
// # Basic Usage
//
//	local, _ := cache.NewMemoryClient(cache.DefaultConfig())
//	_ = local.Set(ctx, "user:1", `{"name":"alice"}`)
//	value, found, err := local.Get(ctx, "user:1")
//
// Read-through access is available through GetOrFetch:
//
//	value, err := cache.GetOrFetch(ctx, local, "user:1", func(ctx context.Context) (string, error) {
//		return loadUser(ctx, "1")
//	})
//
// # See Also
//
// For routing one logical cache across several backends, see the multiplexer package.
// For building a multiplexer from declarative configuration, see pkg/di.
package cache
