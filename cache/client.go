package cache

import (
	"context"
	"reflect"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Client is the uniform capability set shared by every cache backend and by the
// multiplexer that routes across them.
//
// Del and Keys accept keys or glob style patterns ("user:*", "foo/?"). A plain key
// is a pattern that only matches itself.
type Client interface {
	// Set stores value under key. A nil error is the success indicator.
	Set(ctx context.Context, key, value string) error

	// Get returns the value stored under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Del removes every key matching any of the patterns and returns the removed keys.
	Del(ctx context.Context, patterns ...string) ([]string, error)

	// Clear removes every key and returns the removed keys.
	Clear(ctx context.Context) ([]string, error)

	// Keys returns every key matching any of the patterns.
	Keys(ctx context.Context, patterns ...string) ([]string, error)
}

// FetchFn is the function signature GetOrFetch expects when loading from the source of truth.
type FetchFn func(ctx context.Context) (string, error)

// fetches coalesces concurrent misses for the same client and key.
var fetches singleflight.Group

// GetOrFetch reads key from client and falls back to fetchFn on a miss, storing the
// fetched value before returning it.
//
// Concurrent misses for the same key on the same client share a single fetchFn
// call, which runs with the context of the first caller. Waiters still return early
// when their own ctx is done. Clients that are not pointers are never coalesced.
//
// Fetch errors are returned as-is and nothing is stored. When the write back fails the
// fetched value is still returned together with the Set error.
func GetOrFetch(ctx context.Context, client Client, key string, fetchFn FetchFn) (string, error) {
	value, found, err := client.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if found {
		return value, nil
	}

	flight, ok := flightKey(client, key)
	if !ok {
		return fetchAndStore(ctx, client, key, fetchFn)
	}

	ch := fetches.DoChan(flight, func() (any, error) {
		return fetchAndStore(ctx, client, key, fetchFn)
	})

	select {
	case res := <-ch:
		value, _ := res.Val.(string)
		return value, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func fetchAndStore(ctx context.Context, client Client, key string, fetchFn FetchFn) (string, error) {
	value, err := fetchFn(ctx)
	if err != nil {
		return "", err
	}
	return value, client.Set(ctx, key, value)
}

// flightKey identifies a client by its pointer so that two clients never share a fetch.
func flightKey(client Client, key string) (string, bool) {
	v := reflect.ValueOf(client)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return "", false
	}
	return strconv.FormatUint(uint64(v.Pointer()), 16) + "|" + key, true
}
