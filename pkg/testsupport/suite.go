package testsupport

import (
	"context"
	"testing"

	"github.com/goliatone/go-cache-multiplexer/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ClientSuite runs the shared cache.Client behaviour checks against any implementation.
type ClientSuite struct {
	// New returns an empty client. It is called once per subtest.
	New func(t *testing.T) cache.Client

	// Expand maps raw keys to the entries the client reports from Del, Clear and Keys.
	// A nil Expand reports keys unchanged, which holds for every single backend.
	Expand func(keys []string) []string
}

// RunClientSuite runs the suite with unlabelled results.
func RunClientSuite(t *testing.T, newClient func(t *testing.T) cache.Client) {
	t.Helper()
	ClientSuite{New: newClient}.Run(t)
}

func (s ClientSuite) expand(keys ...string) []string {
	if s.Expand == nil {
		return keys
	}
	return s.Expand(keys)
}

func (s ClientSuite) client(t *testing.T) cache.Client {
	t.Helper()
	client := s.New(t)
	t.Cleanup(func() {
		_, _ = client.Clear(context.Background())
	})
	return client
}

func seed(t *testing.T, client cache.Client, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, client.Set(context.Background(), key, "bar"))
	}
}

// Run executes every check as a subtest of t.
func (s ClientSuite) Run(t *testing.T) {
	ctx := context.Background()
	all := []string{"foo/1", "foo/2", "foo/3", "bar/1", "bar/2"}

	t.Run("set then get returns value", func(t *testing.T) {
		client := s.client(t)
		require.NoError(t, client.Set(ctx, "foo", "bar"))

		value, found, err := client.Get(ctx, "foo")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "bar", value)
	})

	t.Run("set overwrites value", func(t *testing.T) {
		client := s.client(t)
		require.NoError(t, client.Set(ctx, "foo", "bar"))
		require.NoError(t, client.Set(ctx, "foo", "baz"))

		value, _, err := client.Get(ctx, "foo")
		require.NoError(t, err)
		assert.Equal(t, "baz", value)
	})

	t.Run("get missing key is absent", func(t *testing.T) {
		client := s.client(t)
		value, found, err := client.Get(ctx, "fakeKey")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, value)
	})

	t.Run("del key", func(t *testing.T) {
		client := s.client(t)
		seed(t, client, "foo")

		deleted, err := client.Del(ctx, "foo")
		require.NoError(t, err)
		assert.ElementsMatch(t, s.expand("foo"), deleted)

		_, found, err := client.Get(ctx, "foo")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("del missing key returns nothing", func(t *testing.T) {
		client := s.client(t)
		deleted, err := client.Del(ctx, "fakeKey")
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})

	t.Run("del keys", func(t *testing.T) {
		client := s.client(t)
		seed(t, client, all...)

		deleted, err := client.Del(ctx, all...)
		require.NoError(t, err)
		assert.ElementsMatch(t, s.expand(all...), deleted)

		for _, key := range all {
			_, found, err := client.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, found, key)
		}

		deleted, err = client.Del(ctx, "fake", "key")
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})

	t.Run("del pattern", func(t *testing.T) {
		client := s.client(t)
		seed(t, client, all...)

		deleted, err := client.Del(ctx, "foo/*")
		require.NoError(t, err)
		assert.ElementsMatch(t, s.expand("foo/1", "foo/2", "foo/3"), deleted)

		_, found, err := client.Get(ctx, "bar/1")
		require.NoError(t, err)
		assert.True(t, found)

		deleted, err = client.Del(ctx, "fake/*")
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})

	t.Run("del patterns", func(t *testing.T) {
		client := s.client(t)
		seed(t, client, "foo/1", "foo/2", "foo/3", "bar", "bar/2")

		deleted, err := client.Del(ctx, "foo/*", "bar/*")
		require.NoError(t, err)
		assert.ElementsMatch(t, s.expand("foo/1", "foo/2", "foo/3", "bar/2"), deleted)

		_, found, err := client.Get(ctx, "bar")
		require.NoError(t, err)
		assert.True(t, found)

		deleted, err = client.Del(ctx, "fake/*", "key/*")
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})

	t.Run("clear returns every key", func(t *testing.T) {
		client := s.client(t)
		seed(t, client, all...)

		deleted, err := client.Clear(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, s.expand(all...), deleted)

		keys, err := client.Keys(ctx, "*")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("clear empty cache returns nothing", func(t *testing.T) {
		client := s.client(t)
		deleted, err := client.Clear(ctx)
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})

	t.Run("keys pattern", func(t *testing.T) {
		client := s.client(t)
		seed(t, client, all...)

		keys, err := client.Keys(ctx, "bar/*")
		require.NoError(t, err)
		assert.ElementsMatch(t, s.expand("bar/1", "bar/2"), keys)

		keys, err = client.Keys(ctx, "foo/1", "bar/?")
		require.NoError(t, err)
		assert.ElementsMatch(t, s.expand("foo/1", "bar/1", "bar/2"), keys)
	})
}
