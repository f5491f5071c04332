package di

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-cache-multiplexer/cache"
	"github.com/goliatone/go-cache-multiplexer/pkg/testsupport"
)

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	if container.Client() == nil {
		t.Fatal("Container should have a non-nil client")
	}

	names := container.Multiplexer().Names()
	if len(names) != 1 || names[0] != "memory" {
		t.Errorf("expected single memory backend, got %v", names)
	}

	cfg := container.Config()
	if cfg.Backends[0].Memory.Capacity != cache.DefaultConfig().Capacity {
		t.Errorf("expected default capacity %d, got %d", cache.DefaultConfig().Capacity, cfg.Backends[0].Memory.Capacity)
	}
}

func TestConfig_Validate(t *testing.T) {
	memory := BackendConfig{Name: "memory", Kind: KindMemory, Memory: cache.DefaultConfig()}

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid default",
			cfg:  DefaultConfig(),
		},
		{
			name:    "no backends",
			cfg:     Config{},
			wantErr: "config error in field Backends: at least one backend is required",
		},
		{
			name:    "unknown kind",
			cfg:     Config{Backends: []BackendConfig{{Name: "x", Kind: "memcached"}}},
			wantErr: `config error in field Backends[0].Kind: unknown kind "memcached"`,
		},
		{
			name:    "duplicate name",
			cfg:     Config{Backends: []BackendConfig{memory, memory}},
			wantErr: `config error in field Backends[1].Name: duplicate name "memory"`,
		},
		{
			name:    "invalid memory config",
			cfg:     Config{Backends: []BackendConfig{{Name: "m", Kind: KindMemory}}},
			wantErr: "Backends[0]: config error in field Capacity: must be greater than 0",
		},
		{
			name:    "invalid partition",
			cfg:     Config{Backends: []BackendConfig{{Name: "m", Kind: KindMemory, Memory: cache.DefaultConfig(), Partition: &PartitionConfig{Index: 2, Count: 2}}}},
			wantErr: "config error in field Backends[0].Partition: invalid shard 2 of 2",
		},
		{
			name:    "external without client",
			cfg:     Config{Backends: []BackendConfig{{Name: "e", Kind: KindExternal}}},
			wantErr: "config error in field Backends[0].Client: cannot be nil for external backends",
		},
		{
			name:    "empty nested multiplexer",
			cfg:     Config{Backends: []BackendConfig{{Name: "tier", Kind: KindMultiplexer}}},
			wantErr: "config error in field Backends[0].Backends: at least one backend is required",
		},
		{
			name:    "unknown race policy",
			cfg:     Config{Backends: []BackendConfig{memory}, RacePolicy: "fastest"},
			wantErr: `config error in field RacePolicy: unknown policy "fastest"`,
		},
		{
			name: "unknown nested race policy",
			cfg: Config{Backends: []BackendConfig{
				memory,
				{Name: "tier", Kind: KindMultiplexer, RacePolicy: "fastest", Backends: []BackendConfig{memory}},
			}},
			wantErr: `Backends[1]: config error in field RacePolicy: unknown policy "fastest"`,
		},
		{
			name:    "bad log level",
			cfg:     Config{Backends: []BackendConfig{memory}, LogLevel: "loud"},
			wantErr: "LogLevel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestNewContainer_TieredWithRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	redisCfg := cache.DefaultRedisConfig()
	redisCfg.Address = mr.Addr()
	redisCfg.KeyPrefix = "app:"

	container, err := NewContainer(Config{
		Backends: []BackendConfig{
			{Name: "local", Kind: KindMemory, Memory: cache.DefaultConfig(), Include: []string{"*main*"}},
			{Name: "redis", Kind: KindRedis, Redis: redisCfg},
		},
		RacePolicy: "first_hit",
	})
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	client := container.Client()

	if err := client.Set(ctx, "main", "v"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := client.Set(ctx, "other", "v"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if !mr.Exists("app:main") || !mr.Exists("app:other") {
		t.Error("expected both keys in redis")
	}

	keys, err := client.Keys(ctx, "*")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	want := map[string]bool{"local: main": true, "redis: main": true, "redis: other": true}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for _, k := range keys {
		if !want[k] {
			t.Errorf("unexpected key %q", k)
		}
	}

	value, err := cache.GetOrFetch(ctx, client, "other", func(ctx context.Context) (string, error) {
		t.Error("fetch should not be called on a hit")
		return "", nil
	})
	if err != nil || value != "v" {
		t.Errorf("expected cached value, got %q (%v)", value, err)
	}
}

func TestNewContainer_NestedMultiplexer(t *testing.T) {
	ctx := context.Background()
	fake := testsupport.NewFakeClient()

	container, err := NewContainer(Config{
		Backends: []BackendConfig{
			{
				Name: "local",
				Kind: KindMultiplexer,
				Backends: []BackendConfig{
					{Name: "shard0", Kind: KindTTL, TTL: cache.DefaultTTLConfig(), Partition: &PartitionConfig{Index: 0, Count: 2}},
					{Name: "shard1", Kind: KindTTL, TTL: cache.DefaultTTLConfig(), Partition: &PartitionConfig{Index: 1, Count: 2}},
				},
			},
			{Name: "remote", Kind: KindExternal, Client: fake, KeyPrefix: "v1:"},
		},
	})
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	for _, key := range []string{"a", "b", "c", "d"} {
		if err := container.Client().Set(ctx, key, strings.ToUpper(key)); err != nil {
			t.Fatalf("set %s failed: %v", key, err)
		}
	}

	if _, ok := fake.Stored("v1:a"); !ok {
		t.Error("expected prefixed key in external backend")
	}

	deleted, err := container.Client().Clear(ctx)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	local, remote := 0, 0
	for _, entry := range deleted {
		switch {
		case strings.HasPrefix(entry, "local: shard"):
			local++
		case strings.HasPrefix(entry, "remote: v1:"):
			remote++
		default:
			t.Errorf("unexpected entry %q", entry)
		}
	}
	if local != 4 || remote != 4 {
		t.Errorf("expected 4 local and 4 remote entries, got %d and %d: %v", local, remote, deleted)
	}

	if err := container.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if !fake.Closed() {
		t.Error("expected external backend to be closed")
	}
}

func TestNewContainer_ClosesBuiltBackendsOnFailure(t *testing.T) {
	fake := testsupport.NewFakeClient()

	redisCfg := cache.DefaultRedisConfig()
	redisCfg.Address = "127.0.0.1:1"
	redisCfg.DialTimeout = 100 * time.Millisecond

	_, err := NewContainer(Config{
		Backends: []BackendConfig{
			{Name: "external", Kind: KindExternal, Client: fake},
			{Name: "redis", Kind: KindRedis, Redis: redisCfg},
		},
	})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !fake.Closed() {
		t.Error("expected already built backend to be closed")
	}
}

func TestContainer_CloseReportsFailures(t *testing.T) {
	fake := testsupport.NewFakeClient().Fail("close", errors.New("refused"))

	container, err := NewContainer(Config{
		Backends: []BackendConfig{{Name: "external", Kind: KindExternal, Client: fake}},
		LogLevel: "error",
	})
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	err = container.Close()
	if err == nil || !strings.Contains(err.Error(), "external: refused") {
		t.Errorf("expected close failure, got %v", err)
	}
}
