package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mapClient is a minimal Client for exercising GetOrFetch.
type mapClient struct {
	data   map[string]string
	getErr error
	setErr error
	sets   int
}

func newMapClient() *mapClient {
	return &mapClient{data: make(map[string]string)}
}

func (m *mapClient) Set(ctx context.Context, key, value string) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mapClient) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapClient) Del(ctx context.Context, patterns ...string) ([]string, error) {
	return nil, nil
}

func (m *mapClient) Clear(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (m *mapClient) Keys(ctx context.Context, patterns ...string) ([]string, error) {
	return nil, nil
}

func TestGetOrFetch_Hit(t *testing.T) {
	client := newMapClient()
	client.data["k"] = "cached"

	value, err := GetOrFetch(context.Background(), client, "k", func(ctx context.Context) (string, error) {
		t.Error("fetch should not be called on a hit")
		return "", nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}
	if value != "cached" {
		t.Errorf("expected 'cached' but got: '%s'", value)
	}
}

func TestGetOrFetch_MissStoresValue(t *testing.T) {
	client := newMapClient()
	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "fresh", nil
	}

	for i := 0; i < 2; i++ {
		value, err := GetOrFetch(context.Background(), client, "k", fetch)
		if err != nil {
			t.Fatalf("expected no error but got: %v", err)
		}
		if value != "fresh" {
			t.Errorf("expected 'fresh' but got: '%s'", value)
		}
	}

	if calls != 1 {
		t.Errorf("expected fetch to be called once, got %d", calls)
	}
	if client.data["k"] != "fresh" {
		t.Errorf("expected value to be stored, got %q", client.data["k"])
	}
}

func TestGetOrFetch_FetchErrorStoresNothing(t *testing.T) {
	client := newMapClient()
	boom := errors.New("boom")

	_, err := GetOrFetch(context.Background(), client, "k", func(ctx context.Context) (string, error) {
		return "", boom
	})

	if !errors.Is(err, boom) {
		t.Errorf("expected boom but got: %v", err)
	}
	if client.sets != 0 {
		t.Errorf("expected no writes, got %d", client.sets)
	}
}

func TestGetOrFetch_GetErrorSkipsFetch(t *testing.T) {
	client := newMapClient()
	client.getErr = errors.New("unavailable")

	_, err := GetOrFetch(context.Background(), client, "k", func(ctx context.Context) (string, error) {
		t.Error("fetch should not be called when get fails")
		return "", nil
	})

	if !errors.Is(err, client.getErr) {
		t.Errorf("expected get error but got: %v", err)
	}
}

func TestGetOrFetch_SetErrorKeepsValue(t *testing.T) {
	client := newMapClient()
	client.setErr = errors.New("read only")

	value, err := GetOrFetch(context.Background(), client, "k", func(ctx context.Context) (string, error) {
		return "fresh", nil
	})

	if !errors.Is(err, client.setErr) {
		t.Errorf("expected set error but got: %v", err)
	}
	if value != "fresh" {
		t.Errorf("expected fetched value to be returned, got %q", value)
	}
}

func TestGetOrFetch_CoalescesConcurrentMisses(t *testing.T) {
	client, err := NewMemoryClient(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "fresh", nil
	}

	const callers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			value, err := GetOrFetch(context.Background(), client, "k", fetch)
			if err == nil && value != "fresh" {
				err = errors.New("unexpected value " + value)
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("expected no error but got: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected fetch to be called once for %d concurrent misses, got %d", callers, got)
	}
}

func TestGetOrFetch_DistinctClientsDoNotShareFetch(t *testing.T) {
	first := newMapClient()
	second := newMapClient()

	for _, client := range []*mapClient{first, second} {
		if _, err := GetOrFetch(context.Background(), client, "k", func(ctx context.Context) (string, error) {
			return "fresh", nil
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if first.data["k"] != "fresh" || second.data["k"] != "fresh" {
		t.Errorf("expected both clients to store the value, got %q and %q", first.data["k"], second.data["k"])
	}
}

func TestGetOrFetch_WaiterHonoursContext(t *testing.T) {
	client, err := NewMemoryClient(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = GetOrFetch(context.Background(), client, "slow", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "fresh", nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = GetOrFetch(ctx, client, "slow", func(ctx context.Context) (string, error) {
		t.Error("waiter should join the running fetch")
		return "", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded but got: %v", err)
	}
}
