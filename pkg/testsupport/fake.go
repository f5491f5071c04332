package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-cache-multiplexer/internal/cacheinfra"
)

// Call records one invocation made on a FakeClient.
type Call struct {
	Op   string
	Args []string
}

// FakeClient is an in-memory cache.Client that records calls and can be told to
// slow down or fail, for exercising routing and dispatch.
type FakeClient struct {
	mu     sync.Mutex
	data   map[string]string
	calls  []Call
	delays map[string]time.Duration
	errs   map[string]error
	closed bool
}

// NewFakeClient creates an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		data:   make(map[string]string),
		delays: make(map[string]time.Duration),
		errs:   make(map[string]error),
	}
}

// Delay makes every call of op ("set", "get", "del", "clear", "keys") wait d first.
func (f *FakeClient) Delay(op string, d time.Duration) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[op] = d
	return f
}

// Fail makes every call of op return err.
func (f *FakeClient) Fail(op string, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
	return f
}

// Calls returns the recorded calls of op, or every call when op is empty.
func (f *FakeClient) Calls(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Stored returns the raw value held under key, bypassing call recording.
func (f *FakeClient) Stored(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

// Closed reports whether Close was called.
func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeClient) begin(ctx context.Context, op string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Args: args})
	delay := f.delays[op]
	err := f.errs[op]
	f.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Set implements cache.Client.
func (f *FakeClient) Set(ctx context.Context, key, value string) error {
	if err := f.begin(ctx, "set", key, value); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

// Get implements cache.Client.
func (f *FakeClient) Get(ctx context.Context, key string) (string, bool, error) {
	if err := f.begin(ctx, "get", key); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

// Del implements cache.Client.
func (f *FakeClient) Del(ctx context.Context, patterns ...string) ([]string, error) {
	if err := f.begin(ctx, "del", patterns...); err != nil {
		return nil, err
	}
	return f.remove(patterns)
}

// Clear implements cache.Client.
func (f *FakeClient) Clear(ctx context.Context) ([]string, error) {
	if err := f.begin(ctx, "clear"); err != nil {
		return nil, err
	}
	return f.remove([]string{"*"})
}

// Keys implements cache.Client.
func (f *FakeClient) Keys(ctx context.Context, patterns ...string) ([]string, error) {
	if err := f.begin(ctx, "keys", patterns...); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.match(patterns)
}

// Close implements io.Closer.
func (f *FakeClient) Close() error {
	if err := f.begin(context.Background(), "close"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakeClient) remove(patterns []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys, err := f.match(patterns)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return keys, nil
}

// match must be called with f.mu held.
func (f *FakeClient) match(patterns []string) ([]string, error) {
	m, err := cacheinfra.CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return m.Filter(keys), nil
}
