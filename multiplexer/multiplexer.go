package multiplexer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/goliatone/go-cache-multiplexer/cache"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Interface assertion to ensure Multiplexer can stand in for a single backend,
// including as a backend of another Multiplexer.
var _ cache.Client = (*Multiplexer)(nil)

// Multiplexer routes cache operations across an ordered, immutable set of backends.
type Multiplexer struct {
	backends   []Registration
	logger     *zap.Logger
	racePolicy RacePolicy
}

// New creates a Multiplexer over regs. The slice is copied; later changes to it
// have no effect.
func New(regs []Registration, opts ...Option) (*Multiplexer, error) {
	if err := validate(regs); err != nil {
		return nil, err
	}

	m := &Multiplexer{
		backends:   append([]Registration(nil), regs...),
		logger:     zap.NewNop(),
		racePolicy: RaceFirstSettled,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// NewSingle creates a Multiplexer over one registration. An empty name defaults to DefaultName.
func NewSingle(reg Registration, opts ...Option) (*Multiplexer, error) {
	if reg.Name == "" {
		reg.Name = DefaultName
	}
	return New([]Registration{reg}, opts...)
}

// Names returns the backend labels in registration order.
func (m *Multiplexer) Names() []string {
	names := make([]string, len(m.backends))
	for i, b := range m.backends {
		names[i] = b.Name
	}
	return names
}

// Len returns the number of backends.
func (m *Multiplexer) Len() int {
	return len(m.backends)
}

// Set writes value to every backend whose KeyMap accepts key.
// With no accepting backend it succeeds without any I/O.
func (m *Multiplexer) Set(ctx context.Context, key, value string) error {
	targets := m.route(key)
	m.logger.Debug("dispatch", zap.String("op", "set"), zap.String("key", key), zap.Int("targets", len(targets)))

	switch len(targets) {
	case 0:
		return nil
	case 1:
		return targets[0].client.Set(ctx, targets[0].key, value)
	default:
		return m.setAll(ctx, targets, value)
	}
}

// Get reads key from the backends whose KeyMap accepts it. With several
// accepting backends the fastest answer wins, see RacePolicy.
func (m *Multiplexer) Get(ctx context.Context, key string) (string, bool, error) {
	targets := m.route(key)
	m.logger.Debug("dispatch", zap.String("op", "get"), zap.String("key", key), zap.Int("targets", len(targets)))

	switch len(targets) {
	case 0:
		return "", false, nil
	case 1:
		return targets[0].client.Get(ctx, targets[0].key)
	default:
		return m.race(ctx, targets)
	}
}

// Del deletes the patterns on every backend, ignoring KeyMap, and returns
// the deleted keys labelled by backend name.
func (m *Multiplexer) Del(ctx context.Context, patterns ...string) ([]string, error) {
	if len(m.backends) == 1 {
		return m.backends[0].Client.Del(ctx, patterns...)
	}
	return m.collect(ctx, "del", func(ctx context.Context, reg Registration) ([]string, error) {
		return reg.Client.Del(ctx, patterns...)
	})
}

// Clear clears every backend and returns the deleted keys labelled by backend name.
func (m *Multiplexer) Clear(ctx context.Context) ([]string, error) {
	if len(m.backends) == 1 {
		return m.backends[0].Client.Clear(ctx)
	}
	return m.collect(ctx, "clear", func(ctx context.Context, reg Registration) ([]string, error) {
		return reg.Client.Clear(ctx)
	})
}

// Keys lists the patterns on every backend, ignoring KeyMap, and returns
// the matching keys labelled by backend name.
func (m *Multiplexer) Keys(ctx context.Context, patterns ...string) ([]string, error) {
	if len(m.backends) == 1 {
		return m.backends[0].Client.Keys(ctx, patterns...)
	}
	return m.collect(ctx, "keys", func(ctx context.Context, reg Registration) ([]string, error) {
		return reg.Client.Keys(ctx, patterns...)
	})
}

func (m *Multiplexer) collect(ctx context.Context, op string, fn listFn) ([]string, error) {
	m.logger.Debug("dispatch", zap.String("op", op), zap.Int("targets", len(m.backends)))

	results, err := m.joinAll(ctx, op, fn)
	if err != nil {
		return nil, err
	}
	return m.aggregate(results), nil
}

// Close closes every backend implementing io.Closer and reports all failures.
func (m *Multiplexer) Close() error {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result *multierror.Error
	)

	for _, b := range m.backends {
		closer, ok := b.Client.(io.Closer)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(name string, closer io.Closer) {
			defer wg.Done()
			if err := closer.Close(); err != nil {
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}(b.Name, closer)
	}

	wg.Wait()
	return result.ErrorOrNil()
}
