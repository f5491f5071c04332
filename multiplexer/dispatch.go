package multiplexer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// listFn is one backend call of a join-all operation returning keys.
type listFn func(ctx context.Context, reg Registration) ([]string, error)

// joinAll invokes fn on every backend concurrently and waits for all of them.
// Results are indexed by registration. The first error wins and no partial
// result is returned.
//
// Siblings are not cancelled when one backend fails, so the plain errgroup.Group
// is used instead of errgroup.WithContext.
func (m *Multiplexer) joinAll(ctx context.Context, op string, fn listFn) ([][]string, error) {
	results := make([][]string, len(m.backends))

	var g errgroup.Group
	for i, b := range m.backends {
		g.Go(func() error {
			keys, err := fn(ctx, b)
			if err != nil {
				m.logger.Warn("backend call failed",
					zap.String("op", op),
					zap.String("backend", b.Name),
					zap.Error(err),
				)
				return err
			}
			results[i] = keys
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// setAll writes value to every target concurrently and waits for all of them.
func (m *Multiplexer) setAll(ctx context.Context, targets []target, value string) error {
	var g errgroup.Group
	for _, t := range targets {
		g.Go(func() error {
			if err := t.client.Set(ctx, t.key, value); err != nil {
				m.logger.Warn("backend call failed",
					zap.String("op", "set"),
					zap.String("backend", t.name),
					zap.String("key", t.key),
					zap.Error(err),
				)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

type getResult struct {
	name  string
	value string
	found bool
	err   error
}

// race issues Get to every target and resolves according to the race policy.
// Losing calls keep running; the buffered channel absorbs their results.
func (m *Multiplexer) race(ctx context.Context, targets []target) (string, bool, error) {
	results := make(chan getResult, len(targets))
	for _, t := range targets {
		go func(t target) {
			value, found, err := t.client.Get(ctx, t.key)
			results <- getResult{name: t.name, value: value, found: found, err: err}
		}(t)
	}

	if m.racePolicy == RaceFirstHit {
		return m.firstHit(ctx, results, len(targets))
	}

	select {
	case r := <-results:
		if m.logger.Core().Enabled(zap.DebugLevel) {
			go m.discard(results, len(targets)-1)
		}
		m.logger.Debug("get race settled",
			zap.String("backend", r.name),
			zap.Bool("found", r.found),
			zap.Bool("failed", r.err != nil),
		)
		return r.value, r.found, r.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (m *Multiplexer) firstHit(ctx context.Context, results <-chan getResult, pending int) (string, bool, error) {
	for ; pending > 0; pending-- {
		select {
		case r := <-results:
			if r.err != nil {
				m.logger.Warn("backend call failed",
					zap.String("op", "get"),
					zap.String("backend", r.name),
					zap.Error(r.err),
				)
				continue
			}
			if r.found {
				m.logger.Debug("get race settled", zap.String("backend", r.name), zap.Bool("found", true))
				return r.value, true, nil
			}
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	return "", false, nil
}

// discard drains the losing branches of a race so their failures are still visible in logs.
func (m *Multiplexer) discard(results <-chan getResult, pending int) {
	for ; pending > 0; pending-- {
		r := <-results
		if r.err != nil {
			m.logger.Debug("discarded get failed", zap.String("backend", r.name), zap.Error(r.err))
		}
	}
}
