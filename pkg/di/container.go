package di

import (
	"io"

	"github.com/goliatone/go-cache-multiplexer/cache"
	"github.com/goliatone/go-cache-multiplexer/multiplexer"
	"go.uber.org/zap"
)

// Container wires backends, key maps and logging into a multiplexer.
type Container struct {
	mux    *multiplexer.Multiplexer
	logger *zap.Logger
	config Config
}

// NewContainer validates config, builds every backend and the multiplexer over them.
// Backends already built are closed when a later one fails.
func NewContainer(config Config) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(config.LogLevel)
	if err != nil {
		return nil, err
	}

	policy, _ := multiplexer.ParseRacePolicy(config.RacePolicy)
	mux, err := buildMultiplexer(config.Backends, policy, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("cache multiplexer ready",
		zap.Strings("backends", mux.Names()),
		zap.Stringer("race_policy", policy),
	)

	return &Container{
		mux:    mux,
		logger: logger,
		config: config,
	}, nil
}

// NewContainerWithDefaults creates a container using DefaultConfig.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(DefaultConfig())
}

// Client returns the multiplexer as a plain cache client.
func (c *Container) Client() cache.Client {
	return c.mux
}

// Multiplexer returns the multiplexer for introspection.
func (c *Container) Multiplexer() *multiplexer.Multiplexer {
	return c.mux
}

// Logger returns the logger shared by the container's multiplexers.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// Close closes every backend holding resources and flushes the logger.
func (c *Container) Close() error {
	err := c.mux.Close()
	_ = c.logger.Sync()
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		return zap.NewNop(), nil
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func buildMultiplexer(backends []BackendConfig, policy multiplexer.RacePolicy, logger *zap.Logger) (*multiplexer.Multiplexer, error) {
	regs := make([]multiplexer.Registration, 0, len(backends))

	for _, b := range backends {
		client, err := buildClient(b, logger)
		if err != nil {
			closeAll(regs)
			return nil, err
		}

		keyMap, err := buildKeyMap(b)
		if err != nil {
			closeAll(append(regs, multiplexer.Registration{Client: client}))
			return nil, err
		}

		regs = append(regs, multiplexer.Registration{Name: b.Name, Client: client, KeyMap: keyMap})
	}

	mux, err := multiplexer.New(regs,
		multiplexer.WithLogger(logger),
		multiplexer.WithRacePolicy(policy),
	)
	if err != nil {
		closeAll(regs)
		return nil, err
	}
	return mux, nil
}

func buildClient(b BackendConfig, logger *zap.Logger) (cache.Client, error) {
	switch b.Kind {
	case KindMemory:
		return cache.NewMemoryClient(b.Memory)
	case KindTTL:
		return cache.NewTTLClient(b.TTL)
	case KindRedis:
		return cache.NewRedisClient(b.Redis)
	case KindMultiplexer:
		policy, _ := multiplexer.ParseRacePolicy(b.RacePolicy)
		return buildMultiplexer(b.Backends, policy, logger.Named(b.Name))
	case KindExternal:
		return b.Client, nil
	default:
		return nil, &ConfigError{Field: "Kind", Message: "unknown kind " + string(b.Kind)}
	}
}

// buildKeyMap returns nil when the backend accepts every key unchanged.
func buildKeyMap(b BackendConfig) (multiplexer.KeyMapFunc, error) {
	var maps []multiplexer.KeyMapFunc

	if len(b.Include) > 0 {
		include, err := multiplexer.MatchKeys(b.Include...)
		if err != nil {
			return nil, &ConfigError{Field: b.Name + ".Include", Message: err.Error()}
		}
		maps = append(maps, include)
	}
	if b.Partition != nil {
		maps = append(maps, multiplexer.Partition(b.Partition.Index, b.Partition.Count))
	}
	if b.KeyPrefix != "" {
		maps = append(maps, multiplexer.Prefix(b.KeyPrefix))
	}

	switch len(maps) {
	case 0:
		return nil, nil
	case 1:
		return maps[0], nil
	default:
		return multiplexer.Chain(maps...), nil
	}
}

func closeAll(regs []multiplexer.Registration) {
	for _, r := range regs {
		if closer, ok := r.Client.(io.Closer); ok {
			_ = closer.Close()
		}
	}
}
