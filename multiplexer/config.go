package multiplexer

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-cache-multiplexer/cache"
	"go.uber.org/zap"
)

// DefaultName labels the backend of a single registration built without a name.
const DefaultName = "default"

// ErrNoBackends is returned when a multiplexer is built without registrations.
var ErrNoBackends = errors.New("multiplexer: at least one backend is required")

// Registration binds a backend client to the multiplexer.
type Registration struct {
	// Name is the stable label used to tag keys returned by Del, Clear and Keys.
	// Must be non-empty and unique within a multiplexer.
	Name string

	// Client is the backend. Must not be nil.
	Client cache.Client

	// KeyMap optionally maps a logical key onto the backend key space for Set and Get.
	// A nil KeyMap routes every key unchanged.
	KeyMap KeyMapFunc
}

// RacePolicy selects how Get resolves when more than one backend is targeted.
type RacePolicy int

const (
	// RaceFirstSettled returns whichever backend answers first: a hit, a miss or an error.
	RaceFirstSettled RacePolicy = iota

	// RaceFirstHit returns the first hit. Errors never win, and neither do misses:
	// a fast backend reporting absent does not hide a slower backend holding the key.
	// When every backend misses or fails the key is reported as absent with a nil
	// error, and the failures are only logged.
	RaceFirstHit
)

// String returns the string representation of a race policy.
func (p RacePolicy) String() string {
	switch p {
	case RaceFirstSettled:
		return "first_settled"
	case RaceFirstHit:
		return "first_hit"
	default:
		return "unknown"
	}
}

// ParseRacePolicy maps a policy name back to a RacePolicy.
func ParseRacePolicy(s string) (RacePolicy, error) {
	switch s {
	case "", "first_settled":
		return RaceFirstSettled, nil
	case "first_hit":
		return RaceFirstHit, nil
	default:
		return RaceFirstSettled, &ConfigError{Field: "RacePolicy", Message: fmt.Sprintf("unknown policy %q", s)}
	}
}

// Option customizes a Multiplexer.
type Option func(*Multiplexer)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Multiplexer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRacePolicy sets the Get race policy. The default is RaceFirstSettled.
func WithRacePolicy(policy RacePolicy) Option {
	return func(m *Multiplexer) {
		m.racePolicy = policy
	}
}

// ConfigError represents a registration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

func validate(regs []Registration) error {
	if len(regs) == 0 {
		return ErrNoBackends
	}

	seen := make(map[string]struct{}, len(regs))
	for i, reg := range regs {
		field := fmt.Sprintf("Registrations[%d]", i)
		if reg.Name == "" {
			return &ConfigError{Field: field + ".Name", Message: "cannot be empty"}
		}
		if _, dup := seen[reg.Name]; dup {
			return &ConfigError{Field: field + ".Name", Message: fmt.Sprintf("duplicate name %q", reg.Name)}
		}
		seen[reg.Name] = struct{}{}

		if reg.Client == nil {
			return &ConfigError{Field: field + ".Client", Message: "cannot be nil"}
		}
	}

	return nil
}
