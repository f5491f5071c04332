package multiplexer

import "github.com/goliatone/go-cache-multiplexer/cache"

// target is a backend selected for a single key together with the key it should see.
type target struct {
	name   string
	client cache.Client
	key    string
}

// route returns the backends that accept key, in registration order.
//
// Only Set and Get are routed. Del, Clear and Keys always reach every backend.
func (m *Multiplexer) route(key string) []target {
	targets := make([]target, 0, len(m.backends))
	single := len(m.backends) == 1

	for _, b := range m.backends {
		mapped := key
		if b.KeyMap != nil {
			k, ok := b.KeyMap(key)
			if !ok || k == "" {
				continue
			}
			mapped = k
		} else if mapped == "" && !single {
			// an empty key never reaches a backend of a multi-backend config
			continue
		}

		targets = append(targets, target{name: b.Name, client: b.Client, key: mapped})
	}

	return targets
}
