// Package multiplexer presents several cache backends as one cache.Client.
//
// # Overview
//
// A Multiplexer is built once from an ordered list of registrations. Each registration
// names a backend, holds its cache.Client and optionally a KeyMapFunc deciding whether,
// and under which key, the backend sees a logical key:
//
//	mux, err := multiplexer.New([]multiplexer.Registration{
//		{Name: "local", Client: local, KeyMap: multiplexer.Contains("main")},
//		{Name: "redis", Client: remote},
//	})
//
// The registration list is immutable after construction.
//
// # Routing
//
// Set and Get are routed: only backends whose KeyMap accepts the key are called, using
// the mapped key. Del, Clear and Keys are not routed: they reach every backend with the
// caller's patterns unchanged, even a backend whose KeyMap would reject them.
//
// This asymmetry is deliberate and observable. A backend registered with Prefix stores
// "ns:a" on Set("a"), and Del("a") will not remove it.
//
// # Dispatch
//
//   - Set: every accepted backend is written concurrently; the call returns once all
//     writes finished. The first failure is returned; successful writes are not rolled back.
//   - Get: every accepted backend is read concurrently and the race policy picks the answer.
//     With RaceFirstSettled (the default) the first backend to answer wins, even with a miss
//     or an error, so a fast empty tier can hide a value held by a slower tier. RaceFirstHit
//     waits for the first hit instead and reports a miss only when no backend has the key.
//   - Del, Clear, Keys: every backend is called concurrently; the call returns once all
//     finished. Any failure fails the whole call without a partial result.
//
// Losing Get calls are never cancelled. No timeouts are added; pass a context with a
// deadline or configure the backends.
//
// # Aggregation
//
// With more than one backend, results of Del, Clear and Keys are concatenated in
// registration order and every entry is labelled "<name>: <key>" (see Label and
// SplitLabel). With a single backend, every operation delegates unchanged and results
// are not labelled.
//
// # Composition
//
// Multiplexer implements cache.Client, so it can be registered as a backend of another
// Multiplexer. Labels then nest: "outer: inner: key".
package multiplexer
