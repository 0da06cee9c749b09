// Package journal provides SQLite-backed storage for dispatch history.
//
// A Journal plugs into the engine as a store.Tracer and
// store.CycleObserver: every cycle, every lifecycle transition and every
// store outcome is written as it happens. The journal is write-only during
// dispatch; `reflux trace` and Engine.Replay read it back.
//
// ARCHITECTURE:
//
//   - cycles: one row per dispatch, keyed by (flow_token, seq), holding the
//     action constant, its canonical JSON payload and the payload hash
//   - transitions: one row per lifecycle transition, ordered by step
//   - outcomes: one row per store, written with the cycle's final status in
//     a single transaction
//
// Payloads are stored as canonical JSON so equal payloads produce
// byte-identical rows and hashes.
//
// DETERMINISTIC ORDERING:
//
// All reads order by seq, then step or id. Store names sort with
// COLLATE BINARY.
package journal
