// Package action provides the identifiers and payloads that flow through the
// reflux dispatcher.
//
// A Constant names an action type. Constants are created in namespaced sets
// by CreateConstants; every call returns a fresh, independently owned map, so
// there is no process-wide registry. Stores key their handler tables by
// Constant and compare constants by value.
//
// A Payload is the argument bag that travels with a dispatched action.
//
// This package also owns the canonical JSON encoding used wherever reflux
// needs byte-stable output (store snapshots, journal rows, payload hashes):
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalized, no HTML escaping
//   - floats in shortest round-trip form, NaN and Inf rejected
//
// action imports nothing internal; every other package may import it.
package action
