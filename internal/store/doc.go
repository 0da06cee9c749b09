// Package store implements reflux stores: long-lived state holders that react
// to dispatched actions.
//
// ARCHITECTURE:
//
// A store is assembled once from a Definition and a list of handler
// definitions:
//
//  1. Handler definitions are validated (shape, constant, callback, waitFor).
//  2. The definition's mixin tree is flattened depth-first. Methods are copied
//     with later sources overriding earlier ones, GetInitialState results are
//     shallow-merged in the same order, and every StoreDidMount is queued.
//  3. The merged state is installed and the handlers are registered.
//  4. Every StoreDidMount runs once, in resolution order.
//
// Any failure in steps 1-3 returns a ConstructionError and no store.
//
// Dispatch Cycle:
//
// A Cycle is one action delivered to a set of stores. For each store the
// cycle drives a small lifecycle machine:
//
//	idle -> waitingForDependencies -> before -> running -> success|fail -> after -> settled
//
// A store without a handler for the action moves straight from idle to
// settled. waitFor dependencies are joined over the memoized settlement
// signals of the awaited stores, so every store runs its handler at most
// once per cycle no matter how many stores wait on it. A failing dependency
// moves the waiter to fail with a DependencyError; unrelated stores are
// unaffected.
//
// Concurrency:
//   - State and handler sub-state are guarded by the store's own locks
//   - Lifecycles of one store are serialized by a dispatch mutex, taken only
//     after the waitFor join so waiting never holds it
//   - Change listeners run outside every lock
package store
