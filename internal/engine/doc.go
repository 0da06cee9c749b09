// Package engine implements the reflux dispatcher.
//
// The engine owns the set of registered stores and turns every action into
// one dispatch cycle (store.Cycle) over all of them.
//
// ARCHITECTURE:
//
// Serialized Cycles:
// Cycles never overlap. Within a cycle every store settles in its own
// goroutine; waitFor edges are the only ordering between stores. A cycle
// returns once every store has settled, successful or not.
//
// Entry Points:
//  1. Dispatch(ctx, constant, payload) runs a cycle synchronously
//  2. Enqueue(constant, payload) queues an action for the Run loop
//  3. Emit(ctx, constant, payload) queues a follow-up action from a hook,
//     inheriting the hook's flow token
//
// Run is a single-writer loop over the queue: each failure is logged and the
// loop moves on. Drain processes the queue in the caller's goroutine.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every cycle is stamped with a monotonic seq from the engine's clock. Wall
// time is never used for ordering.
//
// Flow Tokens:
// Each externally submitted action starts a flow. Actions emitted by hooks
// join the flow of the cycle that emitted them, one cascade level deeper;
// WithMaxCascade bounds the depth.
package engine
