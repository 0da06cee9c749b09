// Package state implements the observable key/value container every reflux
// store owns, together with the change bus it announces mutations on.
//
// Container semantics:
//   - Get on an unknown key returns nil (absence, never an error)
//   - Set shallow-merges; an empty Set is a no-op and fires nothing
//   - Replace discards every key and installs the new mapping in one step
//   - Snapshot, ToJS, ToObject and ToJSON return deep copies, so later
//     mutation never reaches a snapshot that was already handed out
//
// Every externally visible mutation fires the bus exactly once. Listeners
// run after the container lock is released, so a listener may read the
// container it is subscribed to.
package state
