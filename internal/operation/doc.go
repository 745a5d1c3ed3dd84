// Package operation defines the domain model shared by every coordinator
// component: the category+target Type variant, the fixed priority table, the
// monotonic Status state machine and the typed Progress payload.
//
// Operation values are plain data. The registry owns the authoritative copies
// and hands out clones, so nothing outside the registry can mutate state.
package operation
