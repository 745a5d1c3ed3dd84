// Package notifications fans operation state changes out to three consumers:
// a detailed Observer run on its own executor, a bounded coarse Hub with
// sequence numbers for pollers and channel subscribers, and an optional
// outbound Sink that pushes selected transitions to ntfy.
//
// The coordinator stamps and queues events while it still holds the registry
// lock and flushes them after releasing it, so no consumer ever runs under
// that lock and every consumer sees events in commit order.
package notifications
