// Package registry is the authoritative in-memory store of operations.
//
// It keeps three structures consistent under one mutex: the id to record
// map, a secondary index of active ids per target, and the queued-id list.
// Compound check-then-act sequences run inside Do so the coordinator can
// decide admission, conflicts and transitions against a stable view.
//
// Nothing is persisted. State is rebuilt empty every process lifetime.
package registry
