// Package coordinator is the public face of murmur: it admits, starts and
// finishes recording, transcription and analysis operations on shared
// targets.
//
// Admission consults the conflict table against the target's active work.
// Recording and transcription exclude each other on a target; a proposed
// operation that outranks every conflicting one replaces them, otherwise it
// waits on the queue. A global cap bounds simultaneously active work.
// Every terminal transition runs one queue drain and one memory pass.
//
// All state lives in a single registry guarded by one mutex. Observers,
// the coarse event hub and the ntfy sink are fed after the mutex is released,
// in commit order.
package coordinator
