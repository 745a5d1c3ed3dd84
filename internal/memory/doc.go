// Package memory bounds the operation history kept by the coordinator.
//
// BuildPlan is a pure function over a registry snapshot that applies three
// layers in order: time-based expiry, a count-based sliding window once the
// hard cap is exceeded, and an emergency keep-set while host memory pressure
// is latched. Only terminal operations are ever selected, so pending and
// active work survives every pass.
//
// Manager drives BuildPlan from an adaptive timer (shorter while under
// pressure), after terminal transitions, and immediately on the rising edge
// of a pressure signal. Pressure stays latched until explicitly relieved.
package memory
