// Package pressure samples host memory and converts the readings into an
// edge-triggered "under pressure" signal with a hysteresis band, so the
// memory manager does not flap between cleanup modes.
package pressure
