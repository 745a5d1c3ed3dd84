// Package main hosts the murmur CLI.
//
// The command tree drives an in-process coordinator: simulate replays a TOML
// scenario against a manual clock, stress hammers a live coordinator from
// concurrent goroutines and audits the conflict invariant, and doctor,
// pressure and test-notify probe the environment the coordinator would run
// in. Configuration resolution and logger setup live in commandContext.
package main
