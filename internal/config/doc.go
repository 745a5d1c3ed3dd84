// Package config loads, normalizes, and validates murmur configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MURMUR_NTFY_TOPIC. The Config type centralizes the coordinator capacity,
// retention policy, pressure probe, and notification settings so the CLI and
// the coordinator read them from one place.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
