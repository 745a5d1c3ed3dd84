// Package preflight provides readiness checks for the filesystem paths,
// external services and host facilities murmur depends on.
//
// The CLI "murmur doctor" command runs RunAll and renders each Result.
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
