// Package logs reads back the JSON log file written under logging.dir.
//
// Tail streams the file with bounded memory, supports a negative offset for
// "last N lines" and polls for new lines in follow mode. ParseEntry and
// Filter narrow the stream down to one operation, target or severity so
// `murmur logs` can replay the history of a single recording.
package logs
