package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"murmur/internal/logging"
)

// Entry is one decoded line of the JSON log file.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Fields  map[string]any
	Raw     string
}

// Field returns a top-level attribute rendered as a string.
func (e Entry) Field(key string) string {
	v, ok := e.Fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ParseEntry decodes a line written by the JSON handler. Lines that are not
// JSON objects are reported as errors so callers can pass them through.
func ParseEntry(line string) (Entry, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Entry{Raw: line}, fmt.Errorf("decode log line: %w", err)
	}
	entry := Entry{Fields: fields, Raw: line}
	if ts, ok := fields["ts"].(string); ok {
		entry.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	if lvl, ok := fields["level"].(string); ok {
		_ = entry.Level.UnmarshalText([]byte(lvl))
	}
	entry.Message, _ = fields["msg"].(string)
	delete(fields, "ts")
	delete(fields, "level")
	delete(fields, "msg")
	return entry, nil
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	OperationID string
	Target      string
	MinLevel    slog.Level
}

// Match reports whether entry passes the filter. Operation ids match on
// prefix so the short ids printed by the CLI can be used directly.
func (f Filter) Match(entry Entry) bool {
	if entry.Level < f.MinLevel {
		return false
	}
	if f.OperationID != "" && !strings.HasPrefix(entry.Field(logging.FieldOperationID), f.OperationID) {
		return false
	}
	if f.Target != "" && entry.Field(logging.FieldTarget) != f.Target {
		return false
	}
	return true
}

// Apply filters raw lines. Unparseable lines are kept only when the filter
// is empty.
func (f Filter) Apply(lines []string) []Entry {
	empty := f == Filter{}
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entry, err := ParseEntry(line)
		if err != nil {
			if empty {
				out = append(out, entry)
			}
			continue
		}
		if f.Match(entry) {
			out = append(out, entry)
		}
	}
	return out
}

var leadingFields = []string{
	logging.FieldComponent,
	logging.FieldEventType,
	logging.FieldOperationID,
	logging.FieldCategory,
	logging.FieldTarget,
}

// Format renders entry as a single human-readable line. Well-known fields
// come first, the rest follow in key order.
func Format(entry Entry) string {
	if entry.Fields == nil {
		return entry.Raw
	}
	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(entry.Time.Local().Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", entry.Level.String(), entry.Message)

	seen := make(map[string]struct{}, len(leadingFields))
	for _, key := range leadingFields {
		seen[key] = struct{}{}
		if v := entry.Field(key); v != "" {
			fmt.Fprintf(&b, " %s=%s", key, v)
		}
	}
	keys := make([]string, 0, len(entry.Fields))
	for key := range entry.Fields {
		if _, ok := seen[key]; ok || key == "source" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, entry.Field(key))
	}
	return b.String()
}
