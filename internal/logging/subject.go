package logging

import "strings"

// FormatSubject builds the category/target/operation subject string used in
// console output, e.g. "Transcription rec-42 (op 1f3a9c2e)".
func FormatSubject(category, target, opID string) string {
	category = strings.TrimSpace(category)
	target = strings.TrimSpace(target)
	opID = strings.TrimSpace(opID)
	parts := make([]string, 0, 3)
	if category != "" {
		parts = append(parts, strings.ToUpper(category[:1])+strings.ToLower(category[1:]))
	}
	if target != "" {
		parts = append(parts, target)
	}
	if opID != "" {
		if len(opID) > 8 {
			opID = opID[:8]
		}
		parts = append(parts, "(op "+opID+")")
	}
	return strings.Join(parts, " ")
}
