package operation

import (
	"fmt"
	"strings"
)

// Category is the fixed set of operation kinds the coordinator understands.
type Category string

const (
	CategoryRecording     Category = "recording"
	CategoryTranscription Category = "transcription"
	CategoryAnalysis      Category = "analysis"
)

var allCategories = []Category{
	CategoryRecording,
	CategoryTranscription,
	CategoryAnalysis,
}

// AllCategories returns the known categories in priority order.
func AllCategories() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// ParseCategory converts a string into a known Category.
func ParseCategory(value string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range allCategories {
		if c == normalized {
			return c, true
		}
	}
	return "", false
}

// Priority orders competing operations. Higher values win.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

var categoryPriority = map[Category]Priority{
	CategoryRecording:     PriorityHigh,
	CategoryTranscription: PriorityMedium,
	CategoryAnalysis:      PriorityLow,
}

// PriorityFor returns the fixed priority of a category.
func PriorityFor(c Category) Priority {
	if p, ok := categoryPriority[c]; ok {
		return p
	}
	return PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// AnalysisKind distinguishes AI analysis passes over a transcript.
type AnalysisKind string

const (
	AnalysisSummary     AnalysisKind = "summary"
	AnalysisActionItems AnalysisKind = "action_items"
	AnalysisReminders   AnalysisKind = "reminders"
	AnalysisSentiment   AnalysisKind = "sentiment"
	AnalysisKeywords    AnalysisKind = "keywords"
)

// Type is the category+target variant of an operation. Construct it with
// Recording, Transcription or Analysis so the variant stays consistent.
type Type struct {
	Category     Category     `json:"category"`
	Target       string       `json:"target"`
	AnalysisKind AnalysisKind `json:"analysis_kind,omitempty"`
}

// Recording captures audio for target.
func Recording(target string) Type {
	return Type{Category: CategoryRecording, Target: strings.TrimSpace(target)}
}

// Transcription converts target's audio to text.
func Transcription(target string) Type {
	return Type{Category: CategoryTranscription, Target: strings.TrimSpace(target)}
}

// Analysis runs an AI pass of the given kind over target's transcript.
func Analysis(target string, kind AnalysisKind) Type {
	kind = AnalysisKind(strings.ToLower(strings.TrimSpace(string(kind))))
	if kind == "" {
		kind = AnalysisSummary
	}
	return Type{Category: CategoryAnalysis, Target: strings.TrimSpace(target), AnalysisKind: kind}
}

// ParseType builds a Type from loosely formatted input (CLI flags, scenarios).
func ParseType(category, target, kind string) (Type, error) {
	cat, ok := ParseCategory(category)
	if !ok {
		return Type{}, fmt.Errorf("unknown operation category %q", category)
	}
	if strings.TrimSpace(target) == "" {
		return Type{}, fmt.Errorf("%s operation requires a target", cat)
	}
	switch cat {
	case CategoryRecording:
		return Recording(target), nil
	case CategoryTranscription:
		return Transcription(target), nil
	default:
		return Analysis(target, AnalysisKind(kind)), nil
	}
}

// Priority returns the priority derived from the category.
func (t Type) Priority() Priority { return PriorityFor(t.Category) }

// Valid reports whether the variant names a known category and a target.
func (t Type) Valid() bool {
	if t.Target == "" {
		return false
	}
	if _, ok := categoryPriority[t.Category]; !ok {
		return false
	}
	if t.Category != CategoryAnalysis && t.AnalysisKind != "" {
		return false
	}
	return true
}

func (t Type) String() string {
	if t.Category == CategoryAnalysis && t.AnalysisKind != "" {
		return fmt.Sprintf("%s:%s(%s)", t.Category, t.AnalysisKind, t.Target)
	}
	return fmt.Sprintf("%s(%s)", t.Category, t.Target)
}
