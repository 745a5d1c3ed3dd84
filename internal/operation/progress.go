package operation

import (
	"math"
	"strings"
)

// Progress is the structured status payload reported while an operation runs.
// Detail carries category-specific figures; Diagnostics is a free-form side
// channel that coordination logic never reads.
type Progress struct {
	Percentage  float64           `json:"percentage"`
	CurrentStep string            `json:"current_step,omitempty"`
	ETASeconds  *float64          `json:"eta_seconds,omitempty"`
	StepIndex   *int              `json:"step_index,omitempty"`
	TotalSteps  *int              `json:"total_steps,omitempty"`
	Detail      Detail            `json:"detail,omitempty"`
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
}

// Detail is implemented by the per-category progress payloads.
type Detail interface {
	DetailCategory() Category
}

// RecordingDetail reports capture progress.
type RecordingDetail struct {
	ElapsedSeconds float64
	BytesCaptured  int64
	InputLevelDB   float64
}

func (RecordingDetail) DetailCategory() Category { return CategoryRecording }

// TranscriptionDetail reports speech-to-text progress.
type TranscriptionDetail struct {
	SegmentsDone     int
	SegmentsTotal    int
	WordsTranscribed int
	Language         string
}

func (TranscriptionDetail) DetailCategory() Category { return CategoryTranscription }

// AnalysisDetail reports AI analysis progress.
type AnalysisDetail struct {
	Kind       AnalysisKind
	ItemsFound int
}

func (AnalysisDetail) DetailCategory() Category { return CategoryAnalysis }

// NewProgress builds a progress value with percentage clamped into [0,1].
func NewProgress(percentage float64, step string) Progress {
	return Progress{
		Percentage:  clampUnit(percentage),
		CurrentStep: strings.TrimSpace(step),
	}
}

// WithSteps records the current step position.
func (p Progress) WithSteps(index, total int) Progress {
	p.StepIndex = &index
	p.TotalSteps = &total
	return p
}

// WithETA records the estimated seconds remaining.
func (p Progress) WithETA(seconds float64) Progress {
	p.ETASeconds = &seconds
	return p
}

// WithDiagnostic adds a free-form diagnostic entry.
func (p Progress) WithDiagnostic(key, value string) Progress {
	key = strings.TrimSpace(key)
	if key == "" {
		return p
	}
	next := make(map[string]string, len(p.Diagnostics)+1)
	for k, v := range p.Diagnostics {
		next[k] = v
	}
	next[key] = value
	p.Diagnostics = next
	return p
}

// Normalize clamps the percentage and drops a detail that belongs to a
// different category than the operation reporting it. The result shares no
// pointers or maps with p.
func (p Progress) Normalize(category Category) Progress {
	p = p.Clone()
	p.Percentage = clampUnit(p.Percentage)
	p.CurrentStep = strings.TrimSpace(p.CurrentStep)
	if p.Detail != nil && p.Detail.DetailCategory() != category {
		p.Detail = nil
	}
	return p
}

// Clone returns a deep copy.
func (p Progress) Clone() Progress {
	cp := p
	if p.ETASeconds != nil {
		v := *p.ETASeconds
		cp.ETASeconds = &v
	}
	if p.StepIndex != nil {
		v := *p.StepIndex
		cp.StepIndex = &v
	}
	if p.TotalSteps != nil {
		v := *p.TotalSteps
		cp.TotalSteps = &v
	}
	if p.Diagnostics != nil {
		cp.Diagnostics = make(map[string]string, len(p.Diagnostics))
		for k, v := range p.Diagnostics {
			cp.Diagnostics[k] = v
		}
	}
	return cp
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
