package logging

import (
	"strings"
	"sync"
)

// ProgressSampler suppresses repetitive progress logs per operation while
// preserving signal when the step or percentage bucket changes.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	entries    map[string]*sampleState
}

type sampleState struct {
	step   string
	bucket int
}

// NewProgressSampler constructs a sampler that emits when the completed
// fraction crosses bucket boundaries (default 0.10) or when the step changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 || bucketSize > 1 {
		bucketSize = 0.10
	}
	return &ProgressSampler{bucketSize: bucketSize, entries: make(map[string]*sampleState)}
}

// ShouldLog reports whether a progress update for id should be logged.
// Fraction can be negative to indicate "unknown"; step is trimmed before
// comparison.
func (s *ProgressSampler) ShouldLog(id string, fraction float64, step string) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[id]
	if !ok {
		state = &sampleState{bucket: -1}
		s.entries[id] = state
	}
	step = strings.TrimSpace(step)
	emit := false
	if step != "" && step != state.step {
		state.step = step
		state.bucket = -1
		emit = true
	}
	if fraction >= 0 {
		bucket := int(fraction / s.bucketSize)
		if fraction >= 1 {
			bucket = int(1 / s.bucketSize)
		}
		if bucket > state.bucket {
			state.bucket = bucket
			emit = true
		}
	}
	return emit
}

// Forget drops the sampling state for id once its operation finishes.
func (s *ProgressSampler) Forget(id string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Tracked returns the number of operations with sampling state.
func (s *ProgressSampler) Tracked() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
