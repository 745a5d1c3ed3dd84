package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 0.10},
		{"default bucket size for negative", -1, 0.10},
		{"default bucket size above one", 5, 0.10},
		{"custom bucket size", 0.25, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("op", 0.5, "step") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Forget("op") // should not panic
}

func TestProgressSampler_StepChange(t *testing.T) {
	s := NewProgressSampler(0.10)

	if !s.ShouldLog("op", 0, "Uploading") {
		t.Error("first step should log")
	}
	if s.ShouldLog("op", 0, "  Uploading ") {
		t.Error("same step and fraction should not log again")
	}
	if !s.ShouldLog("op", 0, "Decoding") {
		t.Error("different step should log")
	}
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(0.25)
	s.ShouldLog("op", 0, "")

	if s.ShouldLog("op", 0.20, "") {
		t.Error("0.20 should not log")
	}
	if !s.ShouldLog("op", 0.25, "") {
		t.Error("0.25 should log")
	}
	if s.ShouldLog("op", 0.49, "") {
		t.Error("0.49 should not log")
	}
	if !s.ShouldLog("op", 1, "") {
		t.Error("1.0 should log")
	}
	if s.ShouldLog("op", 1.2, "") {
		t.Error("values above 1 should share the final bucket")
	}
}

func TestProgressSampler_NegativeFraction(t *testing.T) {
	s := NewProgressSampler(0.10)
	if !s.ShouldLog("op", -1, "Unknown") {
		t.Error("first call should log on step change")
	}
	if s.ShouldLog("op", -1, "Unknown") {
		t.Error("negative fraction should not trigger bucket logging")
	}
}

func TestProgressSampler_KeysAreIndependent(t *testing.T) {
	s := NewProgressSampler(0.10)
	s.ShouldLog("a", 0.5, "")
	if !s.ShouldLog("b", 0.5, "") {
		t.Error("a fresh key should log its first bucket")
	}
	if s.Tracked() != 2 {
		t.Errorf("Tracked = %d, want 2", s.Tracked())
	}
	s.Forget("a")
	if s.Tracked() != 1 {
		t.Errorf("Tracked = %d after Forget, want 1", s.Tracked())
	}
	if !s.ShouldLog("a", 0.5, "") {
		t.Error("forgotten key should log again")
	}
}
