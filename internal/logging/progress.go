package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs. It emits when the phase
// changes or the percentage crosses a bucket boundary (default 10%).
type ProgressSampler struct {
	bucketSize float64
	lastPhase  string
	lastBucket int
}

func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress at current/total within phase is worth a
// log line. A nil sampler always logs.
func (s *ProgressSampler) ShouldLog(phase string, current, total int) bool {
	if s == nil {
		return true
	}
	phase = strings.TrimSpace(phase)
	emit := false
	if phase != s.lastPhase {
		s.lastPhase = phase
		s.lastBucket = -1
		emit = true
	}
	if total <= 0 {
		return emit
	}
	percent := float64(current) * 100 / float64(total)
	if percent > 100 {
		percent = 100
	}
	if bucket := int(percent / s.bucketSize); bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}
