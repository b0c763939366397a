package logging

import (
	"sync"
)

// ErrorSampler reduces log noise from repeated failures of the same kind.
// It reports the first occurrence of a key and then every Nth one.
type ErrorSampler struct {
	mu       sync.Mutex
	counts   map[string]int
	interval int
}

// NewErrorSampler creates a sampler that reports every interval-th occurrence.
// An interval below 1 falls back to 10.
func NewErrorSampler(interval int) *ErrorSampler {
	if interval < 1 {
		interval = 10
	}
	return &ErrorSampler{
		counts:   make(map[string]int),
		interval: interval,
	}
}

// ShouldLog records one occurrence of key and reports whether it should be
// logged, together with the number of occurrences seen so far.
func (s *ErrorSampler) ShouldLog(key string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[key]++
	n := s.counts[key]
	return n == 1 || n%s.interval == 0, n
}

// Count returns the occurrences recorded for key since its last reset.
func (s *ErrorSampler) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

// Reset clears key and returns how many occurrences it had.
func (s *ErrorSampler) Reset(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.counts[key]
	delete(s.counts, key)
	return n
}
