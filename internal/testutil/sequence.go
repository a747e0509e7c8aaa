package testutil

import "sync"

// Sequence is a resettable monotonic counter used to number trace events.
//
// Thread-safety: all methods are safe for concurrent use.
type Sequence struct {
	mu  sync.Mutex
	cur int64
}

// NewSequence returns a sequence whose first Next is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next increments and returns the counter.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur++
	return s.cur
}

// Current returns the last value handed out, or 0.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Reset rewinds to 0.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = 0
}
