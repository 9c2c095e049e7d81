package manager

import "sync"

// Sequence hands out monotonically increasing activity numbers. One Sequence per
// manager gives per-student uniqueness; sharing one across managers gives
// process-wide uniqueness.
type Sequence struct {
	mu   sync.Mutex
	last uint64
}

// NewSequence creates a sequence whose first value is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next number.
func (s *Sequence) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}
