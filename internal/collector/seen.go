package collector

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// Sized for a few months of sampling at 0.1% false positives
	seenEstimate = 500000
	seenFPRate   = 0.001
)

// SeenSet records match ids already handled in this process run.
// The bloom filter answers most misses without touching the map;
// positives are confirmed against the exact set so no id is ever
// wrongly treated as seen.
type SeenSet struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	ids    map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{
		filter: bloom.NewWithEstimates(seenEstimate, seenFPRate),
		ids:    make(map[string]struct{}),
	}
}

// IsSeen reports whether id has been marked
func (s *SeenSet) IsSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSeenLocked(id)
}

// MarkSeen adds id and reports whether it was new. Marking twice is a no-op.
func (s *SeenSet) MarkSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isSeenLocked(id) {
		return false
	}
	s.filter.AddString(id)
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of distinct ids marked
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Reset forgets every id
func (s *SeenSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = bloom.NewWithEstimates(seenEstimate, seenFPRate)
	s.ids = make(map[string]struct{})
}

func (s *SeenSet) isSeenLocked(id string) bool {
	if !s.filter.TestString(id) {
		return false
	}
	_, ok := s.ids[id]
	return ok
}
