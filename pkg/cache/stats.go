package cache

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// CountType indexes a statistics counter
type CountType int

const (
	Found CountType = iota
	NotFound
	Add
	Change
	Remove
	Clear

	// SizeOf is the number of counters a complete statistics array holds.
	SizeOf
)

// String returns the counter name.
func (t CountType) String() string {
	switch t {
	case Found:
		return "found"
	case NotFound:
		return "notFound"
	case Add:
		return "add"
	case Change:
		return "change"
	case Remove:
		return "remove"
	case Clear:
		return "clear"
	default:
		return fmt.Sprintf("count%d", int(t))
	}
}

// Statistics holds diagnostic event counters for a Cache.
//
// Increments are atomic and may run alongside any cache operation. Set swaps
// the whole array, so increments racing with a merge can be lost; the counters
// never take part in cache correctness.
type Statistics struct {
	counts atomic.Pointer[[]int64]
}

// NewStatistics creates a zeroed counter array of SizeOf entries
func NewStatistics() *Statistics {
	s := &Statistics{}
	counts := make([]int64, SizeOf)
	s.counts.Store(&counts)
	return s
}

// Increment bumps one counter, reporting false when t is out of range.
func (s *Statistics) Increment(t CountType) bool {
	if s == nil {
		return false
	}

	p := s.counts.Load()
	if p == nil || t < 0 || int(t) >= len(*p) {
		return false
	}

	atomic.AddInt64(&(*p)[t], 1)
	return true
}

// Get returns a single counter value.
func (s *Statistics) Get(t CountType) int64 {
	if s == nil {
		return 0
	}

	p := s.counts.Load()
	if p == nil || t < 0 || int(t) >= len(*p) {
		return 0
	}

	return atomic.LoadInt64(&(*p)[t])
}

// Counts returns a snapshot of every counter.
func (s *Statistics) Counts() []int64 {
	if s == nil {
		return nil
	}

	p := s.counts.Load()
	if p == nil {
		return nil
	}

	out := make([]int64, len(*p))
	for i := range *p {
		out[i] = atomic.LoadInt64(&(*p)[i])
	}

	return out
}

// HaveCounts reports whether any counter is non-zero. It knows nothing of
// the cache size; Cache.HaveCounts also counts live entries.
func (s *Statistics) HaveCounts() bool {
	for _, n := range s.Counts() {
		if n != 0 {
			return true
		}
	}

	return false
}

// Zero resets every counter, reporting false when there is nothing to reset.
func (s *Statistics) Zero() bool {
	if s == nil {
		return false
	}

	p := s.counts.Load()
	if p == nil || len(*p) == 0 {
		return false
	}

	for i := range *p {
		atomic.StoreInt64(&(*p)[i], 0)
	}

	return true
}

// Set replaces or merges the counters.
//
// With merge, counts are added element-wise, growing the array to fit. Without
// merge, counts overwrite the array wholesale. A nil counts merges as a no-op
// and otherwise resets the array to nothing. Non-nil counts shorter than SizeOf
// are rejected.
func (s *Statistics) Set(counts []int64, merge bool) bool {
	if s == nil {
		return false
	}

	if counts == nil {
		if !merge {
			s.counts.Store(nil)
		}
		return true
	}

	if len(counts) < int(SizeOf) {
		return false
	}

	if !merge {
		replaced := append([]int64(nil), counts...)
		s.counts.Store(&replaced)
		return true
	}

	current := s.Counts()
	merged := make([]int64, max(len(current), len(counts)))
	copy(merged, current)
	for i, n := range counts {
		merged[i] += n
	}

	s.counts.Store(&merged)
	return true
}

// String renders the counters as a name/value list. Zero counters are left
// out unless empty is set.
func (s *Statistics) String(empty bool) string {
	var b strings.Builder
	for i, n := range s.Counts() {
		if n == 0 && !empty {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s %d", CountType(i), n)
	}

	return b.String()
}

// Report renders the entry count followed by the counters.
func (c *Cache) Report(empty bool) string {
	report := fmt.Sprintf("count %d", c.Count())
	if counts := c.statsOrNil().String(empty); counts != "" {
		report += " " + counts
	}

	return report
}
