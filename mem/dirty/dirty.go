// Package dirty tracks which pages of a file-backed Space have been modified
// and flushes them through the Space's Sync.
//
// Ranges are coalesced into page-aligned, sorted, non-overlapping runs at
// flush time, so a 1-byte change dirties its whole 4KB page:
//
//	Dirty pages: [0, 1, 2, 5, 6] → Ranges: [0x0-0x3000, 0x5000-0x7000]
package dirty

import (
	"context"
	"sort"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// PageSize is the flush granularity.
	PageSize = 4096
)

// Range is a dirty byte range (offsets from the start of the Space).
type Range struct {
	Off int64
	Len int64
}

// Tracker accumulates dirty ranges and flushes them through a Flusher.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	f      Flusher
	ranges []Range
	limit  int64 // clamp for page-aligned ends; 0 means none
}

// NewTracker creates a tracker flushing through f. When f also reports its
// size (as *mem.Space does), coalesced ranges are clamped to it.
func NewTracker(f Flusher) *Tracker {
	t := &Tracker{
		f:      f,
		ranges: make([]Range, 0, defaultRangeCapacity),
	}
	if s, ok := f.(sizer); ok {
		t.limit = int64(s.Len())
	}
	return t
}

// WithLimit clamps coalesced ranges to [0, size), overriding any size taken
// from the Flusher.
func (t *Tracker) WithLimit(size int) *Tracker {
	t.limit = int64(size)
	return t
}

// Add records a dirty range. Empty ranges are ignored.
func (t *Tracker) Add(off, length int) {
	if length <= 0 || off < 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
}

// Pending returns the number of recorded, uncoalesced ranges.
func (t *Tracker) Pending() int { return len(t.ranges) }

// Ranges returns the coalesced ranges that Flush would write.
func (t *Tracker) Ranges() []Range { return t.coalesce() }

// Flush syncs every coalesced range and clears the tracker. The context is
// checked between ranges; when cancelled, already flushed ranges stay flushed
// and the tracker keeps all ranges for a retry.
func (t *Tracker) Flush(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.f.Sync(int(r.Off), int(r.Len)); err != nil {
			return err
		}
	}
	t.ranges = t.ranges[:0]
	return nil
}

// Reset clears all tracked ranges without flushing.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / PageSize) * PageSize
		end := r.Off + r.Len
		if end%PageSize != 0 {
			end = ((end / PageSize) + 1) * PageSize
		}
		if t.limit > 0 && end > t.limit {
			end = t.limit
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			if end := next.Off + next.Len; end > current.Off+current.Len {
				current.Len = end - current.Off
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
