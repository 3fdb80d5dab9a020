package dirty

import "context"

// DirtyTracker is the minimal interface for tracking modified byte ranges.
// off is an offset from the start of the Space, length is the number of bytes.
//
// Allocators only notify about dirty regions; they never flush.
type DirtyTracker interface {
	Add(off, length int)
}

// Flusher persists a byte range of a Space. *mem.Space implements it.
type Flusher interface {
	Sync(off, n int) error
}

// sizer is implemented by Flushers with a fixed length.
type sizer interface {
	Len() int
}

// FlushableTracker extends DirtyTracker with flushing. *Tracker implements it.
type FlushableTracker interface {
	DirtyTracker

	// Flush persists every recorded range and clears the tracker.
	Flush(ctx context.Context) error
}

var _ FlushableTracker = (*Tracker)(nil)
