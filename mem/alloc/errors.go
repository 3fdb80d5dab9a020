package alloc

import "github.com/joshuapare/unitalloc/mem/bitmap"

// The allocator reports the bitmap's error kinds so callers match a single set
// with errors.Is.
var (
	// ErrInvalidParam indicates a malformed request or a non-contiguous extension.
	ErrInvalidParam = bitmap.ErrInvalidParam

	// ErrNoMemory indicates that no free run large enough exists (or the allocator is not initialized).
	ErrNoMemory = bitmap.ErrNoMemory

	// ErrMemoryOverlap indicates a deallocation over units that are not all allocated.
	ErrMemoryOverlap = bitmap.ErrMemoryOverlap
)
