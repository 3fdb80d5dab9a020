package bitmap

import "errors"

var (
	// ErrInvalidParam indicates a malformed construction or request (capacity larger
	// than the backing storage, non-positive run length).
	ErrInvalidParam = errors.New("bitmap: invalid parameter")

	// ErrNoMemory indicates that no run of free bits long enough exists.
	ErrNoMemory = errors.New("bitmap: no free run large enough")

	// ErrMemoryOverlap indicates a release over a range that is not fully occupied
	// (double free or partial overlap).
	ErrMemoryOverlap = errors.New("bitmap: release overlaps free bits")
)
