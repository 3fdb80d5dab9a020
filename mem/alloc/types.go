package alloc

import (
	"io"
	"log/slog"

	"github.com/joshuapare/unitalloc/mem"
	"github.com/joshuapare/unitalloc/mem/dirty"
)

const (
	// UnitSize is the allocation granularity in bytes.
	UnitSize = 32

	// BitmapReserve is the prefix of every managed region that holds the
	// occupancy bitmap. A region must be larger than this to be usable.
	BitmapReserve = 4096 * 6

	// MaxUnits is the most units the reserved bitmap can track.
	MaxUnits = BitmapReserve * 8
)

// Allocator is the contract callers of a unit allocator depend on.
//
// Implementations:
//   - UnitAllocator: bitmap-backed first-fit allocator
//   - Locked: mutex-serialized wrapper around any Allocator
type Allocator interface {
	// Init hands the allocator its initial region. Regions no larger than
	// BitmapReserve leave the allocator unusable; check TotalBytes/AvailableBytes.
	Init(r mem.Region)

	// Extend grows the managed range with memory that starts exactly where the
	// current range ends.
	Extend(r mem.Region) error

	// Alloc returns the address of size bytes aligned to align.
	Alloc(size, align uint64) (mem.Addr, error)

	// Dealloc returns memory obtained from Alloc with the same size and align.
	// Failures are absorbed.
	Dealloc(addr mem.Addr, size, align uint64)

	// TotalBytes is the size of the managed range, bitmap prefix included.
	TotalBytes() uint64

	// UsedBytes is the number of bytes in allocated units.
	UsedBytes() uint64

	// AvailableBytes is the number of allocatable bytes (used or not).
	AvailableBytes() uint64
}

// Options configures a UnitAllocator.
type Options struct {
	// Logger receives warnings about rejected requests and absorbed
	// deallocation failures.
	// Default: discard
	Logger *slog.Logger

	// Tracker is told which bitmap bytes (as Space offsets) each mutation
	// touched, so file-backed regions can flush only what changed.
	// Default: nil (no tracking)
	Tracker dirty.DirtyTracker
}

// DefaultOptions returns options with a discarding logger and no dirty tracking.
func DefaultOptions() *Options {
	return &Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Stats is a point-in-time view of the allocator counters.
type Stats struct {
	Active         bool   `json:"active"`
	Base           uint64 `json:"base"`
	DataBase       uint64 `json:"data_base"`
	UnitSize       uint64 `json:"unit_size"`
	Units          uint64 `json:"units"`
	FreeUnits      uint64 `json:"free_units"`
	TotalBytes     uint64 `json:"total_bytes"`
	UsedBytes      uint64 `json:"used_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
	FreeBytes      uint64 `json:"free_bytes"`
}
