// Package alloc provides a fixed-granularity byte allocator for a linear,
// pre-mapped address range.
//
// # Overview
//
// UnitAllocator splits its Region into a bitmap prefix of BitmapReserve
// (24576) bytes and a data area of 32-byte units. One bit per unit records
// occupancy; requests are rounded up to whole units and served by a first-fit
// scan for a contiguous run of free bits.
//
// # Lifecycle
//
// An allocator from New has no memory. Init hands it a Region; a Region no
// larger than BitmapReserve leaves it unusable without an error, so callers
// check AvailableBytes afterwards. Extend hot-adds memory that starts exactly
// at the current end (bitmap base + TotalBytes) of the same Space. The managed
// range never shrinks or moves.
//
// # Usage Example
//
//	sp, _ := mem.NewSpace(0x1000_0000, 200000)
//	a := alloc.New(nil)
//	a.Init(sp.All())
//
//	addr, err := a.Alloc(100, 8) // 4 units
//	if errors.Is(err, alloc.ErrNoMemory) {
//	    // fall back or report out-of-memory
//	}
//	buf, _ := a.Bytes(addr, 100)
//	copy(buf, payload)
//	a.Dealloc(addr, 100, 8)
//
// # Counters
//
//   - TotalBytes: managed size including the bitmap prefix
//   - UsedBytes: bytes in allocated units
//   - AvailableBytes: bytes in all units, used or not (not "free bytes")
//   - FreeBytes: bytes in free units
//
// # Errors
//
// ErrNoMemory is the expected, recoverable failure. ErrInvalidParam marks a
// setup fault or a malformed request. Dealloc absorbs failures (logging them);
// TryDealloc reports ErrMemoryOverlap for double frees.
//
// # Thread Safety
//
// UnitAllocator is not thread-safe. Use one instance per goroutine, or wrap it
// with NewLocked.
package alloc
