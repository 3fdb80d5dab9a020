package alloc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshuapare/unitalloc/internal/buf"
	"github.com/joshuapare/unitalloc/mem"
	"github.com/joshuapare/unitalloc/mem/bitmap"
	"github.com/joshuapare/unitalloc/mem/dirty"
)

// UnitAllocator carves a Region into a bitmap prefix of BitmapReserve bytes
// followed by 32-byte units, and serves contiguous runs of units first-fit.
//
// Layout of the managed range:
//
//	bitmapBase                 dataBase = bitmapBase + BitmapReserve
//	|<------ BitmapReserve ---->|<-- unit 0 -->|<-- unit 1 -->| ... |<- tail ->|
//
// The tail is the remainder of TotalBytes that does not fill a whole unit; it
// becomes usable once an extension completes it.
type UnitAllocator struct {
	log *slog.Logger
	dt  dirty.DirtyTracker

	// region is the whole managed range. Valid only once active.
	region mem.Region

	// total is the managed size in bytes measured from bitmapBase. It is also
	// set by a rejected Init so callers can see what was offered.
	total uint64

	unitCount uint64
	freeUnits uint64

	bitmapBase mem.Addr
	dataBase   mem.Addr

	bm *bitmap.Bitmap // nil until active
}

// New returns an allocator with no memory. Call Init (or Attach) before use.
func New(opts *Options) *UnitAllocator {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := opts.Logger
	if log == nil {
		log = DefaultOptions().Logger
	}
	return &UnitAllocator{log: log, dt: opts.Tracker}
}

// Init makes r the managed range and marks every unit free by zeroing the
// bitmap prefix. It does not report failure: when r is not larger than
// BitmapReserve, or too large for the bitmap to track, the allocator stays
// unusable (AvailableBytes() == 0) and only TotalBytes reflects r.
func (a *UnitAllocator) Init(r mem.Region) {
	_ = a.setup(r, true)
}

// Attach is Init for a range whose bitmap prefix already describes live
// allocations, such as a file-backed region written by a previous process.
// The free-unit count is rebuilt from the bitmap.
func (a *UnitAllocator) Attach(r mem.Region) error {
	return a.setup(r, false)
}

func (a *UnitAllocator) setup(r mem.Region, zero bool) error {
	if a.bm != nil {
		a.log.Warn("allocator already initialized, ignoring region",
			"base", r.Base().String(), "size", r.Len())
		return fmt.Errorf("alloc: already initialized: %w", ErrInvalidParam)
	}
	if !r.Valid() {
		return fmt.Errorf("alloc: invalid region: %w", ErrInvalidParam)
	}

	a.total = r.Len()
	if r.Len() <= BitmapReserve {
		a.log.Warn("region too small for bitmap reserve",
			"size", r.Len(), "reserve", BitmapReserve)
		return fmt.Errorf("alloc: region of %d bytes does not exceed the %d byte bitmap reserve: %w",
			r.Len(), BitmapReserve, ErrInvalidParam)
	}

	units := (r.Len() - BitmapReserve) / UnitSize
	if units > MaxUnits {
		a.log.Warn("init failed", "size", r.Len(), "units", units, "max_units", MaxUnits)
		return fmt.Errorf("alloc: %d units exceed bitmap capacity: %w", units, ErrInvalidParam)
	}
	storage := r.Bytes()[:BitmapReserve]
	bm, err := bitmap.New(storage, int(units))
	if err != nil {
		return fmt.Errorf("alloc: %w", err)
	}

	a.region = r
	occupied := 0
	if zero {
		clear(storage)
		a.markDirty(0, BitmapReserve)
	} else {
		occupied = bm.Occupied()
	}

	a.bm = bm
	a.unitCount = units
	a.freeUnits = units - uint64(occupied)
	a.bitmapBase = r.Base()
	a.dataBase = r.Base() + BitmapReserve

	a.log.Debug("allocator initialized",
		"base", a.bitmapBase.String(), "size", a.total, "units", units, "occupied", occupied)
	return nil
}

// Extend adds r to the managed range. r must come from the same Space and
// start exactly at the current end (bitmapBase + TotalBytes()). The new unit
// count is computed from the enlarged total and newly tracked units that the
// bitmap already marks occupied stay occupied; growth the bitmap cannot track,
// or growth that adds no whole unit, fails with ErrInvalidParam and changes
// nothing.
func (a *UnitAllocator) Extend(r mem.Region) error {
	if a.bm == nil {
		return fmt.Errorf("alloc: extend before init: %w", ErrInvalidParam)
	}
	if !a.region.Adjacent(r) {
		a.log.Warn("extension not contiguous",
			"want_base", a.region.End().String(), "got_base", r.Base().String())
		return fmt.Errorf("alloc: extension at %s is not contiguous with end %s: %w",
			r.Base(), a.region.End(), ErrInvalidParam)
	}

	joined, err := a.region.Join(r)
	if err != nil {
		return fmt.Errorf("alloc: %w: %w", ErrInvalidParam, err)
	}
	newTotal := a.total + r.Len()
	newUnits := (newTotal - BitmapReserve) / UnitSize
	if newUnits > MaxUnits || a.bm.Grow(int(newUnits)) == 0 {
		a.log.Warn("failed to grow bitmap", "units", a.unitCount, "want_units", newUnits)
		return fmt.Errorf("alloc: cannot grow from %d to %d units: %w", a.unitCount, newUnits, ErrInvalidParam)
	}

	// Bits past the old capacity may still be set when the range was
	// Attached shorter than the one that wrote the bitmap.
	occupied := uint64(a.bm.OccupiedIn(int(a.unitCount), int(newUnits)))

	a.region = joined
	a.freeUnits += newUnits - a.unitCount - occupied
	a.unitCount = newUnits
	a.total = newTotal

	a.log.Debug("allocator extended", "size", a.total, "units", a.unitCount)
	return nil
}

// unitsFor converts a byte size into a unit count. Zero-sized requests still
// occupy one unit so every allocation has a distinct address.
func unitsFor(size uint64) uint64 {
	return buf.DivRoundUp(max(size, 1), UnitSize)
}

// Alloc reserves the first run of units large enough for size bytes.
//
// align must be zero (treated as 1) or a power of two. Alignments up to the
// unit size are satisfied by unit granularity relative to the data base;
// larger alignments are honored for the absolute address. The unit count
// depends on size only.
//
// Returned addresses are whole units from DataBase. They are 32-byte aligned
// in absolute terms only when the region base is.
func (a *UnitAllocator) Alloc(size, align uint64) (mem.Addr, error) {
	if a.bm == nil {
		return 0, ErrNoMemory
	}
	if align == 0 {
		align = 1
	}
	if !buf.IsPowerOfTwo(align) {
		return 0, fmt.Errorf("alloc: alignment %d is not a power of two: %w", align, ErrInvalidParam)
	}

	units := unitsFor(size)
	if units > a.freeUnits {
		return 0, ErrNoMemory
	}

	var (
		idx int
		err error
	)
	if align <= UnitSize {
		idx, err = a.bm.AllocContiguous(int(units))
	} else {
		if uint64(a.dataBase)%UnitSize != 0 {
			return 0, fmt.Errorf("alloc: data base %s is not unit aligned, cannot honor alignment %d: %w",
				a.dataBase, align, ErrInvalidParam)
		}
		alignUnits := align / UnitSize
		phase := (uint64(a.dataBase) / UnitSize) % alignUnits
		idx, err = a.bm.AllocAligned(int(units), int(alignUnits), int(phase))
	}
	if err != nil {
		return 0, err
	}

	a.freeUnits -= units
	a.markRun(idx, units)
	return a.addrOf(idx), nil
}

// Dealloc releases memory obtained from Alloc. size must match the Alloc
// request; align does not affect the unit count. Failures (unknown address,
// double free) are logged and otherwise ignored; use TryDealloc to see them.
func (a *UnitAllocator) Dealloc(addr mem.Addr, size, align uint64) {
	if err := a.TryDealloc(addr, size, align); err != nil {
		a.log.Warn("dealloc failed", "addr", addr.String(), "size", size, "err", err)
	}
}

// TryDealloc is Dealloc that reports failures: ErrInvalidParam for addresses
// outside the data range or off a unit boundary, ErrMemoryOverlap when any
// unit in the run is already free. Nothing changes on failure.
func (a *UnitAllocator) TryDealloc(addr mem.Addr, size, _ uint64) error {
	idx, err := a.indexOf(addr)
	if err != nil {
		return err
	}
	units := unitsFor(size)
	if err := a.bm.Release(idx, int(units)); err != nil {
		return fmt.Errorf("alloc: release %s (+%d units): %w", addr, units, err)
	}
	a.freeUnits += units
	a.markRun(idx, units)
	return nil
}

// Bytes returns the memory of the allocation at addr. The range must lie in
// the data area; it is not checked against the bitmap.
func (a *UnitAllocator) Bytes(addr mem.Addr, size uint64) ([]byte, error) {
	if _, err := a.indexOf(addr); err != nil {
		return nil, err
	}
	return a.region.Slice(addr, size)
}

// addrOf is the only unit index to address translation.
func (a *UnitAllocator) addrOf(idx int) mem.Addr {
	return a.dataBase + mem.Addr(idx)*UnitSize
}

// indexOf is the only address to unit index translation.
func (a *UnitAllocator) indexOf(addr mem.Addr) (int, error) {
	if a.bm == nil {
		return 0, fmt.Errorf("alloc: not initialized: %w", ErrInvalidParam)
	}
	if addr < a.dataBase || uint64(addr-a.dataBase)%UnitSize != 0 {
		return 0, fmt.Errorf("alloc: %s is not a unit address: %w", addr, ErrInvalidParam)
	}
	idx := uint64(addr-a.dataBase) / UnitSize
	if idx >= a.unitCount {
		return 0, fmt.Errorf("alloc: %s is past the data range: %w", addr, ErrInvalidParam)
	}
	return int(idx), nil
}

func (a *UnitAllocator) markRun(idx int, units uint64) {
	if a.dt == nil {
		return
	}
	off, n := a.bm.ByteSpan(idx, int(units))
	a.markDirty(off, n)
}

// markDirty reports bitmap bytes [off, off+n) as Space offsets.
func (a *UnitAllocator) markDirty(off, n int) {
	if a.dt == nil {
		return
	}
	a.dt.Add(a.region.SpaceOffset()+off, n)
}

// TotalBytes returns the managed size, bitmap prefix included.
func (a *UnitAllocator) TotalBytes() uint64 { return a.total }

// UsedBytes returns the bytes held by allocated units.
func (a *UnitAllocator) UsedBytes() uint64 { return (a.unitCount - a.freeUnits) * UnitSize }

// AvailableBytes returns the allocatable bytes, used or not. For the bytes
// still free use FreeBytes.
func (a *UnitAllocator) AvailableBytes() uint64 { return a.unitCount * UnitSize }

// FreeBytes returns the bytes in free units.
func (a *UnitAllocator) FreeBytes() uint64 { return a.freeUnits * UnitSize }

// Active reports whether Init or Attach succeeded.
func (a *UnitAllocator) Active() bool { return a.bm != nil }

// Region returns the managed range (invalid before a successful Init).
func (a *UnitAllocator) Region() mem.Region { return a.region }

// DataBase returns the address of unit 0.
func (a *UnitAllocator) DataBase() mem.Addr { return a.dataBase }

// BitmapBytes returns a copy of the bitmap bytes covering the current units.
func (a *UnitAllocator) BitmapBytes() []byte {
	if a.bm == nil {
		return nil
	}
	n := buf.DivRoundUp(a.unitCount, 8)
	return append([]byte(nil), a.bm.Bytes()[:n]...)
}

// Stats returns the current counters.
func (a *UnitAllocator) Stats() Stats {
	return Stats{
		Active:         a.Active(),
		Base:           uint64(a.bitmapBase),
		DataBase:       uint64(a.dataBase),
		UnitSize:       UnitSize,
		Units:          a.unitCount,
		FreeUnits:      a.freeUnits,
		TotalBytes:     a.TotalBytes(),
		UsedBytes:      a.UsedBytes(),
		AvailableBytes: a.AvailableBytes(),
		FreeBytes:      a.FreeBytes(),
	}
}

// Sync flushes the tracker when it can flush, such as a *dirty.Tracker over
// a file-backed Space. It is a no-op otherwise.
func (a *UnitAllocator) Sync(ctx context.Context) error {
	if f, ok := a.dt.(dirty.FlushableTracker); ok {
		return f.Flush(ctx)
	}
	return nil
}

// Compile-time interface check
var _ Allocator = (*UnitAllocator)(nil)
