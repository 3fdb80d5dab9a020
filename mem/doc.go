// Package mem models the linear, pre-mapped address ranges the unit allocator
// manages.
//
// # Overview
//
// A Space is one contiguous block of backing memory placed at a nominal base
// address. The memory comes from an anonymous mapping, a file-backed shared
// mapping, or a caller-provided byte slice. Addresses are plain integers in
// the Space's address range; they are never turned into Go pointers.
//
// A Region is a bounds-checked sub-range of a Space: the opaque handle that
// allocators are initialized and extended with. Every address to offset
// translation goes through Space or Region, so no caller does raw arithmetic
// against the backing slice.
//
// # Usage Example
//
//	sp, err := mem.NewSpace(0x1000_0000, 1<<20)
//	if err != nil {
//	    return err
//	}
//	defer sp.Close()
//
//	// First 256KB now, the rest hot-added later.
//	r, err := sp.Region(sp.Base(), 256<<10)
//	if err != nil {
//	    return err
//	}
//	a := alloc.New(nil)
//	a.Init(r)
//
//	next, _ := sp.Region(r.End(), 64<<10)
//	if err := a.Extend(next); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// Space and Region are immutable handles, but the bytes they expose are not
// synchronized. Callers serialize writers.
package mem
