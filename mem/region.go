package mem

import (
	"fmt"

	"github.com/joshuapare/unitalloc/internal/buf"
)

// Region is a bounds-checked sub-range of a Space. The zero Region is invalid.
type Region struct {
	s   *Space
	off int
	n   int
}

// Valid reports whether r refers to a Space.
func (r Region) Valid() bool { return r.s != nil && r.n > 0 }

// Space returns the Space r was carved from.
func (r Region) Space() *Space { return r.s }

// Base returns the first address of r.
func (r Region) Base() Addr {
	if r.s == nil {
		return 0
	}
	return r.s.base + Addr(r.off)
}

// End returns the address one past the last byte of r.
func (r Region) End() Addr { return r.Base() + Addr(r.n) }

// Len returns the size of r in bytes.
func (r Region) Len() uint64 { return uint64(r.n) }

// SpaceOffset returns the offset of r's first byte in its Space.
func (r Region) SpaceOffset() int { return r.off }

// Contains reports whether [addr, addr+n) lies inside r.
func (r Region) Contains(addr Addr, n uint64) bool {
	if !r.Valid() || addr < r.Base() {
		return false
	}
	end, ok := buf.AddU64(uint64(addr), n)
	return ok && end <= uint64(r.End())
}

// Adjacent reports whether next starts exactly where r ends in the same Space.
func (r Region) Adjacent(next Region) bool {
	return r.Valid() && next.Valid() && r.s == next.s && next.off == r.off+r.n
}

// Join returns the Region covering r followed by next.
func (r Region) Join(next Region) (Region, error) {
	if !r.Adjacent(next) {
		return Region{}, fmt.Errorf("%w: [%s,%s) then [%s,%s)", ErrNotAdjacent, r.Base(), r.End(), next.Base(), next.End())
	}
	return Region{s: r.s, off: r.off, n: r.n + next.n}, nil
}

// Sub returns the Region [Base()+off, Base()+off+n).
func (r Region) Sub(off, n uint64) (Region, error) {
	if n == 0 {
		return Region{}, ErrInvalidRange
	}
	if off > uint64(r.n) || n > uint64(r.n)-off {
		return Region{}, fmt.Errorf("%w: sub [%d,+%d) of %d bytes", ErrOutOfBounds, off, n, r.n)
	}
	return Region{s: r.s, off: r.off + int(off), n: int(n)}, nil
}

// Bytes returns the memory backing r.
func (r Region) Bytes() []byte {
	if !r.Valid() {
		return nil
	}
	return r.s.data[r.off : r.off+r.n]
}

// Offset translates addr into an offset from r.Base().
func (r Region) Offset(addr Addr) (uint64, error) {
	if !r.Contains(addr, 0) {
		return 0, fmt.Errorf("%w: %s not in [%s,%s)", ErrOutOfBounds, addr, r.Base(), r.End())
	}
	return uint64(addr - r.Base()), nil
}

// Slice returns the memory backing [addr, addr+n), which must lie inside r.
func (r Region) Slice(addr Addr, n uint64) ([]byte, error) {
	if !r.Contains(addr, n) {
		return nil, fmt.Errorf("%w: [%s,+%d) not in [%s,%s)", ErrOutOfBounds, addr, n, r.Base(), r.End())
	}
	off := int(addr - r.Base())
	b, _ := buf.Slice(r.Bytes(), off, int(n))
	return b, nil
}
