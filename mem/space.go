package mem

import (
	"fmt"

	"github.com/joshuapare/unitalloc/internal/buf"
	"github.com/joshuapare/unitalloc/internal/mmregion"
)

// Addr is an address in a Space's address range.
type Addr uint64

// String formats the address in hex.
func (a Addr) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// Space is one backing mapping placed at a nominal base address.
//
// NOT thread-safe. Callers serialize access to the bytes.
type Space struct {
	base Addr
	data []byte
	m    *mmregion.Mapping // nil for SpaceFromBytes

	closed bool
}

// NewSpace maps size bytes of zeroed anonymous memory at base.
func NewSpace(base Addr, size int) (*Space, error) {
	if err := checkBase(base, size); err != nil {
		return nil, err
	}
	m, err := mmregion.Anonymous(size)
	if err != nil {
		return nil, err
	}
	return &Space{base: base, data: m.Bytes(), m: m}, nil
}

// OpenSpace maps the file at path as a Space at base. The file is created when
// missing and grown to size bytes when shorter; size 0 maps the current file.
func OpenSpace(path string, base Addr, size int) (*Space, error) {
	if size < 0 {
		return nil, ErrInvalidRange
	}
	m, err := mmregion.MapFile(path, size)
	if err != nil {
		return nil, err
	}
	if err := checkBase(base, m.Len()); err != nil {
		_ = m.Close()
		return nil, err
	}
	return &Space{base: base, data: m.Bytes(), m: m}, nil
}

// SpaceFromBytes wraps data as a Space at base. The caller keeps ownership of data.
func SpaceFromBytes(base Addr, data []byte) (*Space, error) {
	if err := checkBase(base, len(data)); err != nil {
		return nil, err
	}
	return &Space{base: base, data: data}, nil
}

func checkBase(base Addr, size int) error {
	if base == 0 || size <= 0 {
		return ErrInvalidRange
	}
	if _, ok := buf.AddU64(uint64(base), uint64(size)); !ok {
		return ErrInvalidRange
	}
	return nil
}

// Base returns the first address of the Space.
func (s *Space) Base() Addr { return s.base }

// End returns the address one past the last byte of the Space.
func (s *Space) End() Addr { return s.base + Addr(len(s.data)) }

// Len returns the size of the Space in bytes.
func (s *Space) Len() int { return len(s.data) }

// Bytes returns the backing memory.
func (s *Space) Bytes() []byte { return s.data }

// FileBacked reports whether Sync persists to a file.
func (s *Space) FileBacked() bool { return s.m != nil && s.m.FileBacked() }

// Offset translates addr into an offset in Bytes(). ok is false when addr is
// outside the Space. End() itself translates to Len().
func (s *Space) Offset(addr Addr) (int, bool) {
	if addr < s.base || addr > s.End() {
		return 0, false
	}
	return int(addr - s.base), true
}

// Region returns the sub-range [base, base+size) of the Space.
func (s *Space) Region(base Addr, size uint64) (Region, error) {
	if size == 0 {
		return Region{}, ErrInvalidRange
	}
	off, ok := s.Offset(base)
	if !ok || size > uint64(len(s.data)-off) {
		return Region{}, fmt.Errorf("%w: [%s,+%d) in space [%s,%s)", ErrOutOfBounds, base, size, s.base, s.End())
	}
	return Region{s: s, off: off, n: int(size)}, nil
}

// All returns the Region covering the whole Space.
func (s *Space) All() Region {
	return Region{s: s, off: 0, n: len(s.data)}
}

// Sync persists Bytes()[off:off+n] when the Space is file-backed.
func (s *Space) Sync(off, n int) error {
	if s.m == nil {
		if !buf.Has(s.data, off, n) {
			return fmt.Errorf("%w: sync [%d,+%d)", ErrOutOfBounds, off, n)
		}
		return nil
	}
	return s.m.Sync(off, n)
}

// Close releases the mapping. Regions of a closed Space must not be used.
// Closing twice returns ErrClosed.
func (s *Space) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.data = nil
	if s.m == nil {
		return nil
	}
	return s.m.Close()
}
