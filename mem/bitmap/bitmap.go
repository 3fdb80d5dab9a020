// Package bitmap implements a one-bit-per-unit occupancy table over a caller
// supplied byte slice, with first-fit contiguous run search.
//
// Bit i lives in byte i/8 at bit offset i%8 (least significant bit first).
// A zero bit is a free unit, a one bit an occupied unit.
//
// The Bitmap does not own or zero its storage. Bitmap instances are not
// thread-safe.
package bitmap

import "math/bits"

const bitsPerByte = 8

// Bitmap tracks occupancy for Len() units using storage as backing bytes.
type Bitmap struct {
	storage  []byte
	bitCount int // logical capacity; never above len(storage)*8
}

// New creates a Bitmap tracking bitCount units in storage. It fails with
// ErrInvalidParam when bitCount is negative or exceeds len(storage)*8.
// storage is used as-is; callers that need every unit free must pass zeroed bytes.
func New(storage []byte, bitCount int) (*Bitmap, error) {
	if bitCount < 0 || bitCount > len(storage)*bitsPerByte {
		return nil, ErrInvalidParam
	}
	return &Bitmap{storage: storage, bitCount: bitCount}, nil
}

// Len returns the logical capacity in bits.
func (b *Bitmap) Len() int { return b.bitCount }

// Cap returns the physical ceiling: the number of bits the storage can hold.
func (b *Bitmap) Cap() int { return len(b.storage) * bitsPerByte }

// Bytes returns the backing storage.
func (b *Bitmap) Bytes() []byte { return b.storage }

// valid reports whether bit i may be read or written. The logical bound is
// inclusive (i > bitCount is out of range), so index Len() is addressable
// whenever its byte exists.
func (b *Bitmap) valid(i int) bool {
	return i >= 0 && i <= b.bitCount && i/bitsPerByte < len(b.storage)
}

// IsFree reports whether unit i is free. Out-of-range indices report free.
func (b *Bitmap) IsFree(i int) bool {
	if !b.valid(i) {
		return true
	}
	return b.storage[i/bitsPerByte]&(1<<(i%bitsPerByte)) == 0
}

func (b *Bitmap) set(i int, occupied bool) {
	if !b.valid(i) {
		return
	}
	if occupied {
		b.storage[i/bitsPerByte] |= 1 << (i % bitsPerByte)
	} else {
		b.storage[i/bitsPerByte] &^= 1 << (i % bitsPerByte)
	}
}

// SetRange marks every bit in [start, end) occupied or free. Bits outside the
// valid range are silently skipped.
func (b *Bitmap) SetRange(start, end int, occupied bool) {
	for i := start; i < end; i++ {
		b.set(i, occupied)
	}
}

// AllocContiguous finds the first run of count free bits in [0, Len()), marks
// it occupied and returns its starting index.
func (b *Bitmap) AllocContiguous(count int) (int, error) {
	if count <= 0 {
		return 0, ErrInvalidParam
	}
	run, start := 0, 0
	for i := 0; i < b.bitCount; i++ {
		// Skip whole occupied bytes while no run is open.
		if run == 0 && i%bitsPerByte == 0 && b.storage[i/bitsPerByte] == 0xFF {
			i += bitsPerByte - 1
			continue
		}
		if !b.IsFree(i) {
			run = 0
			continue
		}
		if run == 0 {
			start = i
		}
		run++
		if run == count {
			b.SetRange(start, start+count, true)
			return start, nil
		}
	}
	return 0, ErrNoMemory
}

// AllocAligned is AllocContiguous restricted to starting indices s where
// (s+phase)%align == 0. align must be positive.
func (b *Bitmap) AllocAligned(count, align, phase int) (int, error) {
	if count <= 0 || align <= 0 || phase < 0 {
		return 0, ErrInvalidParam
	}
	if align == 1 {
		return b.AllocContiguous(count)
	}
	s := (align - phase%align) % align
	for s+count <= b.bitCount {
		busy := b.firstOccupied(s, s+count)
		if busy < 0 {
			b.SetRange(s, s+count, true)
			return s, nil
		}
		// Next candidate strictly after the occupied bit.
		s += ((busy-s)/align + 1) * align
	}
	return 0, ErrNoMemory
}

// firstOccupied returns the first occupied index in [start, end) or -1.
func (b *Bitmap) firstOccupied(start, end int) int {
	for i := start; i < end; i++ {
		if !b.IsFree(i) {
			return i
		}
	}
	return -1
}

// Release clears the count bits starting at start. Every bit must currently be
// occupied; otherwise ErrMemoryOverlap is returned and nothing changes.
// Out-of-range bits count as free.
func (b *Bitmap) Release(start, count int) error {
	if start < 0 || count <= 0 {
		return ErrInvalidParam
	}
	for i := start; i < start+count; i++ {
		if b.IsFree(i) {
			return ErrMemoryOverlap
		}
	}
	b.SetRange(start, start+count, false)
	return nil
}

// Grow raises the logical capacity to newBitCount and returns the number of
// bits added. It returns 0 without changing anything when newBitCount exceeds
// Cap() or does not exceed Len(). The new bits are not cleared.
func (b *Bitmap) Grow(newBitCount int) int {
	if newBitCount > b.Cap() || newBitCount <= b.bitCount {
		return 0
	}
	added := newBitCount - b.bitCount
	b.bitCount = newBitCount
	return added
}

// Occupied counts the occupied bits in [0, Len()).
func (b *Bitmap) Occupied() int {
	return b.OccupiedIn(0, b.bitCount)
}

// OccupiedIn returns the number of occupied bits in [start, end), clamped to
// [0, Len()).
func (b *Bitmap) OccupiedIn(start, end int) int {
	start, end = max(start, 0), min(end, b.bitCount)
	n := 0
	for ; start < end && start%bitsPerByte != 0; start++ {
		if !b.IsFree(start) {
			n++
		}
	}
	for ; start+bitsPerByte <= end; start += bitsPerByte {
		n += bits.OnesCount8(b.storage[start/bitsPerByte])
	}
	for ; start < end; start++ {
		if !b.IsFree(start) {
			n++
		}
	}
	return n
}

// ByteSpan returns the offset and length of the storage bytes holding bits
// [start, start+count).
func (b *Bitmap) ByteSpan(start, count int) (off, n int) {
	if count <= 0 {
		return start / bitsPerByte, 0
	}
	off = start / bitsPerByte
	last := (start + count - 1) / bitsPerByte
	return off, last - off + 1
}
