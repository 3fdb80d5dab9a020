package buf

import "math/bits"

// AddU64 adds a and b, returning ok = false when the sum wraps.
func AddU64(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// MulU64 multiplies a and b, returning ok = false when the product does not fit in 64 bits.
func MulU64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// AlignUp rounds v up to the next multiple of align. align must be a power of two.
//
// Example:
//
//	AlignUp(1, 32)  = 32
//	AlignUp(32, 32) = 32
//	AlignUp(33, 32) = 64
func AlignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// DivRoundUp returns ceil(v / d). d must be non-zero.
func DivRoundUp(v, d uint64) uint64 {
	q := v / d
	if v%d != 0 {
		q++
	}
	return q
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	if n > len(b)-off {
		return nil, false
	}
	return b[off : off+n], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
