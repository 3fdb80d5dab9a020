package mem

import "errors"

var (
	// ErrInvalidRange indicates a zero base address, an empty range, or a range whose end overflows.
	ErrInvalidRange = errors.New("mem: invalid address range")

	// ErrOutOfBounds indicates an address range that is not contained in the Space or Region.
	ErrOutOfBounds = errors.New("mem: address range out of bounds")

	// ErrNotAdjacent indicates two regions that do not share a Space or do not touch.
	ErrNotAdjacent = errors.New("mem: regions are not adjacent")

	// ErrClosed is returned by Close on a Space that is already closed.
	ErrClosed = errors.New("mem: space already closed")
)
