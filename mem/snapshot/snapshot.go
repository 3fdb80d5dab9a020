// Package snapshot checkpoints a UnitAllocator to a compact CBOR document and
// restores it into another Space.
package snapshot

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/joshuapare/unitalloc/mem"
	"github.com/joshuapare/unitalloc/mem/alloc"
	"github.com/joshuapare/unitalloc/mem/bitmap"
)

// Version is the current document version.
const Version = 1

var (
	// ErrInactive indicates a capture of an allocator that was never initialized.
	ErrInactive = errors.New("snapshot: allocator is not active")

	// ErrVersion indicates a document written by an unknown version.
	ErrVersion = errors.New("snapshot: unsupported version")

	// ErrCorrupt indicates a document whose counters disagree with its bitmap.
	ErrCorrupt = errors.New("snapshot: inconsistent state")
)

// State is the serialized allocator state. Data is optional.
type State struct {
	Version   uint8  `cbor:"1,keyasint"`
	Base      uint64 `cbor:"2,keyasint"`
	Total     uint64 `cbor:"3,keyasint"`
	UnitSize  uint64 `cbor:"4,keyasint"`
	Units     uint64 `cbor:"5,keyasint"`
	FreeUnits uint64 `cbor:"6,keyasint"`
	Bitmap    []byte `cbor:"7,keyasint"`
	Data      []byte `cbor:"8,keyasint,omitempty"`
}

// Capture records a's counters and bitmap. withData also copies the data area.
func Capture(a *alloc.UnitAllocator, withData bool) (*State, error) {
	if !a.Active() {
		return nil, ErrInactive
	}
	st := a.Stats()
	out := &State{
		Version:   Version,
		Base:      st.Base,
		Total:     st.TotalBytes,
		UnitSize:  st.UnitSize,
		Units:     st.Units,
		FreeUnits: st.FreeUnits,
		Bitmap:    a.BitmapBytes(),
	}
	if withData {
		out.Data = append([]byte(nil), a.Region().Bytes()[alloc.BitmapReserve:]...)
	}
	return out, nil
}

// Encode writes st as CBOR.
func Encode(w io.Writer, st *State) error {
	if err := cbor.NewEncoder(w).Encode(st); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	return nil
}

// Decode reads a CBOR document written by Encode.
func Decode(r io.Reader) (*State, error) {
	var st State
	if err := cbor.NewDecoder(r).Decode(&st); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if st.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, st.Version)
	}
	return &st, nil
}

// Restore rebuilds the allocator described by st inside sp. The region
// [st.Base, st.Base+st.Total) must lie in sp; its bitmap prefix (and data area,
// when st carries one) is overwritten. st is validated first: a rejected
// document leaves sp untouched.
func Restore(st *State, sp *mem.Space, opts *alloc.Options) (*alloc.UnitAllocator, error) {
	if err := validate(st); err != nil {
		return nil, err
	}
	r, err := sp.Region(mem.Addr(st.Base), st.Total)
	if err != nil {
		return nil, fmt.Errorf("snapshot: restore: %w", err)
	}

	raw := r.Bytes()
	clear(raw[:alloc.BitmapReserve])
	copy(raw, st.Bitmap)
	if st.Data != nil {
		copy(raw[alloc.BitmapReserve:], st.Data)
	}

	a := alloc.New(opts)
	if err := a.Attach(r); err != nil {
		return nil, fmt.Errorf("snapshot: restore: %w", err)
	}
	got := a.Stats()
	if got.UnitSize != st.UnitSize || got.Units != st.Units || got.FreeUnits != st.FreeUnits {
		return nil, fmt.Errorf("%w: units %d/%d free %d/%d unit size %d/%d", ErrCorrupt,
			got.Units, st.Units, got.FreeUnits, st.FreeUnits, got.UnitSize, st.UnitSize)
	}
	return a, nil
}

// validate checks that the counters of st agree with its size and bitmap.
func validate(st *State) error {
	if st.Total <= alloc.BitmapReserve || len(st.Bitmap) > alloc.BitmapReserve {
		return fmt.Errorf("%w: total %d, bitmap %d bytes", ErrCorrupt, st.Total, len(st.Bitmap))
	}
	if st.UnitSize != alloc.UnitSize {
		return fmt.Errorf("%w: unit size %d, want %d", ErrCorrupt, st.UnitSize, alloc.UnitSize)
	}
	dataLen := st.Total - alloc.BitmapReserve
	if units := dataLen / alloc.UnitSize; st.Units != units {
		return fmt.Errorf("%w: %d units recorded, total implies %d", ErrCorrupt, st.Units, units)
	}
	if st.Data != nil && uint64(len(st.Data)) != dataLen {
		return fmt.Errorf("%w: data area is %d bytes, want %d", ErrCorrupt, len(st.Data), dataLen)
	}
	bm, err := bitmap.New(st.Bitmap, int(st.Units))
	if err != nil {
		return fmt.Errorf("%w: bitmap of %d bytes cannot hold %d units", ErrCorrupt, len(st.Bitmap), st.Units)
	}
	if free := st.Units - uint64(bm.Occupied()); free != st.FreeUnits {
		return fmt.Errorf("%w: %d free units recorded, bitmap has %d", ErrCorrupt, st.FreeUnits, free)
	}
	return nil
}
