package alloc

import (
	"sync"

	"github.com/joshuapare/unitalloc/mem"
)

// Locked serializes every call to the wrapped Allocator with a mutex, for
// callers that share one allocator between goroutines. TryDealloc and Stats
// are serialized too; they use the wrapped allocator's own methods when it has
// them (UnitAllocator does).
type Locked struct {
	mu    sync.Mutex
	inner Allocator
}

// NewLocked wraps inner. inner must not be used directly afterwards.
func NewLocked(inner Allocator) *Locked {
	return &Locked{inner: inner}
}

func (l *Locked) Init(r mem.Region) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Init(r)
}

func (l *Locked) Extend(r mem.Region) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Extend(r)
}

func (l *Locked) Alloc(size, align uint64) (mem.Addr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Alloc(size, align)
}

func (l *Locked) Dealloc(addr mem.Addr, size, align uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Dealloc(addr, size, align)
}

func (l *Locked) TotalBytes() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.TotalBytes()
}

func (l *Locked) UsedBytes() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.UsedBytes()
}

func (l *Locked) AvailableBytes() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.AvailableBytes()
}

// TryDealloc reports deallocation failures when the wrapped allocator can.
// Otherwise it calls Dealloc and returns nil.
func (l *Locked) TryDealloc(addr mem.Addr, size, align uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.inner.(strictDeallocator); ok {
		return s.TryDealloc(addr, size, align)
	}
	l.inner.Dealloc(addr, size, align)
	return nil
}

// Stats returns the wrapped allocator's counters. For allocators without a
// Stats method only the byte totals are filled in.
func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.inner.(statser); ok {
		return s.Stats()
	}
	total, used, avail := l.inner.TotalBytes(), l.inner.UsedBytes(), l.inner.AvailableBytes()
	return Stats{
		Active:         avail > 0,
		UnitSize:       UnitSize,
		TotalBytes:     total,
		UsedBytes:      used,
		AvailableBytes: avail,
		FreeBytes:      avail - used,
	}
}

type strictDeallocator interface {
	TryDealloc(addr mem.Addr, size, align uint64) error
}

type statser interface {
	Stats() Stats
}

// Compile-time interface check
var (
	_ Allocator         = (*Locked)(nil)
	_ strictDeallocator = (*UnitAllocator)(nil)
	_ statser           = (*UnitAllocator)(nil)
)
