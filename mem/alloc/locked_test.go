package alloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/unitalloc/mem"
)

func Test_Locked_ConcurrentAllocFree(t *testing.T) {
	sp := newSpace(t, 1<<20)
	l := NewLocked(New(nil))
	l.Init(sp.All())
	total := l.AvailableBytes()
	require.NotZero(t, total)

	const workers = 8
	const rounds = 200

	var mu sync.Mutex
	seen := make(map[mem.Addr]bool)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				addr, err := l.Alloc(64, 8)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[addr], "address %s handed out twice", addr)
				seen[addr] = true
				mu.Unlock()

				mu.Lock()
				delete(seen, addr)
				mu.Unlock()
				l.Dealloc(addr, 64, 8)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, l.UsedBytes())
	assert.Equal(t, total, l.AvailableBytes())
	assert.Equal(t, uint64(1<<20), l.TotalBytes())
}

func Test_Locked_Extend(t *testing.T) {
	sp := newSpace(t, 200000)
	r, err := sp.Region(testBase, 100000)
	require.NoError(t, err)
	next, err := sp.Region(testBase+100000, 100000)
	require.NoError(t, err)

	l := NewLocked(New(nil))
	l.Init(r)
	require.NoError(t, l.Extend(next))
	assert.Equal(t, uint64(200000), l.TotalBytes())
}

// plainAllocator hides everything but the Allocator methods of a UnitAllocator.
type plainAllocator struct{ Allocator }

func Test_Locked_TryDeallocAndStats(t *testing.T) {
	sp := newSpace(t, 200000)
	l := NewLocked(New(nil))
	l.Init(sp.All())

	addr, err := l.Alloc(100, 1)
	require.NoError(t, err)
	st := l.Stats()
	assert.Equal(t, uint64(5482), st.Units)
	assert.Equal(t, uint64(5478), st.FreeUnits)

	require.NoError(t, l.TryDealloc(addr, 100, 1))
	require.ErrorIs(t, l.TryDealloc(addr, 100, 1), ErrMemoryOverlap)
	assert.Equal(t, uint64(5482), l.Stats().FreeUnits)
}

func Test_Locked_StatsFallback(t *testing.T) {
	sp := newSpace(t, 200000)
	l := NewLocked(plainAllocator{New(nil)})
	l.Init(sp.All())

	addr, err := l.Alloc(64, 1)
	require.NoError(t, err)
	st := l.Stats()
	assert.True(t, st.Active)
	assert.Equal(t, uint64(200000), st.TotalBytes)
	assert.Equal(t, uint64(64), st.UsedBytes)
	assert.Equal(t, uint64(5482*32-64), st.FreeBytes)

	// Without TryDealloc the failure is absorbed by Dealloc.
	require.NoError(t, l.TryDealloc(addr, 64, 1))
	require.NoError(t, l.TryDealloc(addr, 64, 1))
	assert.Zero(t, l.UsedBytes())
}
