package alloc

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/unitalloc/mem"
)

const testBase mem.Addr = 0x4000_0000

// newSpace returns a heap-backed Space of size bytes at testBase.
func newSpace(t testing.TB, size int) *mem.Space {
	t.Helper()
	sp, err := mem.SpaceFromBytes(testBase, make([]byte, size))
	require.NoError(t, err)
	return sp
}

// newActive returns an allocator initialized over the first size bytes of a
// Space of capacity bytes.
func newActive(t testing.TB, size, capacity int) (*UnitAllocator, *mem.Space) {
	t.Helper()
	sp := newSpace(t, capacity)
	r, err := sp.Region(sp.Base(), uint64(size))
	require.NoError(t, err)
	a := New(nil)
	a.Init(r)
	require.True(t, a.Active())
	return a, sp
}

// bufferLogger returns a logger writing text records to the returned buffer.
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var out bytes.Buffer
	return slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})), &out
}

type recordingTracker struct {
	adds [][2]int
}

func (r *recordingTracker) Add(off, length int) {
	r.adds = append(r.adds, [2]int{off, length})
}
