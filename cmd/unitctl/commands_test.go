package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/unitalloc/mem"
	"github.com/joshuapare/unitalloc/mem/alloc"
)

const testRegionSize = 1 << 20 // 32000 units

func Test_Create(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")

	out, err := captureOutput(t, func() error {
		return runCreate(t.Context(), path, testRegionSize, false)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+path)
	assert.Contains(t, out, "Base: 0x10000000")
	assert.Contains(t, out, "Data Base: 0x10006000")
	assert.Contains(t, out, "Units: 32,000 x 32 bytes")
	assert.Contains(t, out, "Free Units: 32,000")

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(testRegionSize), fi.Size())
}

func Test_Create_Rejects(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")

	tests := []struct {
		name    string
		size    uint64
		wantErr string
	}{
		{name: "reserve only", size: alloc.BitmapReserve, wantErr: "must exceed"},
		{name: "too many units", size: alloc.BitmapReserve + (alloc.MaxUnits+1)*32, wantErr: "cannot be tracked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := captureOutput(t, func() error {
				return runCreate(t.Context(), path, tt.size, false)
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func Test_Create_Exists(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")
	mustCreate(t, path, testRegionSize)

	_, err := captureOutput(t, func() error {
		return runCreate(t.Context(), path, testRegionSize, false)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = captureOutput(t, func() error {
		return runCreate(t.Context(), path, 2*testRegionSize, true)
	})
	require.NoError(t, err)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2*testRegionSize), fi.Size())
}

func Test_AllocFreePersist(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")
	mustCreate(t, path, testRegionSize)

	out, err := captureOutput(t, func() error {
		return runAlloc(t.Context(), path, 100, 1, 2, "")
	})
	require.NoError(t, err)
	assert.Equal(t, "0x10006000\n0x10006080\n", out)

	// A second process sees the first allocations as occupied.
	out, err = captureOutput(t, func() error {
		return runAlloc(t.Context(), path, 32, 0, 1, "")
	})
	require.NoError(t, err)
	assert.Equal(t, "0x10006100\n", out)

	out, err = captureOutput(t, func() error { return runStats(path) })
	require.NoError(t, err)
	assert.Contains(t, out, "Free Units: 31,991")

	out, err = captureOutput(t, func() error {
		return runFree(t.Context(), path, []string{"0x10006000", "268460160"}, 100, 1)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Freed 2 of 2 allocations")

	out, err = captureOutput(t, func() error { return runStats(path) })
	require.NoError(t, err)
	assert.Contains(t, out, "Free Units: 31,999")
}

func Test_Free_Errors(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")
	mustCreate(t, path, testRegionSize)

	tests := []struct {
		name    string
		addrs   []string
		wantErr error
		wantMsg string
	}{
		{name: "not allocated", addrs: []string{"0x10006000"}, wantErr: alloc.ErrMemoryOverlap},
		{name: "outside region", addrs: []string{"0x100"}, wantErr: alloc.ErrInvalidParam},
		{name: "bad address", addrs: []string{"heap"}, wantMsg: "invalid address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := captureOutput(t, func() error {
				return runFree(t.Context(), path, tt.addrs, 32, 1)
			})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func Test_Alloc_JSONAndExhaustion(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "small.bin")
	mustCreate(t, path, alloc.BitmapReserve+4*32)

	jsonOut = true
	out, err := captureOutput(t, func() error {
		return runAlloc(t.Context(), path, 64, 1, 3, "")
	})
	require.ErrorIs(t, err, alloc.ErrNoMemory)

	var results []allocResult
	decodeJSON(t, out, &results)
	require.Len(t, results, 2)
	assert.Equal(t, "0x10006000", results[0].Addr)
	assert.Equal(t, "0x10006040", results[1].Addr)

	out, err = captureOutput(t, func() error { return runStats(path) })
	require.NoError(t, err)
	var st alloc.Stats
	decodeJSON(t, out, &st)
	assert.Zero(t, st.FreeUnits)
	assert.Equal(t, uint64(128), st.UsedBytes)
}

func Test_Alloc_Data(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")
	mustCreate(t, path, testRegionSize)

	_, err := captureOutput(t, func() error {
		return runAlloc(t.Context(), path, 16, 1, 1, "hello")
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw[alloc.BitmapReserve:alloc.BitmapReserve+5]))
	assert.Equal(t, byte(0x01), raw[0])

	_, err = captureOutput(t, func() error {
		return runAlloc(t.Context(), path, 2, 1, 1, "hello")
	})
	require.Error(t, err)
}

func Test_Extend(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")
	mustCreate(t, path, testRegionSize)

	_, err := captureOutput(t, func() error {
		return runAlloc(t.Context(), path, 64, 1, 1, "")
	})
	require.NoError(t, err)

	out, err := captureOutput(t, func() error {
		return runExtend(t.Context(), path, 1<<16)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Units: 34,048 x 32 bytes")
	assert.Contains(t, out, "Free Units: 34,046")

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(testRegionSize+1<<16), fi.Size())
}

func Test_Extend_RejectedKeepsFile(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")
	mustCreate(t, path, testRegionSize)

	_, err := captureOutput(t, func() error {
		return runExtend(t.Context(), path, 16)
	})
	require.ErrorIs(t, err, alloc.ErrInvalidParam)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(testRegionSize), fi.Size())

	out, err := captureOutput(t, func() error { return runStats(path) })
	require.NoError(t, err)
	assert.Contains(t, out, "Units: 32,000 x 32 bytes")
}

func Test_SnapshotRestore(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")
	mustCreate(t, path, testRegionSize)

	_, err := captureOutput(t, func() error {
		return runAlloc(t.Context(), path, 40, 1, 3, "payload")
	})
	require.NoError(t, err)

	snap := regionPath(t, "heap.cbor")
	out, err := captureOutput(t, func() error { return runSnapshot(path, snap, true) })
	require.NoError(t, err)
	assert.Contains(t, out, "32,000 units, 31,994 free")

	out, err = captureOutput(t, func() error { return runInspect(snap) })
	require.NoError(t, err)
	assert.Contains(t, out, "Base: 0x10000000")
	assert.Contains(t, out, "Bitmap: 4,000 bytes")
	assert.Contains(t, out, "Data: 1,024,000 bytes")

	restored := regionPath(t, "copy.bin")
	out, err = captureOutput(t, func() error { return runRestore(snap, restored, false) })
	require.NoError(t, err)
	assert.Contains(t, out, "Free Units: 31,994")

	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	cp, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, orig, cp)

	_, err = captureOutput(t, func() error { return runRestore(snap, restored, false) })
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "already exists"))
}

func Test_WithRegionFile_ReportsUnmapError(t *testing.T) {
	resetGlobals(t)
	path := regionPath(t, "heap.bin")
	mustCreate(t, path, testRegionSize)

	err := withRegionFile(path, func(rf *regionFile) error {
		return rf.close()
	})
	require.ErrorIs(t, err, mem.ErrClosed)
	assert.Contains(t, err.Error(), "failed to unmap")

	require.NoError(t, withRegionFile(path, func(rf *regionFile) error { return nil }))
}

func Test_Stats_MissingFile(t *testing.T) {
	resetGlobals(t)
	_, err := captureOutput(t, func() error {
		return runStats(regionPath(t, "missing.bin"))
	})
	require.Error(t, err)
}
