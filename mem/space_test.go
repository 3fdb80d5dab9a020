package mem

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase Addr = 0x4000_0000

func TestNewSpace(t *testing.T) {
	sp, err := NewSpace(testBase, 64<<10)
	require.NoError(t, err)
	defer sp.Close()

	assert.Equal(t, testBase, sp.Base())
	assert.Equal(t, testBase+64<<10, sp.End())
	assert.Equal(t, 64<<10, sp.Len())
	assert.False(t, sp.FileBacked())

	off, ok := sp.Offset(testBase + 100)
	require.True(t, ok)
	assert.Equal(t, 100, off)

	_, ok = sp.Offset(testBase - 1)
	assert.False(t, ok)
	_, ok = sp.Offset(sp.End() + 1)
	assert.False(t, ok)
}

func TestSpaceRejectsBadBase(t *testing.T) {
	_, err := NewSpace(0, 4096)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = SpaceFromBytes(Addr(^uint64(0)-10), make([]byte, 4096))
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = SpaceFromBytes(testBase, nil)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestSpaceRegion(t *testing.T) {
	sp, err := SpaceFromBytes(testBase, make([]byte, 8192))
	require.NoError(t, err)

	r, err := sp.Region(testBase+4096, 4096)
	require.NoError(t, err)
	assert.Equal(t, testBase+4096, r.Base())
	assert.Equal(t, sp.End(), r.End())
	assert.Equal(t, 4096, r.SpaceOffset())

	_, err = sp.Region(testBase+4096, 4097)
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = sp.Region(testBase-1, 10)
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = sp.Region(testBase, 0)
	require.ErrorIs(t, err, ErrInvalidRange)

	all := sp.All()
	assert.Equal(t, uint64(8192), all.Len())
}

func TestOpenSpacePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.bin")

	sp, err := OpenSpace(path, testBase, 8192)
	require.NoError(t, err)
	require.True(t, sp.FileBacked())
	sp.Bytes()[4100] = 0x5a
	require.NoError(t, sp.Sync(4100, 1))
	require.NoError(t, sp.Close())

	sp, err = OpenSpace(path, testBase, 0)
	require.NoError(t, err)
	defer sp.Close()
	assert.Equal(t, 8192, sp.Len())
	assert.Equal(t, byte(0x5a), sp.Bytes()[4100])
}

func TestSpaceCloseTwice(t *testing.T) {
	sp, err := OpenSpace(filepath.Join(t.TempDir(), "space.bin"), testBase, 4096)
	require.NoError(t, err)
	require.NoError(t, sp.Close())
	require.ErrorIs(t, sp.Close(), ErrClosed)
}

func TestSpaceFromBytesSyncBounds(t *testing.T) {
	sp, err := SpaceFromBytes(testBase, make([]byte, 100))
	require.NoError(t, err)
	require.NoError(t, sp.Sync(0, 100))
	require.ErrorIs(t, sp.Sync(50, 51), ErrOutOfBounds)
}
