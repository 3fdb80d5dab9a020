package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpace(t *testing.T, size int) *Space {
	t.Helper()
	sp, err := SpaceFromBytes(testBase, make([]byte, size))
	require.NoError(t, err)
	return sp
}

func TestRegionContains(t *testing.T) {
	sp := newTestSpace(t, 4096)
	r, err := sp.Region(testBase+1024, 1024)
	require.NoError(t, err)

	assert.True(t, r.Contains(testBase+1024, 1024))
	assert.True(t, r.Contains(testBase+2047, 1))
	assert.False(t, r.Contains(testBase+2047, 2))
	assert.False(t, r.Contains(testBase+1023, 1))
	assert.False(t, r.Contains(testBase+1024, ^uint64(0)))
	assert.False(t, Region{}.Contains(testBase, 0))
}

func TestRegionAdjacentAndJoin(t *testing.T) {
	sp := newTestSpace(t, 4096)
	a, err := sp.Region(testBase, 1000)
	require.NoError(t, err)
	b, err := sp.Region(testBase+1000, 500)
	require.NoError(t, err)
	gap, err := sp.Region(testBase+1600, 100)
	require.NoError(t, err)

	require.True(t, a.Adjacent(b))
	require.False(t, b.Adjacent(a))
	require.False(t, a.Adjacent(gap))

	j, err := a.Join(b)
	require.NoError(t, err)
	assert.Equal(t, testBase, j.Base())
	assert.Equal(t, uint64(1500), j.Len())

	_, err = a.Join(gap)
	require.ErrorIs(t, err, ErrNotAdjacent)

	// Same numeric addresses in a different Space are not adjacent.
	other := newTestSpace(t, 4096)
	ob, err := other.Region(testBase+1000, 500)
	require.NoError(t, err)
	require.False(t, a.Adjacent(ob))
}

func TestRegionSubAndSlice(t *testing.T) {
	sp := newTestSpace(t, 4096)
	r, err := sp.Region(testBase+100, 200)
	require.NoError(t, err)

	s, err := r.Sub(50, 50)
	require.NoError(t, err)
	assert.Equal(t, testBase+150, s.Base())
	assert.Equal(t, 150, s.SpaceOffset())

	_, err = r.Sub(150, 51)
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = r.Sub(0, 0)
	require.ErrorIs(t, err, ErrInvalidRange)

	b, err := r.Slice(testBase+110, 4)
	require.NoError(t, err)
	copy(b, []byte{1, 2, 3, 4})
	assert.Equal(t, []byte{1, 2, 3, 4}, sp.Bytes()[110:114])
	assert.Equal(t, byte(1), r.Bytes()[10])

	_, err = r.Slice(testBase+299, 2)
	require.ErrorIs(t, err, ErrOutOfBounds)

	off, err := r.Offset(testBase + 120)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), off)
	_, err = r.Offset(testBase)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestAddrString(t *testing.T) {
	assert.Equal(t, "0x40000000", testBase.String())
}
