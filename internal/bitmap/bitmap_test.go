package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBitmap(t *testing.T) {
	tests := []struct {
		numBits      uint32
		expectedSize int
	}{
		{0, 0},
		{1, 1},
		{8, 1},
		{9, 2},
		{32, 4},
		{33, 5},
		{64, 8},
	}

	for _, tt := range tests {
		b := NewBitmap(tt.numBits).(*bitmapImpl)
		require.Equal(t, tt.expectedSize, len(b.data), "NewBitmap(%d) data size", tt.numBits)
		require.Equal(t, tt.numBits, b.numBits, "NewBitmap(%d) numBits", tt.numBits)

		// Verify all bits are 0
		for i := uint32(0); i < tt.numBits; i++ {
			require.False(t, b.Contains(i), "NewBitmap(%d): bit %d should be 0", tt.numBits, i)
		}
	}
}

func TestAddRemoveContains(t *testing.T) {
	b := NewBitmap(64)

	positions := map[uint32]struct{}{
		0: {}, 1: {}, 7: {}, 8: {}, 15: {}, 16: {}, 31: {}, 32: {}, 63: {},
	}
	for pos := range positions {
		b.Add(pos)
	}

	for i := uint32(0); i < 64; i++ {
		_, shouldBeSet := positions[i]
		require.Equal(t, shouldBeSet, b.Contains(i), "bit %d set status", i)
	}

	b.Remove(7)
	b.Remove(32)
	require.False(t, b.Contains(7))
	require.False(t, b.Contains(32))
	require.True(t, b.Contains(8))
}

func TestOutOfRangePanics(t *testing.T) {
	b := NewBitmap(8)
	require.Panics(t, func() { b.Add(8) })
	require.Panics(t, func() { b.Remove(100) })
	require.Panics(t, func() { b.Contains(8) })
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBitmap(32)
	b.Add(3)
	b.Add(17)

	c := b.Clone()
	require.True(t, c.Contains(3))
	require.True(t, c.Contains(17))

	// Diverge the copies in both directions.
	c.Add(5)
	b.Remove(3)

	require.False(t, b.Contains(5))
	require.True(t, c.Contains(3))
	require.True(t, c.Contains(5))
}

func TestReset(t *testing.T) {
	b := NewBitmap(16)
	for i := uint32(0); i < 16; i++ {
		b.Add(i)
	}
	b.Reset()
	for i := uint32(0); i < 16; i++ {
		require.False(t, b.Contains(i), "bit %d should be cleared", i)
	}
}
