package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitSet256_SetIdempotent(t *testing.T) {
	b := NewBitSet256()

	assert.True(t, b.Set(42), "first set should report newly set")
	assert.False(t, b.Set(42), "second set should report already set")
	assert.True(t, b.Test(42))
	assert.Equal(t, uint16(1), b.Count())
}

func TestBitSet256_OutOfCapacity(t *testing.T) {
	b := NewBitSet256()

	assert.False(t, b.Set(256))
	assert.False(t, b.Test(256))
	assert.Equal(t, uint16(0), b.Count())
}

func TestLessonBitSet_CappedAt128(t *testing.T) {
	b := NewLessonBitSet()

	assert.True(t, b.Set(127))
	assert.False(t, b.Set(128), "lesson set must reject indices >= 128")
	assert.False(t, b.Test(128))
}

func TestBitSet256_WordBoundaries(t *testing.T) {
	b := NewBitSet256()

	for _, i := range []uint16{0, 63, 64, 127, 128, 191, 192, 255} {
		assert.True(t, b.Set(i), "index %d", i)
		assert.True(t, b.Test(i), "index %d", i)
	}
	assert.Equal(t, uint16(8), b.Count())
}

func TestBitSet256_IsSubsetOfRange(t *testing.T) {
	b := NewLessonBitSet()

	// Vacuously true for n == 0.
	assert.True(t, b.IsSubsetOfRange(0))

	for i := uint16(0); i < 10; i++ {
		b.Set(i)
	}
	assert.True(t, b.IsSubsetOfRange(10))
	assert.False(t, b.IsSubsetOfRange(11))

	full := NewLessonBitSet()
	for i := uint16(0); i < 128; i++ {
		full.Set(i)
	}
	assert.True(t, full.IsSubsetOfRange(128))
}

func TestBitSet256_IsSubsetOfRange_Gap(t *testing.T) {
	b := NewLessonBitSet()
	b.Set(0)
	b.Set(2)

	assert.False(t, b.IsSubsetOfRange(3), "missing index 1 must fail the range check")
}

func TestBitSet256_BytesRoundTrip(t *testing.T) {
	b := NewBitSet256()
	b.Set(0)
	b.Set(70)
	b.Set(255)

	raw := b.Bytes()
	require.Len(t, raw, 32)

	restored := BitSetFromBytes(raw, BitSetCapacity)
	assert.True(t, restored.Test(0))
	assert.True(t, restored.Test(70))
	assert.True(t, restored.Test(255))
	assert.Equal(t, b.Count(), restored.Count())
}

func TestBitSetFromBytes_Empty(t *testing.T) {
	b := BitSetFromBytes(nil, LessonBitSetCapacity)
	assert.Equal(t, uint16(0), b.Count())
	assert.Equal(t, uint16(LessonBitSetCapacity), b.Capacity())
}

func TestCheckedArithmetic(t *testing.T) {
	sum, err := CheckedAddU32(10, 20)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), sum)

	_, err = CheckedAddU32(^uint32(0), 1)
	assert.ErrorIs(t, err, ErrOverflow)

	n, err := CheckedIncU16(65534)
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), n)

	_, err = CheckedIncU16(65535)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMinU32(t *testing.T) {
	assert.Equal(t, uint32(500), MinU32(1000, 500))
	assert.Equal(t, uint32(500), MinU32(500, 1000))
}
