// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/binary"
	"math/bits"
)

// BitSet words and capacities. The same 4-word layout backs both uses:
// achievements use the full 256 slots, lesson progress is capped to 128.
const (
	bitSetWords = 4

	// BitSetCapacity is the full slot count of a BitSet256.
	BitSetCapacity = 256

	// LessonBitSetCapacity is the declared capacity of a lesson progress set.
	LessonBitSetCapacity = 128
)

// BitSet256 is a fixed-capacity bit-indexed membership set. Index i maps to
// word i/64, bit i%64. Out-of-capacity indices are a silent no-op returning
// false; callers validate range separately before reporting real errors.
type BitSet256 struct {
	words    [bitSetWords]uint64
	capacity uint16
}

// NewBitSet256 creates an empty set with the full 256-slot capacity.
func NewBitSet256() BitSet256 {
	return BitSet256{capacity: BitSetCapacity}
}

// NewLessonBitSet creates an empty set with the 128-slot lesson capacity.
func NewLessonBitSet() BitSet256 {
	return BitSet256{capacity: LessonBitSetCapacity}
}

// BitSetFromWords restores a set from its persisted word representation.
func BitSetFromWords(words [bitSetWords]uint64, capacity uint16) BitSet256 {
	if capacity == 0 || capacity > BitSetCapacity {
		capacity = BitSetCapacity
	}
	return BitSet256{words: words, capacity: capacity}
}

// Capacity returns the declared slot count.
func (b *BitSet256) Capacity() uint16 {
	return b.capacity
}

// Test reports whether index i is set. Out-of-capacity indices return false.
func (b *BitSet256) Test(i uint16) bool {
	if i >= b.capacity {
		return false
	}
	return b.words[i/64]&(1<<(i%64)) != 0
}

// Set marks index i and reports whether it was newly set. Returns false if
// the bit was already set or i is beyond the declared capacity. Idempotent:
// repeated calls converge on the same membership.
func (b *BitSet256) Set(i uint16) bool {
	if i >= b.capacity {
		return false
	}
	mask := uint64(1) << (i % 64)
	if b.words[i/64]&mask != 0 {
		return false
	}
	b.words[i/64] |= mask
	return true
}

// Count returns the number of set bits.
func (b *BitSet256) Count() uint16 {
	var n int
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return uint16(n)
}

// IsSubsetOfRange reports whether every index in [0, n) is set. Vacuously
// true for n == 0. Used for "all of first n lessons completed" checks.
func (b *BitSet256) IsSubsetOfRange(n uint16) bool {
	if n > b.capacity {
		return false
	}
	for i := uint16(0); i < n; i++ {
		if !b.Test(i) {
			return false
		}
	}
	return true
}

// Words returns the raw word representation for persistence.
func (b *BitSet256) Words() [bitSetWords]uint64 {
	return b.words
}

// Bytes returns a little-endian 32-byte encoding for storage as bytea.
func (b *BitSet256) Bytes() []byte {
	out := make([]byte, bitSetWords*8)
	for i, w := range b.words {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out
}

// BitSetFromBytes restores a set from its 32-byte little-endian encoding.
// Short or nil input yields an empty set.
func BitSetFromBytes(raw []byte, capacity uint16) BitSet256 {
	var words [bitSetWords]uint64
	for i := 0; i < bitSetWords && (i+1)*8 <= len(raw); i++ {
		words[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	return BitSetFromWords(words, capacity)
}
