package bitmap

import "fmt"

// bitmapImpl is a concrete implementation of the Bitmap interface.
type bitmapImpl struct {
	data    []byte // Backing storage: each byte stores 8 bits
	numBits uint32 // Total number of bits in the bitmap
}

// NewBitmap creates a new bitmap with the specified number of bits.
// All bits are initialized to 0.
func NewBitmap(numBits uint32) Bitmap {
	// Calculate number of bytes needed: ceil(numBits / 8)
	numBytes := (numBits + 7) / 8
	return &bitmapImpl{
		data:    make([]byte, numBytes),
		numBits: numBits,
	}
}

// Add sets the bit at position i to 1 (adds i to the set).
func (b *bitmapImpl) Add(i uint32) {
	if i >= b.numBits {
		panic(fmt.Sprintf("bitmap: index %d out of range [0, %d)", i, b.numBits))
	}
	b.data[i/8] |= 1 << (i % 8)
}

// Remove sets the bit at position i to 0 (removes i from the set).
func (b *bitmapImpl) Remove(i uint32) {
	if i >= b.numBits {
		panic(fmt.Sprintf("bitmap: index %d out of range [0, %d)", i, b.numBits))
	}
	b.data[i/8] &^= 1 << (i % 8)
}

// Contains returns true if bit at position i is set (i is in the set).
func (b *bitmapImpl) Contains(i uint32) bool {
	if i >= b.numBits {
		panic(fmt.Sprintf("bitmap: index %d out of range [0, %d)", i, b.numBits))
	}
	return b.data[i/8]&(1<<(i%8)) != 0
}

// Clone returns an independent copy of the set. Mutating the clone does not
// affect the original, which is what lets a frozen hash-index extent keep its
// occupancy map stable while the live copy diverges.
func (b *bitmapImpl) Clone() Bitmap {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return &bitmapImpl{
		data:    data,
		numBits: b.numBits,
	}
}

// Reset clears every bit without reallocating the backing array.
func (b *bitmapImpl) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
}
