package bitmap

// Bitmap is a set of small integers backed by a space-efficient bit array.
type Bitmap interface {
	// Add sets the bit at position i to 1 (adds i to the set).
	Add(i uint32)

	// Remove sets the bit at position i to 0 (removes i from the set).
	Remove(i uint32)

	// Contains returns true if bit at position i is set (i is in the set).
	Contains(i uint32) bool

	// Clone returns an independent copy of the set.
	Clone() Bitmap

	// Reset clears every bit.
	Reset()
}
