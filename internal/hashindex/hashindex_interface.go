package hashindex

import "errors"

// ErrOutOfMemory reports that the extent pool cannot supply another extent.
// The attempted operation is aborted with the index left unchanged; the
// process itself is fine.
var ErrOutOfMemory = errors.New("hashindex: extent pool exhausted")

// Record is a single sequence state entry. The index stores at most one
// record per id.
type Record struct {
	ID    uint32
	Value int64
}

// Index maps a 32-bit id to its Record using open addressing over
// pool-allocated fixed-size extents. Lookup is deterministic and independent
// of insertion order.
//
// The index is not internally locked. Sessions are expected to be scheduled
// cooperatively; under preemptive threads the owner must serialize access.
type Index interface {
	// Len returns the number of live records.
	Len() int

	// Get returns the record stored under id, if any.
	Get(id uint32) (Record, bool)

	// Insert adds a record for an id that must not be present yet.
	// Inserting a duplicate id is a caller bug and panics.
	// Returns ErrOutOfMemory if the index cannot grow.
	Insert(rec Record) error

	// Replace installs rec, overwriting any record with the same id.
	// The previous record is returned with replaced=true. Replacing an
	// existing record never fails; only the insert path can return
	// ErrOutOfMemory.
	Replace(rec Record) (old Record, replaced bool, err error)

	// Delete removes the record stored under id. Reports whether a record
	// was present.
	Delete(id uint32) bool

	// Freeze returns an iterator over a consistent view of the current
	// contents. Extents touched by later mutations are copied first, so the
	// frozen view never observes a torn record. The iterator is lazy,
	// finite and non-restartable; Close is mandatory to return the frozen
	// extents to the pool.
	Freeze() Iterator

	// Close releases the index and its pool. The index is unusable after.
	Close()
}

// Iterator walks the records of a frozen view in unspecified order.
type Iterator interface {
	// Next returns the next record, or ok=false once exhausted.
	Next() (rec Record, ok bool)

	// Close releases the frozen view.
	Close()
}
