package sequence

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"kyanite/internal/hashindex"
)

// RecordBufSize bounds the encoding of one snapshot record: a two-element
// array header plus two maximum-width integers. Computed once; Next never
// produces a larger record.
const RecordBufSize = 1 + 2*9

// Snapshot is a lazy, finite, non-restartable stream of serialized
// sequence states, reflecting the store's contents at the moment Snapshot()
// was called. Later mutations to the store do not disturb it.
//
// Close is mandatory: it releases the frozen extents back to the index pool.
type Snapshot struct {
	it  hashindex.Iterator
	buf bytes.Buffer
	enc *msgpack.Encoder
}

// Snapshot freezes the store's current contents and returns an iterator
// over them for the checkpoint writer to drain.
func (s *Store) Snapshot() *Snapshot {
	snap := &Snapshot{it: s.index.Freeze()}
	snap.buf.Grow(RecordBufSize)
	snap.enc = msgpack.NewEncoder(&snap.buf)
	return snap
}

// Next returns the next record as a msgpack array [id, value] — the id as
// an unsigned integer, the value in signed encoding only when negative —
// or nil once the snapshot is drained.
//
// The returned bytes are reused by the following Next call; callers that
// retain a record must copy it out first.
func (s *Snapshot) Next() ([]byte, error) {
	if s.it == nil {
		return nil, nil
	}
	rec, ok := s.it.Next()
	if !ok {
		return nil, nil
	}
	s.buf.Reset()
	if err := s.enc.EncodeArrayLen(2); err != nil {
		return nil, err
	}
	if err := s.enc.EncodeUint(uint64(rec.ID)); err != nil {
		return nil, err
	}
	if rec.Value >= 0 {
		if err := s.enc.EncodeUint(uint64(rec.Value)); err != nil {
			return nil, err
		}
	} else {
		if err := s.enc.EncodeInt(rec.Value); err != nil {
			return nil, err
		}
	}
	return s.buf.Bytes(), nil
}

// Close releases the frozen view. Safe to call twice.
func (s *Snapshot) Close() {
	if s.it != nil {
		s.it.Close()
		s.it = nil
	}
}
