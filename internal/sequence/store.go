package sequence

import (
	"fmt"
	"math"

	"kyanite/internal/hashindex"
)

// Definition describes a sequence as declared in the schema. The store only
// reads it; ownership stays with the schema layer.
//
// Min <= Start <= Max and Step != 0 are the schema layer's responsibility.
// The sign of Step selects ascending or descending progression.
type Definition struct {
	ID    uint32
	Name  string
	Start int64
	Min   int64
	Max   int64
	Step  int64
	Cycle bool
	Owner uint32
}

// OverflowError reports that a sequence hit its bound with cycling disabled.
// The stored value is left unchanged, so the call is retryable once the
// definition is widened.
type OverflowError struct {
	Name string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("sequence '%s' has overflowed", e.Name)
}

// Store holds the authoritative in-memory value of every sequence touched
// since it was created. One Store exists per hosting server; construct it at
// startup and Close it at shutdown.
//
// The store is not internally locked: sessions are assumed to run
// cooperatively. Under preemptive threads the owner must route all access
// through a single mutex or a dedicated worker.
type Store struct {
	index hashindex.Index
}

// NewStore creates an empty store. extentQuota bounds the backing index's
// extent pool (<= 0 selects the default).
func NewStore(extentQuota int) *Store {
	return &Store{index: hashindex.NewIndex(extentQuota)}
}

// Close destroys the store and releases the index pool.
func (s *Store) Close() {
	if s.index != nil {
		s.index.Close()
		s.index = nil
	}
}

// Len returns the number of sequences holding state.
func (s *Store) Len() int {
	return s.index.Len()
}

// Get returns the current value of the sequence, if it has one.
func (s *Store) Get(def *Definition) (int64, bool) {
	rec, ok := s.index.Get(def.ID)
	if !ok {
		return 0, false
	}
	return rec.Value, true
}

// Reset discards the sequence's state. The next call to Next starts over
// from def.Start. Idempotent.
func (s *Store) Reset(def *Definition) {
	s.index.Delete(def.ID)
}

// Set unconditionally installs value as the sequence's current state. It can
// only fail, with hashindex.ErrOutOfMemory, when a new record is needed and
// the index cannot grow; replacing an existing record never fails.
func (s *Store) Set(def *Definition, value int64) error {
	_, _, err := s.index.Replace(hashindex.Record{ID: def.ID, Value: value})
	return err
}

// Update installs value only if it extends the sequence in its direction of
// travel: ascending sequences never move backwards, descending never
// forwards. An absent record is installed unconditionally. Used to
// fast-forward a sequence past an externally observed value (a bulk load,
// say) without ever regressing it.
func (s *Store) Update(def *Definition, value int64) error {
	rec, ok := s.index.Get(def.ID)
	if !ok {
		return s.index.Insert(hashindex.Record{ID: def.ID, Value: value})
	}
	if (def.Step > 0 && value > rec.Value) ||
		(def.Step < 0 && value < rec.Value) {
		_, _, err := s.index.Replace(hashindex.Record{ID: def.ID, Value: value})
		return err
	}
	return nil
}

// Next advances the sequence and returns the new value.
//
// The first call on an untouched sequence returns def.Start. A stored value
// lying outside [Min, Max] behind the direction of travel — left there by a
// completed cycle or parked there via Set/Update — is clamped to the near
// bound and returned without adding Step. Otherwise Step is added with
// explicit overflow guards (the int64 range is checked before the add, never
// relied on to wrap). Crossing Max (ascending) or Min (descending) is an
// overflow: with Cycle it wraps to the opposite bound, without it the call
// fails with *OverflowError and the stored value stays put.
func (s *Store) Next(def *Definition) (int64, error) {
	rec, ok := s.index.Get(def.ID)
	if !ok {
		rec = hashindex.Record{ID: def.ID, Value: def.Start}
		if err := s.index.Insert(rec); err != nil {
			return 0, err
		}
		return def.Start, nil
	}

	value := rec.Value
	if def.Step > 0 {
		if value < def.Min {
			value = def.Min
			return s.commit(def, value)
		}
		if value >= 0 && def.Step > math.MaxInt64-value {
			return s.overflow(def)
		}
		value += def.Step
		if value > def.Max {
			return s.overflow(def)
		}
	} else {
		if value > def.Max {
			value = def.Max
			return s.commit(def, value)
		}
		if value < 0 && def.Step < math.MinInt64-value {
			return s.overflow(def)
		}
		value += def.Step
		if value < def.Min {
			return s.overflow(def)
		}
	}
	return s.commit(def, value)
}

// commit persists an in-range value by replace and returns it.
func (s *Store) commit(def *Definition, value int64) (int64, error) {
	if value < def.Min || value > def.Max {
		panic(fmt.Sprintf("sequence: committing %d outside [%d, %d] for '%s'",
			value, def.Min, def.Max, def.Name))
	}
	if _, replaced, _ := s.index.Replace(hashindex.Record{ID: def.ID, Value: value}); !replaced {
		// Next only commits over a record it just read.
		panic(fmt.Sprintf("sequence: record for '%s' vanished mid-call", def.Name))
	}
	return value, nil
}

// overflow resolves a bound crossing: wrap when cycling, fail otherwise.
func (s *Store) overflow(def *Definition) (int64, error) {
	if !def.Cycle {
		return 0, &OverflowError{Name: def.Name}
	}
	if def.Step > 0 {
		return s.commit(def, def.Min)
	}
	return s.commit(def, def.Max)
}
