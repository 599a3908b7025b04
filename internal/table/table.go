package table

import "bytes"

// CompareFunc orders two encoded keys. It must define a total order.
type CompareFunc func(a, b []byte) int

// Table is an ordered in-memory row set keyed by encoded bytes. It backs
// ephemeral (session-local, non-persisted) tables and serves as the
// in-memory stand-in for a persistent root in tests.
//
// Rows are kept sorted by the table's comparator; keys and data are cloned
// on the way in so callers may reuse their buffers.
type Table struct {
	cmp  CompareFunc
	rows []row
}

type row struct {
	key  []byte
	data []byte
}

// New returns an empty table ordered by cmp (nil selects bytes.Compare).
func New(cmp CompareFunc) *Table {
	if cmp == nil {
		cmp = bytes.Compare
	}
	return &Table{cmp: cmp}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// At returns the key and data of the row at position i.
func (t *Table) At(i int) (key, data []byte) {
	r := t.rows[i]
	return r.key, r.data
}

// Search returns the position of the first row whose key is >= key, and
// whether that row matches exactly. The position equals Len() when every
// row orders before key.
func (t *Table) Search(key []byte) (int, bool) {
	lo, hi := 0, len(t.rows)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if t.cmp(t.rows[mid].key, key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(t.rows) && t.cmp(t.rows[lo].key, key) == 0
}

// Put inserts a row or replaces the row with an equal key.
func (t *Table) Put(key, data []byte) error {
	r := row{key: bytes.Clone(key), data: bytes.Clone(data)}
	i, found := t.Search(key)
	if found {
		t.rows[i] = r
		return nil
	}
	t.rows = append(t.rows, row{})
	copy(t.rows[i+1:], t.rows[i:])
	t.rows[i] = r
	return nil
}

// DeleteAt removes the row at position i.
func (t *Table) DeleteAt(i int) error {
	copy(t.rows[i:], t.rows[i+1:])
	t.rows[len(t.rows)-1] = row{}
	t.rows = t.rows[:len(t.rows)-1]
	return nil
}

// Clear removes every row.
func (t *Table) Clear() error {
	t.rows = nil
	return nil
}
