package cursor

import (
	"kyanite/internal/table"
)

// RowSet is the positioned-access surface a cursor backend must provide.
// Rows are ordered by the backend's comparator; positions are dense indexes
// into that order and are invalidated by any structural mutation.
type RowSet interface {
	Len() int
	At(i int) (key, data []byte)
	Search(key []byte) (pos int, found bool)
	Put(key, data []byte) error
	DeleteAt(i int) error
	Clear() error
}

// Engine opens persistent roots for cursors. It is an opaque collaborator:
// this layer never sees pages, only the RowSet surface. Any suspension
// happens inside the engine; calls are treated as synchronous.
type Engine interface {
	// OpenRoot returns the row set stored under the given root identifier.
	// Cursors aliasing the same root must receive the same RowSet so that
	// mutations through one are visible to, and invalidate, the others.
	OpenRoot(root uint32) (RowSet, error)
}

// backend tags the two cursor variants. Dispatch is by type switch; there
// is no third case.
type backend interface {
	rows() RowSet
}

// persistentBackend is a cursor handle into an engine root.
type persistentBackend struct {
	set RowSet
}

func (b *persistentBackend) rows() RowSet { return b.set }

// ephemeralBackend owns a private, session-local table. Closing the cursor
// drops the table.
type ephemeralBackend struct {
	tbl *table.Table
}

func (b *ephemeralBackend) rows() RowSet { return b.tbl }

// MemEngine is an in-memory Engine keeping one table per root. It is the
// default engine for tests and for hosts that have not wired a persistent
// engine yet. Roots spring into existence on first open.
type MemEngine struct {
	roots map[uint32]*table.Table
}

// NewMemEngine returns an engine with no roots.
func NewMemEngine() *MemEngine {
	return &MemEngine{roots: make(map[uint32]*table.Table)}
}

// OpenRoot returns the table stored under root, creating it if absent.
func (e *MemEngine) OpenRoot(root uint32) (RowSet, error) {
	tbl, ok := e.roots[root]
	if !ok {
		tbl = table.New(nil)
		e.roots[root] = tbl
	}
	return tbl, nil
}
