package cursor

import (
	"errors"
	"fmt"

	"kyanite/internal/table"
)

var (
	// ErrCorrupt reports a structurally invalid request, such as a zero
	// root identifier. It indicates a caller bug or a corrupted schema.
	ErrCorrupt = errors.New("cursor: invalid root")

	// ErrBusy reports that another handle sharing the same environment
	// already holds the write transaction. Retry policy belongs to the
	// transaction layer above, not here.
	ErrBusy = errors.New("cursor: write transaction already active")
)

// TxState is the transaction state of one logical database handle.
type TxState uint8

const (
	TxNone TxState = iota
	TxRead
	TxWrite
)

// Env is the shared backend environment: one engine plus the bookkeeping
// for every handle and cursor attached to it. At most one handle may hold
// the write transaction at a time.
type Env struct {
	engine  Engine
	writer  *Tree
	active  int // handles with an open transaction
	cursors []*Cursor
}

// NewEnv wraps an engine (nil selects an in-memory one).
func NewEnv(engine Engine) *Env {
	if engine == nil {
		engine = NewMemEngine()
	}
	return &Env{engine: engine}
}

// NewTree returns a fresh logical database handle with no transaction.
func (e *Env) NewTree() *Tree {
	return &Tree{env: e}
}

// register adds c to the sibling-invalidation list.
func (e *Env) register(c *Cursor) {
	e.cursors = append(e.cursors, c)
}

func (e *Env) unregister(c *Cursor) {
	for i, other := range e.cursors {
		if other == c {
			e.cursors = append(e.cursors[:i], e.cursors[i+1:]...)
			return
		}
	}
}

// invalidate saves the position of every cursor aliasing set, except skip,
// and marks it stale. The next use of such a cursor restores from its saved
// key before trusting its position.
func (e *Env) invalidate(set RowSet, skip *Cursor) {
	for _, c := range e.cursors {
		if c == skip || c.backend == nil || c.backend.rows() != set {
			continue
		}
		c.savePosition()
	}
}

// Tree is one logical database handle. Cursors are opened through it and a
// transaction must be active first. Handles are session-local and never
// shared.
type Tree struct {
	env *Env
	tx  TxState
}

// Tx returns the handle's transaction state.
func (t *Tree) Tx() TxState {
	return t.tx
}

// InTrans reports whether a write transaction is active on this handle.
func (t *Tree) InTrans() bool {
	return t.tx == TxWrite
}

// InReadTrans reports whether any transaction is active on this handle.
func (t *Tree) InReadTrans() bool {
	return t.tx != TxNone
}

// Begin opens a transaction, write when requested. It fails with ErrBusy if
// another handle on the same environment already holds the write
// transaction. Beginning a write on a handle already in a read transaction
// upgrades it.
func (t *Tree) Begin(write bool) error {
	if write && t.env.writer != nil && t.env.writer != t {
		return ErrBusy
	}
	if t.tx == TxNone {
		t.env.active++
	}
	if write {
		t.env.writer = t
		t.tx = TxWrite
	} else if t.tx == TxNone {
		t.tx = TxRead
	}
	return nil
}

// Commit concludes the transaction. The handle drops to TxRead while other
// handles still hold transactions on the same environment, else to TxNone.
func (t *Tree) Commit() {
	t.end()
}

// Rollback concludes the transaction like Commit. A non-nil trip error
// additionally faults every cursor on the environment; any later operation
// on a tripped cursor returns trip until the cursor is closed.
func (t *Tree) Rollback(trip error) {
	if trip != nil {
		for _, c := range t.env.cursors {
			c.state = StateFault
			c.fault = trip
		}
	}
	t.end()
}

func (t *Tree) end() {
	if t.tx == TxNone {
		return
	}
	if t.tx == TxWrite && t.env.active > 1 {
		// Other handles still hold read transactions; keep ours open
		// read-only rather than tearing the shared state down under them.
		t.env.writer = nil
		t.tx = TxRead
		return
	}
	if t.env.writer == t {
		t.env.writer = nil
	}
	t.env.active--
	t.tx = TxNone
}

// Open creates a cursor over the persistent root. A transaction must be
// active, and write cursors require the write transaction; violating either
// is a caller bug and panics. A root below 1 fails with ErrCorrupt.
func (t *Tree) Open(root uint32, write bool, ki *KeyInfo) (*Cursor, error) {
	if root < 1 {
		return nil, ErrCorrupt
	}
	if t.tx == TxNone {
		panic("cursor: Open without an active transaction")
	}
	if write && t.tx != TxWrite {
		panic("cursor: write cursor requires a write transaction")
	}
	set, err := t.env.engine.OpenRoot(root)
	if err != nil {
		return nil, fmt.Errorf("cursor: open root %d: %w", root, err)
	}
	c := &Cursor{
		tree:     t,
		root:     root,
		keyInfo:  ki,
		backend:  &persistentBackend{set: set},
		writable: write,
	}
	t.env.register(c)
	return c, nil
}

// OpenEphemeral creates a write cursor over a fresh private table, ordered
// by ki's comparator when given. Ephemeral tables are non-persisted
// scratch space for intermediate results; no transaction is required.
// Closing the cursor drops the table.
func (t *Tree) OpenEphemeral(ki *KeyInfo) (*Cursor, error) {
	var cmp table.CompareFunc
	if ki != nil {
		cmp = ki.Compare
	}
	c := &Cursor{
		tree:     t,
		keyInfo:  ki,
		backend:  &ephemeralBackend{tbl: table.New(cmp)},
		writable: true,
	}
	t.env.register(c)
	return c, nil
}
