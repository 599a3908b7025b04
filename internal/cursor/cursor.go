package cursor

import (
	"bytes"
	"errors"
	"fmt"

	"kyanite/internal/table"
)

// ErrPositionLost reports that a cursor's saved position could not be
// restored because the underlying row set emptied out. It arrives as the
// cursor's sticky fault.
var ErrPositionLost = errors.New("cursor: saved position no longer exists")

// State is the cursor's position validity.
type State uint8

const (
	// StateInvalid: no current row, because the set is empty or the
	// cursor has not been positioned yet.
	StateInvalid State = iota
	// StateValid: positioned on a row; payload calls are allowed.
	StateValid
	// StateSkipNext: positioned, but the next move in the pending
	// direction is a no-op. Armed by an exact seek and by restoration
	// onto a neighbor of a deleted row.
	StateSkipNext
	// StateRequireSeek: the position went stale under a structural
	// mutation; it is restored from the saved key before the next use.
	StateRequireSeek
	// StateFault: unrecoverable. Every operation returns the stored
	// fault until Close.
	StateFault
)

// Hints advise the backend about access patterns. They never change
// results.
type Hints uint8

const (
	HintBulkLoad Hints = 0x01
	HintSeekEQ   Hints = 0x02
)

// KeyInfo is the key-comparison context carried by cursors over keyed
// (index) access paths. Row cursors carry none.
type KeyInfo struct {
	Compare table.CompareFunc
}

// Payload is the content of a row to be inserted: key-only for keyed
// cursors, key plus data blob for row cursors.
type Payload struct {
	Key  []byte
	Data []byte
}

// DeleteFlags adjust Delete.
type DeleteFlags uint8

// DeleteSavePosition asks Delete to save the deleted row's key so the
// cursor can be restored near its old position instead of going invalid.
const DeleteSavePosition DeleteFlags = 0x02

// Cursor is a positioned handle over one backend. Cursors belong to a
// single session and are never shared; several cursors may still alias the
// same backend root, in which case a mutation through one saves and stales
// the others' positions (StateRequireSeek).
type Cursor struct {
	tree     *Tree
	root     uint32
	keyInfo  *KeyInfo
	backend  backend
	writable bool

	state State
	pos   int
	skip  int // +1: next Next is a no-op; -1: next Previous is
	fault error
	saved []byte
	hints Hints
}

// Root returns the root identifier the cursor was opened on (0 for
// ephemeral cursors).
func (c *Cursor) Root() uint32 {
	return c.root
}

// State returns the cursor's current validity state.
func (c *Cursor) State() State {
	return c.state
}

// IsValid reports whether the cursor points at a row.
func (c *Cursor) IsValid() bool {
	return c.state == StateValid
}

// Eof reports that the cursor is not on a row: the set is empty, or a move
// ran past either end.
func (c *Cursor) Eof() bool {
	return c.state != StateValid
}

// HasMoved reports whether the cursor left the position it was last placed
// at — the row was deleted out from under it, say. Call Restore before
// trusting such a cursor.
func (c *Cursor) HasMoved() bool {
	return c.state != StateValid
}

// SetHints replaces the cursor's hint flags. Anything but zero, HintSeekEQ
// or HintBulkLoad is a caller bug.
func (c *Cursor) SetHints(h Hints) {
	if h != 0 && h != HintSeekEQ && h != HintBulkLoad {
		panic(fmt.Sprintf("cursor: unknown hint %#x", h))
	}
	c.hints = h
}

// HasHint reports whether every hint in mask is set.
func (c *Cursor) HasHint(mask Hints) bool {
	return c.hints&mask != 0
}

func (c *Cursor) ensureOpen() {
	if c.backend == nil {
		panic("cursor: use after Close")
	}
}

// First positions the cursor on the first row. empty=true means the set
// has no rows and the cursor is left invalid.
func (c *Cursor) First() (empty bool, err error) {
	return c.boundary(true)
}

// Last positions the cursor on the last row. empty=true means the set has
// no rows and the cursor is left invalid.
func (c *Cursor) Last() (empty bool, err error) {
	return c.boundary(false)
}

func (c *Cursor) boundary(first bool) (bool, error) {
	c.ensureOpen()
	if c.state == StateFault {
		return false, c.fault
	}
	c.skip = 0
	c.saved = nil
	set := c.backend.rows()
	if set.Len() == 0 {
		c.state = StateInvalid
		return true, nil
	}
	if first {
		c.pos = 0
	} else {
		c.pos = set.Len() - 1
	}
	c.state = StateValid
	return false, nil
}

// Seek positions the cursor at the row matching key, or at the nearest row
// when there is no match. The result compares the landed row to the key:
// negative when the row orders before the key (or the set is empty), zero
// on an exact match, positive when it orders after.
//
// An exact match arms StateSkipNext in the bias direction, so the next move
// that way is a no-op returning the matched row's position.
func (c *Cursor) Seek(key []byte, bias int) (int, error) {
	c.ensureOpen()
	if c.state == StateFault {
		return 0, c.fault
	}
	c.skip = 0
	c.saved = nil
	set := c.backend.rows()
	if set.Len() == 0 {
		c.state = StateInvalid
		return -1, nil
	}
	i, found := set.Search(key)
	if found {
		c.pos = i
		c.state = StateSkipNext
		if bias < 0 {
			c.skip = -1
		} else {
			c.skip = 1
		}
		return 0, nil
	}
	if i >= set.Len() {
		c.pos = set.Len() - 1
		c.state = StateValid
		return -1, nil
	}
	c.pos = i
	c.state = StateValid
	return 1, nil
}

// Next advances to the following row. exhausted=true means the cursor
// moved past the last row and is now invalid. Calling Next on a cursor
// with no current row is a caller bug.
func (c *Cursor) Next() (exhausted bool, err error) {
	return c.move(1)
}

// Previous moves to the preceding row; the mirror of Next.
func (c *Cursor) Previous() (exhausted bool, err error) {
	return c.move(-1)
}

func (c *Cursor) move(dir int) (bool, error) {
	c.ensureOpen()
	switch c.state {
	case StateFault:
		return false, c.fault
	case StateInvalid:
		panic("cursor: move on a cursor with no current row")
	case StateRequireSeek:
		if err := c.restore(); err != nil {
			return false, err
		}
	}
	if c.state == StateSkipNext {
		skip := c.skip
		c.skip = 0
		c.state = StateValid
		if (dir > 0) == (skip > 0) {
			// The pending seek or restore already advanced us.
			return false, nil
		}
	}
	set := c.backend.rows()
	next := c.pos + dir
	if next < 0 || next >= set.Len() {
		c.state = StateInvalid
		return true, nil
	}
	c.pos = next
	return false, nil
}

// Insert adds or replaces a row. Keyed cursors take key-only payloads, row
// cursors take key plus data; a mismatched shape is a caller bug, as is
// inserting through a read-only cursor. Every other cursor aliasing the
// same backend has its position saved and staled.
func (c *Cursor) Insert(p Payload) error {
	c.ensureOpen()
	if c.state == StateFault {
		return c.fault
	}
	if c.keyInfo != nil && p.Data != nil {
		panic("cursor: keyed cursor takes key-only payloads")
	}
	if c.keyInfo == nil && p.Data == nil {
		panic("cursor: row cursor takes key and data payloads")
	}
	if !c.writable {
		panic("cursor: insert through a read-only cursor")
	}
	set := c.backend.rows()
	c.savePosition()
	c.tree.env.invalidate(set, c)
	if err := set.Put(p.Key, p.Data); err != nil {
		return fmt.Errorf("cursor: insert: %w", err)
	}
	return nil
}

// Delete removes the current row; the cursor must be on one. With
// DeleteSavePosition the deleted key is saved and the cursor left stale for
// restoration near its old spot; otherwise it goes invalid. Siblings
// aliasing the backend are saved and staled either way.
func (c *Cursor) Delete(flags DeleteFlags) error {
	c.ensureOpen()
	if c.state == StateFault {
		return c.fault
	}
	if c.state != StateValid && c.state != StateSkipNext {
		panic("cursor: delete requires a current row")
	}
	if !c.writable {
		panic("cursor: delete through a read-only cursor")
	}
	set := c.backend.rows()
	key, _ := set.At(c.pos)
	saved := bytes.Clone(key)
	c.tree.env.invalidate(set, c)
	if err := set.DeleteAt(c.pos); err != nil {
		return fmt.Errorf("cursor: delete: %w", err)
	}
	c.skip = 0
	if flags&DeleteSavePosition != 0 {
		c.saved = saved
		c.state = StateRequireSeek
	} else {
		c.saved = nil
		c.state = StateInvalid
	}
	return nil
}

// Count returns the number of rows in the backend, independent of the
// cursor's position.
func (c *Cursor) Count() (int64, error) {
	c.ensureOpen()
	if c.state == StateFault {
		return 0, c.fault
	}
	return int64(c.backend.rows().Len()), nil
}

// Payload returns an owned copy of the current row's encoded bytes: the
// key for keyed cursors, the data blob for row cursors.
func (c *Cursor) Payload() ([]byte, error) {
	b, err := c.payload()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

// PayloadFetch returns a borrowed view of the current row's encoded bytes.
// The view's lifetime ends at the next mutating call on any cursor sharing
// this backend; callers that retain the bytes must copy them out, or use
// Payload. This is the performance path — prefer Payload unless profiling
// says otherwise.
func (c *Cursor) PayloadFetch() ([]byte, error) {
	return c.payload()
}

// PayloadSize returns the size of the current row's payload in bytes.
func (c *Cursor) PayloadSize() (uint32, error) {
	b, err := c.payload()
	if err != nil {
		return 0, err
	}
	return uint32(len(b)), nil
}

func (c *Cursor) payload() ([]byte, error) {
	c.ensureOpen()
	switch c.state {
	case StateFault:
		return nil, c.fault
	case StateRequireSeek:
		if err := c.restore(); err != nil {
			return nil, err
		}
	}
	if c.state == StateInvalid {
		panic("cursor: payload with no current row")
	}
	key, data := c.backend.rows().At(c.pos)
	if c.keyInfo != nil {
		return key, nil
	}
	return data, nil
}

// Restore re-seeks a stale cursor to its saved position. Landing exactly on
// the saved key makes the cursor valid there; when the row was deleted the
// cursor lands on a neighbor with StateSkipNext armed so iteration does not
// double-advance. If the row set emptied out the position is unrecoverable
// and the cursor faults with ErrPositionLost. A no-op on cursors that have
// not moved.
func (c *Cursor) Restore() error {
	c.ensureOpen()
	switch c.state {
	case StateFault:
		return c.fault
	case StateRequireSeek:
		return c.restore()
	}
	return nil
}

// savePosition records the current key and marks the position stale.
func (c *Cursor) savePosition() {
	if c.state != StateValid && c.state != StateSkipNext {
		return
	}
	key, _ := c.backend.rows().At(c.pos)
	c.saved = bytes.Clone(key)
	c.state = StateRequireSeek
	c.skip = 0
}

func (c *Cursor) restore() error {
	set := c.backend.rows()
	if set.Len() == 0 {
		c.state = StateFault
		c.fault = ErrPositionLost
		return c.fault
	}
	i, found := set.Search(c.saved)
	c.saved = nil
	if found {
		c.pos = i
		c.state = StateValid
		c.skip = 0
		return nil
	}
	// The saved row is gone; land on a neighbor and arm the skip so the
	// next move in that direction does not jump a row.
	if i >= set.Len() {
		c.pos = set.Len() - 1
		c.skip = -1
	} else {
		c.pos = i
		c.skip = 1
	}
	c.state = StateSkipNext
	return nil
}

// ClearTable deletes every row of an ephemeral cursor's private table. On
// persistent cursors it is a no-op: persistent roots are cleared through
// the engine, not through this layer.
func (c *Cursor) ClearTable() error {
	c.ensureOpen()
	if c.state == StateFault {
		return c.fault
	}
	eb, ok := c.backend.(*ephemeralBackend)
	if !ok {
		return nil
	}
	if err := eb.tbl.Clear(); err != nil {
		return err
	}
	c.skip = 0
	c.saved = nil
	c.state = StateInvalid
	return nil
}

// Close releases the saved key and the backend handle, dropping the
// private table of an ephemeral cursor, and leaves the cursor unusable.
// Closing twice is safe.
func (c *Cursor) Close() error {
	if c.backend == nil {
		return nil
	}
	c.saved = nil
	c.fault = nil
	c.tree.env.unregister(c)
	if eb, ok := c.backend.(*ephemeralBackend); ok {
		_ = eb.tbl.Clear()
	}
	c.backend = nil
	c.state = StateInvalid
	return nil
}
