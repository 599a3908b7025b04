package hashindex

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"

	"kyanite/internal/bitmap"
)

const (
	// hashSeed matches the fixed seed the surrounding system has always
	// hashed sequence ids with; changing it would not break anything but
	// would shuffle every bucket.
	hashSeed = 13

	// slotsPerExtent is the number of records per extent. Power of two so
	// the total capacity stays a power of two as extents are added.
	slotsPerExtent = 32

	// ExtentSize is the record payload carried by one extent, in bytes.
	ExtentSize = slotsPerExtent * 16

	// DefaultExtentQuota bounds the pool when the caller does not.
	DefaultExtentQuota = 64
)

// extent is one fixed-size block of slots. live marks slots holding a
// record, dead marks tombstones left by deletes. refs counts frozen views
// holding the extent; a referenced extent is copied before mutation.
type extent struct {
	live     bitmap.Bitmap
	dead     bitmap.Bitmap
	recs     [slotsPerExtent]Record
	refs     int
	detached bool // dropped from the live directory, recycle when refs hits 0
}

func newExtent() *extent {
	return &extent{
		live: bitmap.NewBitmap(slotsPerExtent),
		dead: bitmap.NewBitmap(slotsPerExtent),
	}
}

// extentPool hands out extents up to a fixed quota and recycles returned
// ones. Copy-on-write clones bypass the quota: a replace of an existing
// record must never fail, even while a snapshot holds the original extent.
type extentPool struct {
	free  []*extent
	quota int
	alloc int
}

func newExtentPool(quota int) *extentPool {
	if quota <= 0 {
		quota = DefaultExtentQuota
	}
	return &extentPool{quota: quota}
}

func (p *extentPool) get() (*extent, error) {
	if n := len(p.free); n > 0 {
		e := p.free[n-1]
		p.free = p.free[:n-1]
		return e, nil
	}
	if p.alloc >= p.quota {
		return nil, ErrOutOfMemory
	}
	p.alloc++
	return newExtent(), nil
}

func (p *extentPool) clone(e *extent) *extent {
	cl := &extent{
		live: e.live.Clone(),
		dead: e.dead.Clone(),
		recs: e.recs,
	}
	p.alloc++
	return cl
}

func (p *extentPool) put(e *extent) {
	e.live.Reset()
	e.dead.Reset()
	e.refs = 0
	e.detached = false
	p.free = append(p.free, e)
}

// release retires an extent from the live directory. Extents still pinned
// by a frozen view are recycled when the last view closes.
func (p *extentPool) release(e *extent) {
	if e.refs > 0 {
		e.detached = true
		return
	}
	p.put(e)
}

// extentIndex is the concrete Index implementation.
type extentIndex struct {
	dir   []*extent
	pool  *extentPool
	count int // live records
	tombs int // tombstoned slots not yet reclaimed
}

// NewIndex returns an empty index whose pool may allocate at most
// extentQuota extents (<= 0 selects DefaultExtentQuota).
func NewIndex(extentQuota int) Index {
	return &extentIndex{pool: newExtentPool(extentQuota)}
}

func hashID(id uint32) uint32 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], id)
	return murmur3.Sum32WithSeed(b[:], hashSeed)
}

func (ix *extentIndex) capacity() int {
	return len(ix.dir) * slotsPerExtent
}

// at resolves a global slot number to its extent and local slot.
func (ix *extentIndex) at(pos uint32) (*extent, uint32) {
	return ix.dir[pos/slotsPerExtent], pos % slotsPerExtent
}

// lookup probes for id. Tombstones keep the probe chain alive; the first
// truly empty slot terminates it.
func (ix *extentIndex) lookup(id uint32) (uint32, bool) {
	size := ix.capacity()
	if size == 0 {
		return 0, false
	}
	mask := uint32(size - 1)
	pos := hashID(id) & mask
	for n := 0; n < size; n++ {
		e, s := ix.at(pos)
		if e.live.Contains(s) {
			if e.recs[s].ID == id {
				return pos, true
			}
		} else if !e.dead.Contains(s) {
			return 0, false
		}
		pos = (pos + 1) & mask
	}
	return 0, false
}

// writable returns the extent holding global slot pos, cloning it first if a
// frozen view still references it.
func (ix *extentIndex) writable(pos uint32) (*extent, uint32) {
	x := int(pos / slotsPerExtent)
	e := ix.dir[x]
	if e.refs > 0 {
		cl := ix.pool.clone(e)
		e.detached = true
		ix.dir[x] = cl
		e = cl
	}
	return e, pos % slotsPerExtent
}

func (ix *extentIndex) Len() int {
	return ix.count
}

func (ix *extentIndex) Get(id uint32) (Record, bool) {
	pos, ok := ix.lookup(id)
	if !ok {
		return Record{}, false
	}
	e, s := ix.at(pos)
	return e.recs[s], true
}

func (ix *extentIndex) Insert(rec Record) error {
	if _, ok := ix.lookup(rec.ID); ok {
		panic(fmt.Sprintf("hashindex: duplicate insert of id %d", rec.ID))
	}
	return ix.insert(rec)
}

func (ix *extentIndex) Replace(rec Record) (Record, bool, error) {
	pos, ok := ix.lookup(rec.ID)
	if ok {
		e, s := ix.writable(pos)
		old := e.recs[s]
		e.recs[s] = rec
		return old, true, nil
	}
	return Record{}, false, ix.insert(rec)
}

func (ix *extentIndex) Delete(id uint32) bool {
	pos, ok := ix.lookup(id)
	if !ok {
		return false
	}
	e, s := ix.writable(pos)
	e.live.Remove(s)
	e.dead.Add(s)
	e.recs[s] = Record{}
	ix.count--
	ix.tombs++
	return true
}

// insert claims the first reusable slot on id's probe chain. The caller has
// already established that id is absent.
func (ix *extentIndex) insert(rec Record) error {
	if ix.capacity() == 0 || (ix.count+ix.tombs+1)*4 > ix.capacity()*3 {
		if err := ix.grow(); err != nil {
			return err
		}
	}
	mask := uint32(ix.capacity() - 1)
	pos := hashID(rec.ID) & mask
	for {
		e, s := ix.at(pos)
		if !e.live.Contains(s) {
			e, s = ix.writable(pos)
			if e.dead.Contains(s) {
				e.dead.Remove(s)
				ix.tombs--
			}
			e.live.Add(s)
			e.recs[s] = rec
			ix.count++
			return nil
		}
		pos = (pos + 1) & mask
	}
}

// grow doubles the directory (or creates it) and rehashes every live record.
// Tombstones are dropped in the process. On pool exhaustion the index is
// left exactly as it was.
func (ix *extentIndex) grow() error {
	want := len(ix.dir) * 2
	if want == 0 {
		want = 1
	}
	fresh := make([]*extent, want)
	for i := range fresh {
		e, err := ix.pool.get()
		if err != nil {
			for _, got := range fresh[:i] {
				ix.pool.put(got)
			}
			return err
		}
		fresh[i] = e
	}

	old := ix.dir
	ix.dir = fresh
	mask := uint32(ix.capacity() - 1)
	for _, e := range old {
		for s := uint32(0); s < slotsPerExtent; s++ {
			if !e.live.Contains(s) {
				continue
			}
			rec := e.recs[s]
			pos := hashID(rec.ID) & mask
			for {
				ne, ns := ix.at(pos)
				if !ne.live.Contains(ns) {
					ne.live.Add(ns)
					ne.recs[ns] = rec
					break
				}
				pos = (pos + 1) & mask
			}
		}
	}
	for _, e := range old {
		ix.pool.release(e)
	}
	ix.tombs = 0
	return nil
}

func (ix *extentIndex) Freeze() Iterator {
	dir := make([]*extent, len(ix.dir))
	copy(dir, ix.dir)
	for _, e := range dir {
		e.refs++
	}
	return &frozenIterator{pool: ix.pool, dir: dir}
}

func (ix *extentIndex) Close() {
	for _, e := range ix.dir {
		ix.pool.release(e)
	}
	ix.dir = nil
	ix.count = 0
	ix.tombs = 0
}

// frozenIterator walks the extents captured at freeze time. Concurrent
// mutation clones the touched extents into the live directory, so these
// stay stable until Close.
type frozenIterator struct {
	pool   *extentPool
	dir    []*extent
	ext    int
	slot   uint32
	closed bool
}

func (it *frozenIterator) Next() (Record, bool) {
	if it.closed {
		return Record{}, false
	}
	for it.ext < len(it.dir) {
		e := it.dir[it.ext]
		for it.slot < slotsPerExtent {
			s := it.slot
			it.slot++
			if e.live.Contains(s) {
				return e.recs[s], true
			}
		}
		it.ext++
		it.slot = 0
	}
	return Record{}, false
}

func (it *frozenIterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	for _, e := range it.dir {
		e.refs--
		if e.refs == 0 && e.detached {
			it.pool.put(e)
		}
	}
	it.dir = nil
}
