package filesystem

import (
	"sync/atomic"

	"github.com/brettbedarf/memfs"
	"github.com/puzpuzpuz/xsync/v4"
)

// handleTable maps open file handles to node ids. It is safe for concurrent
// use without the tree lock.
type handleTable struct {
	open *xsync.Map[memfs.Handle, memfs.NodeID]
	last atomic.Uint64 // Last handle value assigned
	max  uint64
}

func newHandleTable(maxFH int) *handleTable {
	if maxFH <= 0 {
		maxFH = 1<<31 - 1
	}
	return &handleTable{
		open: xsync.NewMap[memfs.Handle, memfs.NodeID](),
		max:  uint64(maxFH),
	}
}

// alloc associates a new handle with id. Values wrap back to 1 after max,
// skipping handles that are still open.
func (t *handleTable) alloc(id memfs.NodeID) (memfs.Handle, error) {
	if uint64(t.open.Size()) >= t.max {
		return 0, memfs.ErrTooManyOpen
	}
	for attempts, wraps := uint64(0), 0; attempts < t.max && wraps < 2; {
		next := t.last.Add(1)
		if next > t.max {
			t.last.CompareAndSwap(next, 0)
			wraps++
			continue
		}
		attempts++
		fh := memfs.Handle(next)
		if _, loaded := t.open.LoadOrStore(fh, id); !loaded {
			return fh, nil
		}
	}
	return 0, memfs.ErrTooManyOpen
}

// reserve allocates a handle before the node it will refer to exists.
// Callers must bind or release it.
func (t *handleTable) reserve() (memfs.Handle, error) {
	return t.alloc(0)
}

func (t *handleTable) bind(fh memfs.Handle, id memfs.NodeID) {
	t.open.Store(fh, id)
}

func (t *handleTable) lookup(fh memfs.Handle) (memfs.NodeID, bool) {
	return t.open.Load(fh)
}

// release forgets fh; unknown handles are ignored
func (t *handleTable) release(fh memfs.Handle) bool {
	_, ok := t.open.LoadAndDelete(fh)
	return ok
}

func (t *handleTable) size() int {
	return t.open.Size()
}

func (t *handleTable) clear() {
	t.open.Clear()
}
