package memfs

import "time"

// Operator is the path based operation contract the namespace exposes to
// transports and other external consumers
type Operator interface {
	GetAttributes(path string) (Attr, error)
	Lookup(path string) (Entry, error)
	List(path string) (*Listing, error)
	Mkdir(path string, perm uint32) (Entry, error)
	CreateAndOpen(path string, perm uint32) (Handle, Entry, error)
	Open(path string) (Handle, error)
	Read(fh Handle, offset int64, length int) ([]byte, error)
	Write(fh Handle, offset int64, data []byte) (int, error)
	Release(fh Handle)
	Truncate(path string, size int64) error
	Chmod(path string, perm uint32) error
	SetTimes(path string, atime, mtime time.Time) error
	Remove(path string) error
	RemoveDirectory(path string) error
	RemoveAll(path string) error
	Stats() Stats
}

// Listing is a finite, non-restartable sequence of directory children.
// Directories come first, then files, each in insertion order.
//
// NOTE: a Listing is a snapshot taken at list time and is not safe for
// concurrent use
type Listing struct {
	entries []DirEntry
	pos     int
}

// NewListing wraps a snapshot of entries. The slice is owned by the Listing
// afterwards.
func NewListing(entries []DirEntry) *Listing {
	return &Listing{entries: entries}
}

// Next returns the next entry; ok is false once the listing is exhausted.
func (l *Listing) Next() (e DirEntry, ok bool) {
	if l == nil || l.pos >= len(l.entries) {
		return DirEntry{}, false
	}
	e = l.entries[l.pos]
	l.pos++
	return e, true
}

// Remaining reports how many entries have not been consumed yet
func (l *Listing) Remaining() int {
	if l == nil {
		return 0
	}
	return len(l.entries) - l.pos
}

// Names drains the listing and returns the remaining names
func (l *Listing) Names() []string {
	names := make([]string, 0, l.Remaining())
	for e, ok := l.Next(); ok; e, ok = l.Next() {
		names = append(names, e.Name)
	}
	return names
}
