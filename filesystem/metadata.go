package filesystem

import (
	"sync/atomic"
	"time"
)

// metadata holds the timestamps and mode bits of a node.
// All fields except atime are protected by the tree lock; atime is updated
// by readers holding only the read lock.
type metadata struct {
	mode    uint32 // permission bits only
	uid     uint32
	gid     uint32
	created time.Time // immutable
	mtime   time.Time
	atime   atomic.Int64 // unix nanoseconds
}

func (m *metadata) init(now time.Time, perm, uid, gid uint32) {
	m.mode = perm & 0o7777
	m.uid = uid
	m.gid = gid
	m.created = now
	m.mtime = now
	m.atime.Store(now.UnixNano())
}

// touch records a modification at now, never earlier than creation
func (m *metadata) touch(now time.Time) {
	if now.Before(m.created) {
		now = m.created
	}
	m.mtime = now
}

func (m *metadata) access(now time.Time) {
	m.atime.Store(now.UnixNano())
}

func (m *metadata) Atime() time.Time {
	return time.Unix(0, m.atime.Load())
}

// setTimes applies caller supplied times. Zero values leave the field
// unchanged and mtime is clamped into [created, now].
func (m *metadata) setTimes(atime, mtime, now time.Time) {
	if !atime.IsZero() {
		m.atime.Store(atime.UnixNano())
	}
	if mtime.IsZero() {
		return
	}
	if mtime.After(now) {
		mtime = now
	}
	m.touch(mtime)
}
