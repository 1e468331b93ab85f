package filesystem

import (
	"slices"
	"strconv"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
)

// readAt copies up to n bytes starting at off. Reading at or past the end
// yields an empty slice.
func (f *File) readAt(off int64, n int) []byte {
	size := int64(len(f.buf))
	if off >= size || n == 0 {
		return []byte{}
	}
	end := size
	if int64(n) < size-off {
		end = off + int64(n)
	}
	return slices.Clone(f.buf[off:end])
}

// resize sets the length to exactly size, zero filling any growth
func (f *File) resize(size int) {
	old := len(f.buf)
	if size <= old {
		f.buf = f.buf[:size]
		return
	}
	f.buf = slices.Grow(f.buf, size-old)[:size]
	clear(f.buf[old:])
}

// writeAt copies data at off, first growing the buffer when data ends past
// the current size. It never shrinks.
func (f *File) writeAt(off int, data []byte) {
	if end := off + len(data); end > len(f.buf) {
		f.resize(end)
	}
	copy(f.buf[off:], data)
}

// ReadAt reads up to n bytes of the file id starting at off
func (fs *FileSystem) ReadAt(id memfs.NodeID, off int64, n int) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, ok := fs.nodes[id]
	if !ok {
		return nil, pathErr("read", idPath(id), memfs.ErrNotFound)
	}
	f, ok := node.data.(*File)
	if !ok {
		return nil, pathErr("read", fs.pathOfLocked(id), memfs.ErrNotAFile)
	}
	if off < 0 || n < 0 {
		return nil, pathErr("read", fs.pathOfLocked(id), memfs.ErrInvalidArgument)
	}
	data := f.readAt(off, n)
	node.meta.access(fs.now())
	return data, nil
}

// WriteAt writes data into the file id at off and returns len(data).
// A zero length write changes nothing.
func (fs *FileSystem) WriteAt(id memfs.NodeID, off int64, data []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, ok := fs.nodes[id]
	if !ok {
		return 0, pathErr("write", idPath(id), memfs.ErrNotFound)
	}
	f, ok := node.data.(*File)
	if !ok {
		return 0, pathErr("write", fs.pathOfLocked(id), memfs.ErrNotAFile)
	}
	if off < 0 {
		return 0, pathErr("write", fs.pathOfLocked(id), memfs.ErrInvalidArgument)
	}
	if len(data) == 0 {
		return 0, nil
	}
	end := uint64(off) + uint64(len(data))
	if end > uint64(len(f.buf)) {
		if err := fs.checkSize(end); err != nil {
			return 0, pathErr("write", fs.pathOfLocked(id), err)
		}
	}
	f.writeAt(int(off), data)
	node.meta.touch(fs.now())
	return len(data), nil
}

/* Handle based content operations */

// Read reads through an open handle
func (fs *FileSystem) Read(fh memfs.Handle, off int64, n int) ([]byte, error) {
	id, ok := fs.handles.lookup(fh)
	if !ok {
		return nil, pathErr("read", fhPath(fh), memfs.ErrBadHandle)
	}
	return fs.ReadAt(id, off, n)
}

// Write writes through an open handle
func (fs *FileSystem) Write(fh memfs.Handle, off int64, data []byte) (int, error) {
	id, ok := fs.handles.lookup(fh)
	if !ok {
		return 0, pathErr("write", fhPath(fh), memfs.ErrBadHandle)
	}
	return fs.WriteAt(id, off, data)
}

// Release forgets fh. Unknown handles are ignored.
func (fs *FileSystem) Release(fh memfs.Handle) {
	logger := util.GetLogger("FS.Release")
	if !fs.handles.release(fh) {
		logger.Trace().Uint64("fh", uint64(fh)).Msg("Release of unknown handle")
	}
}

// handleNode returns the node id an open handle refers to
func (fs *FileSystem) handleNode(fh memfs.Handle) (memfs.NodeID, bool) {
	return fs.handles.lookup(fh)
}

func fhPath(fh memfs.Handle) string {
	return "fh " + strconv.FormatUint(uint64(fh), 10)
}
