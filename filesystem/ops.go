package filesystem

import (
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
)

/* Path based operations. Paths are absolute; see [SplitPath]. */

// GetAttributes returns the attributes of the node at p
func (fs *FileSystem) GetAttributes(p string) (memfs.Attr, error) {
	e, err := fs.lookup("getattr", p)
	return e.Attr, err
}

// Lookup resolves p to an entry snapshot
func (fs *FileSystem) Lookup(p string) (memfs.Entry, error) {
	return fs.lookup("lookup", p)
}

func (fs *FileSystem) lookup(op, p string) (memfs.Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, err := fs.resolvePathLocked(p)
	if err != nil {
		return memfs.Entry{}, pathErr(op, p, err)
	}
	return n.entry(), nil
}

// List snapshots the children of the directory at p: directories first,
// then files, each in insertion order
func (fs *FileSystem) List(p string) (*memfs.Listing, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, err := fs.resolvePathLocked(p)
	if err == nil && !n.IsDir() {
		err = memfs.ErrNotADirectory
	}
	if err != nil {
		return nil, pathErr("list", p, err)
	}
	return fs.listLocked(n), nil
}

// CreateDirectory creates the empty directory name inside parentPath
func (fs *FileSystem) CreateDirectory(parentPath, name string, perm uint32) (memfs.Entry, error) {
	return fs.createIn("mkdir", parentPath, name, perm, newDir())
}

// CreateFile creates the empty file name inside parentPath
func (fs *FileSystem) CreateFile(parentPath, name string, perm uint32) (memfs.Entry, error) {
	return fs.createIn("create", parentPath, name, perm, &File{})
}

func (fs *FileSystem) createIn(op, parentPath, name string, perm uint32, data NodeData) (memfs.Entry, error) {
	logger := util.GetLogger("FS.Create")
	logger.Trace().Str("parent", parentPath).Str("name", name).Msg("Create called")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	segs, err := SplitPath(parentPath)
	if err != nil {
		return memfs.Entry{}, pathErr(op, parentPath, err)
	}
	parent, err := fs.resolveDirLocked(segs)
	if err != nil {
		return memfs.Entry{}, pathErr(op, parentPath, err)
	}
	n, err := fs.createLocked(parent.id, name, perm, data)
	if err != nil {
		err = pathErr(op, fs.childPathLocked(parent.id, name), err)
		logger.Debug().Err(err).Msg("Create failed")
		return memfs.Entry{}, err
	}
	return n.entry(), nil
}

// Mkdir creates the directory p. Its parent must already exist.
func (fs *FileSystem) Mkdir(p string, perm uint32) (memfs.Entry, error) {
	logger := util.GetLogger("FS.Mkdir")
	logger.Trace().Str("path", p).Msg("Mkdir called")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.createPathLocked(p, perm, newDir())
	if err != nil {
		err = pathErr("mkdir", p, err)
		logger.Debug().Err(err).Msg("Mkdir failed")
		return memfs.Entry{}, err
	}
	return n.entry(), nil
}

// MkdirAll creates p and any missing ancestors, like `mkdir -p`. An existing
// directory at p is returned as is.
func (fs *FileSystem) MkdirAll(p string, perm uint32) (memfs.Entry, error) {
	logger := util.GetLogger("FS.MkdirAll")

	segs, err := SplitPath(p)
	if err != nil {
		return memfs.Entry{}, pathErr("mkdir", p, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	cur := fs.nodes[memfs.RootID]
	created := 0
	for _, name := range segs {
		child, err := fs.childLocked(cur.id, name)
		switch {
		case err == nil && !child.IsDir():
			return memfs.Entry{}, pathErr("mkdir", p, memfs.ErrNotADirectory)
		case err == nil:
			cur = child
			continue
		}
		if cur, err = fs.createLocked(cur.id, name, perm, newDir()); err != nil {
			return memfs.Entry{}, pathErr("mkdir", p, err)
		}
		created++
	}
	if created > 0 {
		logger.Debug().Str("path", p).Int("created", created).Msg("Created dir(s)")
	}
	return cur.entry(), nil
}

// CreateAndOpen creates the empty file p and returns an open handle to it
func (fs *FileSystem) CreateAndOpen(p string, perm uint32) (memfs.Handle, memfs.Entry, error) {
	logger := util.GetLogger("FS.CreateAndOpen")
	logger.Trace().Str("path", p).Msg("CreateAndOpen called")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	fh, n, err := fs.createOpenPathLocked(p, perm)
	if err != nil {
		err = pathErr("create", p, err)
		logger.Debug().Err(err).Msg("Create failed")
		return 0, memfs.Entry{}, err
	}
	return fh, n.entry(), nil
}

func (fs *FileSystem) createPathLocked(p string, perm uint32, data NodeData) (*Node, error) {
	parentSegs, name, err := SplitParent(p)
	if err != nil {
		return nil, err
	}
	parent, err := fs.resolveDirLocked(parentSegs)
	if err != nil {
		return nil, err
	}
	return fs.createLocked(parent.id, name, perm, data)
}

func (fs *FileSystem) createOpenPathLocked(p string, perm uint32) (memfs.Handle, *Node, error) {
	parentSegs, name, err := SplitParent(p)
	if err != nil {
		return 0, nil, err
	}
	parent, err := fs.resolveDirLocked(parentSegs)
	if err != nil {
		return 0, nil, err
	}
	return fs.createOpenLocked(parent.id, name, perm)
}

// Open returns a handle to the file at p
func (fs *FileSystem) Open(p string) (memfs.Handle, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, err := fs.resolvePathLocked(p)
	if err != nil {
		return 0, pathErr("open", p, err)
	}
	return fs.openLocked(n)
}

// Truncate resizes the file at p to exactly size bytes
func (fs *FileSystem) Truncate(p string, size int64) error {
	if size < 0 {
		return pathErr("truncate", p, memfs.ErrInvalidArgument)
	}
	s := uint64(size)
	return fs.setAttrPath("truncate", p, SetAttrRequest{Size: &s})
}

// Chmod replaces the permission bits of the node at p
func (fs *FileSystem) Chmod(p string, perm uint32) error {
	return fs.setAttrPath("chmod", p, SetAttrRequest{Mode: &perm})
}

// SetTimes sets the access and modification times of the node at p.
// A zero time leaves that field unchanged.
func (fs *FileSystem) SetTimes(p string, atime, mtime time.Time) error {
	return fs.setAttrPath("utimens", p, SetAttrRequest{Atime: &atime, Mtime: &mtime})
}

func (fs *FileSystem) setAttrPath(op, p string, req SetAttrRequest) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolvePathLocked(p)
	if err == nil {
		err = fs.setAttrLocked(n, req)
	}
	if err != nil {
		return pathErr(op, p, err)
	}
	return nil
}

// Remove deletes the file at p
func (fs *FileSystem) Remove(p string) error {
	logger := util.GetLogger("FS.Remove")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolveChildPathLocked(p)
	if err == nil && n.IsDir() {
		err = memfs.ErrNotAFile
	}
	if err != nil {
		err = pathErr("unlink", p, err)
		logger.Debug().Err(err).Msg("Remove failed")
		return err
	}
	fs.detachLocked(n)
	logger.Debug().Str("path", p).Msg("Removed file")
	return nil
}

// RemoveDirectory deletes the empty directory at p
func (fs *FileSystem) RemoveDirectory(p string) error {
	logger := util.GetLogger("FS.RemoveDirectory")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolveChildPathLocked(p)
	if err == nil {
		err = checkRemovableDir(n)
	}
	if err != nil {
		err = pathErr("rmdir", p, err)
		logger.Debug().Err(err).Msg("RemoveDirectory failed")
		return err
	}
	fs.detachLocked(n)
	logger.Debug().Str("path", p).Msg("Removed directory")
	return nil
}

// RemoveAll deletes the node at p and, for a directory, everything beneath
// it. RemoveAll("/") empties the tree but keeps the root.
func (fs *FileSystem) RemoveAll(p string) error {
	logger := util.GetLogger("FS.RemoveAll")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolvePathLocked(p)
	if err != nil {
		return pathErr("removeall", p, err)
	}
	var removed int
	if n.id == memfs.RootID {
		removed = fs.clearDirLocked(n)
	} else {
		removed = fs.detachLocked(n)
	}
	logger.Debug().Str("path", p).Int("removed", removed).Msg("Removed tree")
	return nil
}

// resolveChildPathLocked resolves a path that must name something other
// than the root
func (fs *FileSystem) resolveChildPathLocked(p string) (*Node, error) {
	parentSegs, name, err := SplitParent(p)
	if err != nil {
		return nil, err
	}
	parent, err := fs.resolveDirLocked(parentSegs)
	if err != nil {
		return nil, err
	}
	return fs.childLocked(parent.id, name)
}
