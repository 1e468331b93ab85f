package filesystem

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/internal/util"
)

var _ memfs.Operator = (*FileSystem)(nil)

// FileSystem is an in-memory namespace tree. Nodes live in an arena keyed by
// stable ids which transports can hand out as inode numbers.
//
// A single reader/writer lock guards the tree: lookups, listings, attribute
// queries and reads share it while every mutation holds it exclusively.
type FileSystem struct {
	cfg      *config.Config
	mu       sync.RWMutex
	nodes    map[memfs.NodeID]*Node // Protected by mu
	lastID   memfs.NodeID           // Last NodeID assigned; ids are never reused. Protected by mu
	handles  *handleTable
	now      func() time.Time
	uid, gid uint32
}

// Option customizes a FileSystem at construction
type Option func(*FileSystem)

// WithClock replaces time.Now as the source of timestamps
func WithClock(now func() time.Time) Option {
	return func(fs *FileSystem) { fs.now = now }
}

// NewFS creates an empty tree holding only the root directory.
// A nil cfg uses the defaults.
func NewFS(cfg *config.Config, opts ...Option) *FileSystem {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	fs := &FileSystem{
		cfg:     cfg,
		nodes:   make(map[memfs.NodeID]*Node),
		handles: newHandleTable(cfg.MaxFH),
		now:     time.Now,
		uid:     uint32(os.Getuid()),
		gid:     uint32(os.Getgid()),
	}
	for _, opt := range opts {
		opt(fs)
	}

	root := &Node{id: memfs.RootID, data: newDir()}
	root.meta.init(fs.now(), cfg.RootPerms, fs.uid, fs.gid)
	fs.nodes[memfs.RootID] = root
	fs.lastID = memfs.RootID
	return fs
}

// Config returns the configuration the tree was built with
func (fs *FileSystem) Config() *config.Config { return fs.cfg }

// Close removes every node and forgets all handles. The root survives so
// the tree stays usable.
func (fs *FileSystem) Close() error {
	logger := util.GetLogger("FS.Close")
	fs.mu.Lock()
	removed := fs.clearDirLocked(fs.nodes[memfs.RootID])
	fs.mu.Unlock()
	fs.handles.clear()
	logger.Debug().Int("removed", removed).Msg("Tree torn down")
	return nil
}

// Stats counts the nodes in the tree
func (fs *FileSystem) Stats() memfs.Stats {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var st memfs.Stats
	for _, n := range fs.nodes {
		st.Nodes++
		switch d := n.data.(type) {
		case *Dir:
			st.Directories++
		case *File:
			st.Files++
			st.Bytes += uint64(len(d.buf))
		}
	}
	st.OpenHandles = fs.handles.size()
	return st
}

/* Node id based operations used by kernel transports */

// GetAttr returns the attributes of the node with the given id
func (fs *FileSystem) GetAttr(id memfs.NodeID) (memfs.Attr, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, ok := fs.nodes[id]
	if !ok {
		return memfs.Attr{}, pathErr("getattr", idPath(id), memfs.ErrNotFound)
	}
	return n.attr(), nil
}

// Parent returns the id of the node's parent; the root is its own parent
func (fs *FileSystem) Parent(id memfs.NodeID) (memfs.NodeID, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, ok := fs.nodes[id]
	if !ok {
		return 0, pathErr("parent", idPath(id), memfs.ErrNotFound)
	}
	if n.id == memfs.RootID {
		return memfs.RootID, nil
	}
	return n.parent, nil
}

// LookupChild finds name inside the directory parent
func (fs *FileSystem) LookupChild(parent memfs.NodeID, name string) (memfs.Entry, error) {
	logger := util.GetLogger("FS.LookupChild")
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, err := fs.childLocked(parent, name)
	if err != nil {
		err = pathErr("lookup", fs.childPathLocked(parent, name), err)
		logger.Trace().Err(err).Msg("Lookup failed")
		return memfs.Entry{}, err
	}
	return n.entry(), nil
}

// ListAt snapshots the children of the directory id
func (fs *FileSystem) ListAt(id memfs.NodeID) (*memfs.Listing, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, ok := fs.nodes[id]
	if !ok {
		return nil, pathErr("list", idPath(id), memfs.ErrNotFound)
	}
	if !n.IsDir() {
		return nil, pathErr("list", fs.pathOfLocked(id), memfs.ErrNotADirectory)
	}
	return fs.listLocked(n), nil
}

func (fs *FileSystem) CreateDirectoryAt(parent memfs.NodeID, name string, perm uint32) (memfs.Entry, error) {
	return fs.createAt("mkdir", parent, name, perm, newDir())
}

func (fs *FileSystem) CreateFileAt(parent memfs.NodeID, name string, perm uint32) (memfs.Entry, error) {
	return fs.createAt("create", parent, name, perm, &File{})
}

func (fs *FileSystem) createAt(op string, parent memfs.NodeID, name string, perm uint32, data NodeData) (memfs.Entry, error) {
	logger := util.GetLogger("FS.CreateAt")
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.createLocked(parent, name, perm, data)
	if err != nil {
		err = pathErr(op, fs.childPathLocked(parent, name), err)
		logger.Debug().Err(err).Msg("Create failed")
		return memfs.Entry{}, err
	}
	logger.Debug().Str("path", fs.pathOfLocked(n.id)).Stringer("kind", n.Kind()).Msg("Created node")
	return n.entry(), nil
}

// CreateAndOpenAt creates an empty file in parent and opens it
func (fs *FileSystem) CreateAndOpenAt(parent memfs.NodeID, name string, perm uint32) (memfs.Handle, memfs.Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fh, n, err := fs.createOpenLocked(parent, name, perm)
	if err != nil {
		return 0, memfs.Entry{}, pathErr("create", fs.childPathLocked(parent, name), err)
	}
	return fh, n.entry(), nil
}

// OpenAt opens the file id for reading and writing
func (fs *FileSystem) OpenAt(id memfs.NodeID) (memfs.Handle, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, ok := fs.nodes[id]
	if !ok {
		return 0, pathErr("open", idPath(id), memfs.ErrNotFound)
	}
	return fs.openLocked(n)
}

// RemoveAt removes the file name from the directory parent
func (fs *FileSystem) RemoveAt(parent memfs.NodeID, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.childLocked(parent, name)
	if err == nil && n.IsDir() {
		err = memfs.ErrNotAFile
	}
	if err != nil {
		return pathErr("unlink", fs.childPathLocked(parent, name), err)
	}
	fs.detachLocked(n)
	return nil
}

// RemoveDirectoryAt removes the empty directory name from parent
func (fs *FileSystem) RemoveDirectoryAt(parent memfs.NodeID, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.childLocked(parent, name)
	if err == nil {
		err = checkRemovableDir(n)
	}
	if err != nil {
		return pathErr("rmdir", fs.childPathLocked(parent, name), err)
	}
	fs.detachLocked(n)
	return nil
}

// SetAttrRequest carries the attributes to change; nil fields are left alone
type SetAttrRequest struct {
	Size  *uint64
	Mode  *uint32 // permission bits
	Atime *time.Time
	Mtime *time.Time
}

// SetAttr applies req to id and returns the resulting attributes
func (fs *FileSystem) SetAttr(id memfs.NodeID, req SetAttrRequest) (memfs.Attr, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.nodes[id]
	if !ok {
		return memfs.Attr{}, pathErr("setattr", idPath(id), memfs.ErrNotFound)
	}
	if err := fs.setAttrLocked(n, req); err != nil {
		return memfs.Attr{}, pathErr("setattr", fs.pathOfLocked(id), err)
	}
	return n.attr(), nil
}

/* Locked helpers. Callers must hold fs.mu (write lock for mutations). */

func (fs *FileSystem) childLocked(parent memfs.NodeID, name string) (*Node, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	p, ok := fs.nodes[parent]
	if !ok {
		return nil, memfs.ErrNotFound
	}
	dir, ok := p.data.(*Dir)
	if !ok {
		return nil, memfs.ErrNotADirectory
	}
	id, ok := dir.child(name)
	if !ok {
		return nil, memfs.ErrNotFound
	}
	return fs.nodes[id], nil
}

// createLocked validates everything before inserting so a failure leaves the
// tree untouched
func (fs *FileSystem) createLocked(parent memfs.NodeID, name string, perm uint32, data NodeData) (*Node, error) {
	p, err := fs.checkCreateLocked(parent, name)
	if err != nil {
		return nil, err
	}
	return fs.insertLocked(p, name, perm, data), nil
}

// createOpenLocked is createLocked for a file plus a handle to it. The handle
// is reserved before inserting so running out of handles leaves no trace.
func (fs *FileSystem) createOpenLocked(parent memfs.NodeID, name string, perm uint32) (memfs.Handle, *Node, error) {
	p, err := fs.checkCreateLocked(parent, name)
	if err != nil {
		return 0, nil, err
	}
	fh, err := fs.handles.reserve()
	if err != nil {
		return 0, nil, err
	}
	n := fs.insertLocked(p, name, perm, &File{})
	fs.handles.bind(fh, n.id)
	return fh, n, nil
}

// checkCreateLocked returns the parent directory name can be created in
func (fs *FileSystem) checkCreateLocked(parent memfs.NodeID, name string) (*Node, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	p, ok := fs.nodes[parent]
	if !ok {
		return nil, memfs.ErrNotFound
	}
	dir, ok := p.data.(*Dir)
	if !ok {
		return nil, memfs.ErrNotADirectory
	}
	if _, exists := dir.child(name); exists {
		return nil, memfs.ErrNameCollision
	}
	return p, nil
}

func (fs *FileSystem) insertLocked(p *Node, name string, perm uint32, data NodeData) *Node {
	now := fs.now()
	fs.lastID++
	n := &Node{id: fs.lastID, parent: p.id, name: name, data: data}
	n.meta.init(now, perm, fs.uid, fs.gid)
	fs.nodes[n.id] = n
	p.data.(*Dir).add(name, n.id, data.kind())
	p.meta.touch(now)
	return n
}

func (fs *FileSystem) openLocked(n *Node) (memfs.Handle, error) {
	if n.IsDir() {
		return 0, pathErr("open", fs.pathOfLocked(n.id), memfs.ErrNotAFile)
	}
	fh, err := fs.handles.alloc(n.id)
	if err != nil {
		return 0, pathErr("open", fs.pathOfLocked(n.id), err)
	}
	n.meta.access(fs.now())
	return fh, nil
}

func (fs *FileSystem) listLocked(n *Node) *memfs.Listing {
	dir := n.data.(*Dir)
	ids := dir.children()
	entries := make([]memfs.DirEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, fs.nodes[id].dirEntry())
	}
	return memfs.NewListing(entries)
}

func checkRemovableDir(n *Node) error {
	dir, ok := n.data.(*Dir)
	switch {
	case !ok:
		return memfs.ErrNotADirectory
	case n.id == memfs.RootID:
		return memfs.ErrInvalidPath
	case dir.Len() > 0:
		return memfs.ErrDirectoryNotEmpty
	}
	return nil
}

// detachLocked unlinks n from its parent and destroys it with its subtree
func (fs *FileSystem) detachLocked(n *Node) int {
	if p, ok := fs.nodes[n.parent]; ok {
		p.data.(*Dir).remove(n.name)
		p.meta.touch(fs.now())
	}
	return fs.destroyLocked(n)
}

// destroyLocked drops n and every descendant from the arena and releases
// file buffers. It returns the number of nodes removed.
func (fs *FileSystem) destroyLocked(n *Node) int {
	removed := 0
	switch d := n.data.(type) {
	case *Dir:
		removed += fs.clearDirLocked(n)
	case *File:
		d.buf = nil
	}
	delete(fs.nodes, n.id)
	return removed + 1
}

// clearDirLocked destroys every child of the directory n
func (fs *FileSystem) clearDirLocked(n *Node) int {
	dir := n.data.(*Dir)
	removed := 0
	for _, id := range dir.children() {
		if child, ok := fs.nodes[id]; ok {
			removed += fs.destroyLocked(child)
		}
	}
	if removed > 0 {
		n.meta.touch(fs.now())
	}
	n.data = newDir()
	return removed
}

func (fs *FileSystem) setAttrLocked(n *Node, req SetAttrRequest) error {
	var f *File
	if req.Size != nil {
		var ok bool
		if f, ok = n.data.(*File); !ok {
			return memfs.ErrNotAFile
		}
		if err := fs.checkSize(*req.Size); err != nil {
			return err
		}
	}
	if req.Mode != nil && n.id == memfs.RootID {
		return memfs.ErrInvalidArgument
	}

	now := fs.now()
	if f != nil {
		f.resize(int(*req.Size))
		n.meta.touch(now)
	}
	if req.Mode != nil {
		n.meta.mode = *req.Mode & 0o7777
	}
	var atime, mtime time.Time
	if req.Atime != nil {
		atime = *req.Atime
	}
	if req.Mtime != nil {
		mtime = *req.Mtime
	}
	n.meta.setTimes(atime, mtime, now)
	return nil
}

// checkSize rejects file sizes beyond the configured maximum. An unlimited
// config is still bounded by maxFileSizeCeiling.
func (fs *FileSystem) checkSize(size uint64) error {
	limit := uint64(fs.cfg.MaxFileSize)
	if limit == 0 || limit > maxFileSizeCeiling {
		limit = maxFileSizeCeiling
	}
	if size > limit {
		return memfs.ErrFileTooLarge
	}
	return nil
}

func pathErr(op, path string, err error) error {
	return &memfs.PathError{Op: op, Path: path, Err: err}
}

func idPath(id memfs.NodeID) string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}
