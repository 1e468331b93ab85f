// Package fuse serves the namespace tree over the low-level FUSE wire
// protocol using go-fuse's RawFileSystem.
package fuse

import (
	"syscall"
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/metrics"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"
)

// NodeOperator is the node id based surface of the namespace tree. FUSE node
// ids are the tree's NodeIDs so no translation table is needed.
type NodeOperator interface {
	GetAttr(id memfs.NodeID) (memfs.Attr, error)
	Parent(id memfs.NodeID) (memfs.NodeID, error)
	LookupChild(parent memfs.NodeID, name string) (memfs.Entry, error)
	ListAt(id memfs.NodeID) (*memfs.Listing, error)
	CreateDirectoryAt(parent memfs.NodeID, name string, perm uint32) (memfs.Entry, error)
	CreateFileAt(parent memfs.NodeID, name string, perm uint32) (memfs.Entry, error)
	CreateAndOpenAt(parent memfs.NodeID, name string, perm uint32) (memfs.Handle, memfs.Entry, error)
	OpenAt(id memfs.NodeID) (memfs.Handle, error)
	Read(fh memfs.Handle, offset int64, length int) ([]byte, error)
	Write(fh memfs.Handle, offset int64, data []byte) (int, error)
	Release(fh memfs.Handle)
	RemoveAt(parent memfs.NodeID, name string) error
	RemoveDirectoryAt(parent memfs.NodeID, name string) error
	SetAttr(id memfs.NodeID, req filesystem.SetAttrRequest) (memfs.Attr, error)
	Stats() memfs.Stats
}

var _ NodeOperator = (*filesystem.FileSystem)(nil)

// FuseRaw implements the low-level FUSE wire protocol
// It serves as protocol adapter between the FUSE and core filesystem
// See https://www.man7.org/linux//man-pages/man4/fuse.4.html
type FuseRaw struct {
	gofuse.RawFileSystem
	fs      NodeOperator
	cfg     *config.Config
	metrics metrics.Recorder
	server  *gofuse.Server
	now     func() time.Time
}

// NewFuseRaw creates the dispatcher. A nil rec disables metrics.
func NewFuseRaw(fs NodeOperator, cfg *config.Config, rec metrics.Recorder) *FuseRaw {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &FuseRaw{
		RawFileSystem: gofuse.NewDefaultRawFileSystem(),
		fs:            fs,
		cfg:           cfg,
		metrics:       rec,
		now:           time.Now,
	}
}

// done records the operation and converts err to a status
func (r *FuseRaw) done(op string, start time.Time, size int, err error) gofuse.Status {
	r.metrics.RecordOperation(op, time.Since(start), int64(size), err)
	if err != nil {
		logger := util.GetLogger("Fuse." + op)
		logger.Debug().Err(err).Msg("Operation failed")
	}
	return ToStatus(err)
}

func (r *FuseRaw) Init(s *gofuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Msg("FUSE initialized")
	r.server = s
}

func (r *FuseRaw) OnUnmount() {
	logger := util.GetLogger("Fuse.OnUnmount")
	logger.Info().Msg("FUSE unmounted")
}

func (r *FuseRaw) String() string {
	return "FuseRaw"
}

// Access is only called without 'default_permissions'. Permission bits are
// informational so every access is allowed.
func (r *FuseRaw) Access(cancel <-chan struct{}, input *gofuse.AccessIn) gofuse.Status {
	return gofuse.OK
}

// Lookup is called by the kernel when the VFS wants to know
// about a file inside a directory. Many lookup calls can
// occur in parallel, but only one call happens for each (dir,
// name) pair.
func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *gofuse.InHeader, name string, out *gofuse.EntryOut) gofuse.Status {
	start := time.Now()
	logger := util.GetLogger("Fuse.Lookup")
	logger.Trace().Uint64("parent", header.NodeId).Str("name", name).Msg("Lookup called")

	e, err := r.fs.LookupChild(memfs.NodeID(header.NodeId), name)
	if err == nil {
		r.fillEntry(e, out)
	}
	return r.done("lookup", start, 0, err)
}

// Forget is a no-op: node ids stay valid until the node is removed and are
// never reused, so the kernel's lookup count needs no bookkeeping.
func (r *FuseRaw) Forget(nodeid, nlookup uint64) {}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *gofuse.GetAttrIn, out *gofuse.AttrOut) gofuse.Status {
	start := time.Now()
	a, err := r.fs.GetAttr(memfs.NodeID(input.NodeId))
	if err == nil {
		r.fillAttrOut(a, out)
	}
	return r.done("getattr", start, 0, err)
}

// SetAttr handles truncate, chmod and utimens. Ownership changes are
// accepted and ignored.
func (r *FuseRaw) SetAttr(cancel <-chan struct{}, input *gofuse.SetAttrIn, out *gofuse.AttrOut) gofuse.Status {
	start := time.Now()
	logger := util.GetLogger("Fuse.SetAttr")
	logger.Trace().Uint64("node", input.NodeId).Uint32("valid", input.Valid).Msg("SetAttr called")

	var req filesystem.SetAttrRequest
	if input.Valid&gofuse.FATTR_SIZE != 0 {
		req.Size = &input.Size
	}
	if input.Valid&gofuse.FATTR_MODE != 0 {
		perm := input.Mode & 0o7777
		req.Mode = &perm
	}
	now := r.now()
	if input.Valid&(gofuse.FATTR_ATIME|gofuse.FATTR_ATIME_NOW) != 0 {
		atime := time.Unix(int64(input.Atime), int64(input.Atimensec))
		if input.Valid&gofuse.FATTR_ATIME_NOW != 0 {
			atime = now
		}
		req.Atime = &atime
	}
	if input.Valid&(gofuse.FATTR_MTIME|gofuse.FATTR_MTIME_NOW) != 0 {
		mtime := time.Unix(int64(input.Mtime), int64(input.Mtimensec))
		if input.Valid&gofuse.FATTR_MTIME_NOW != 0 {
			mtime = now
		}
		req.Mtime = &mtime
	}

	a, err := r.fs.SetAttr(memfs.NodeID(input.NodeId), req)
	if err == nil {
		r.fillAttrOut(a, out)
	}
	return r.done("setattr", start, 0, err)
}

// Mknod only creates regular files
func (r *FuseRaw) Mknod(cancel <-chan struct{}, input *gofuse.MknodIn, name string, out *gofuse.EntryOut) gofuse.Status {
	if kind := input.Mode & syscall.S_IFMT; kind != 0 && kind != syscall.S_IFREG {
		return gofuse.EPERM
	}
	start := time.Now()
	e, err := r.fs.CreateFileAt(memfs.NodeID(input.NodeId), name, input.Mode&0o7777)
	if err == nil {
		r.fillEntry(e, out)
	}
	return r.done("mknod", start, 0, err)
}

func (r *FuseRaw) Mkdir(cancel <-chan struct{}, input *gofuse.MkdirIn, name string, out *gofuse.EntryOut) gofuse.Status {
	start := time.Now()
	logger := util.GetLogger("Fuse.Mkdir")
	logger.Trace().Uint64("parent", input.NodeId).Str("name", name).Msg("Mkdir called")

	e, err := r.fs.CreateDirectoryAt(memfs.NodeID(input.NodeId), name, input.Mode&0o7777)
	if err == nil {
		r.fillEntry(e, out)
	}
	return r.done("mkdir", start, 0, err)
}

func (r *FuseRaw) Unlink(cancel <-chan struct{}, header *gofuse.InHeader, name string) gofuse.Status {
	start := time.Now()
	err := r.fs.RemoveAt(memfs.NodeID(header.NodeId), name)
	return r.done("unlink", start, 0, err)
}

func (r *FuseRaw) Rmdir(cancel <-chan struct{}, header *gofuse.InHeader, name string) gofuse.Status {
	start := time.Now()
	err := r.fs.RemoveDirectoryAt(memfs.NodeID(header.NodeId), name)
	return r.done("rmdir", start, 0, err)
}

func (r *FuseRaw) Create(cancel <-chan struct{}, input *gofuse.CreateIn, name string, out *gofuse.CreateOut) gofuse.Status {
	start := time.Now()
	logger := util.GetLogger("Fuse.Create")
	logger.Trace().Uint64("parent", input.NodeId).Str("name", name).Msg("Create called")

	fh, e, err := r.fs.CreateAndOpenAt(memfs.NodeID(input.NodeId), name, input.Mode&0o7777)
	if err == nil {
		r.fillEntry(e, &out.EntryOut)
		r.fillOpen(fh, &out.OpenOut)
	}
	return r.done("create", start, 0, err)
}

func (r *FuseRaw) Open(cancel <-chan struct{}, input *gofuse.OpenIn, out *gofuse.OpenOut) gofuse.Status {
	start := time.Now()
	id := memfs.NodeID(input.NodeId)
	fh, err := r.fs.OpenAt(id)
	if err == nil && input.Flags&syscall.O_TRUNC != 0 {
		var zero uint64
		if _, err = r.fs.SetAttr(id, filesystem.SetAttrRequest{Size: &zero}); err != nil {
			r.fs.Release(fh)
		}
	}
	if err == nil {
		r.fillOpen(fh, out)
	}
	return r.done("open", start, 0, err)
}

func (r *FuseRaw) fillOpen(fh memfs.Handle, out *gofuse.OpenOut) {
	out.Fh = uint64(fh)
	if r.cfg.DirectIO {
		out.OpenFlags |= gofuse.FOPEN_DIRECT_IO
	}
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *gofuse.ReadIn, buf []byte) (gofuse.ReadResult, gofuse.Status) {
	start := time.Now()
	data, err := r.fs.Read(memfs.Handle(input.Fh), int64(input.Offset), int(input.Size))
	status := r.done("read", start, len(data), err)
	if !status.Ok() {
		return nil, status
	}
	return gofuse.ReadResultData(data), gofuse.OK
}

func (r *FuseRaw) Write(cancel <-chan struct{}, input *gofuse.WriteIn, data []byte) (uint32, gofuse.Status) {
	start := time.Now()
	n, err := r.fs.Write(memfs.Handle(input.Fh), int64(input.Offset), data)
	return uint32(n), r.done("write", start, n, err)
}

func (r *FuseRaw) Release(cancel <-chan struct{}, input *gofuse.ReleaseIn) {
	r.fs.Release(memfs.Handle(input.Fh))
}

// Flush and Fsync succeed: content only lives in memory
func (r *FuseRaw) Flush(cancel <-chan struct{}, input *gofuse.FlushIn) gofuse.Status {
	return gofuse.OK
}

func (r *FuseRaw) Fsync(cancel <-chan struct{}, input *gofuse.FsyncIn) gofuse.Status {
	return gofuse.OK
}

// OpenDir checks the node is a directory. Listings are taken per ReadDir
// call so no directory handle is kept.
func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *gofuse.OpenIn, out *gofuse.OpenOut) gofuse.Status {
	start := time.Now()
	a, err := r.fs.GetAttr(memfs.NodeID(input.NodeId))
	if err == nil && !a.IsDir() {
		err = memfs.ErrNotADirectory
	}
	return r.done("opendir", start, 0, err)
}

func (r *FuseRaw) ReleaseDir(input *gofuse.ReleaseIn) {}

// ReadDir emits ".", ".." and then the children, resuming at input.Offset.
// Entries that don't fit are left for the kernel's next call.
func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *gofuse.ReadIn, out *gofuse.DirEntryList) gofuse.Status {
	start := time.Now()
	logger := util.GetLogger("Fuse.ReadDir")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Msg("ReadDir called")

	entries, err := r.dirEntries(memfs.NodeID(input.NodeId))
	if err == nil {
		for _, e := range entriesFrom(entries, input.Offset) {
			if !out.AddDirEntry(e) {
				break
			}
		}
	}
	return r.done("readdir", start, 0, err)
}

// ReadDirPlus is ReadDir with a lookup result for every child
func (r *FuseRaw) ReadDirPlus(cancel <-chan struct{}, input *gofuse.ReadIn, out *gofuse.DirEntryList) gofuse.Status {
	start := time.Now()
	parent := memfs.NodeID(input.NodeId)
	entries, err := r.dirEntries(parent)
	if err == nil {
		for _, e := range entriesFrom(entries, input.Offset) {
			entryOut := out.AddDirLookupEntry(e)
			if entryOut == nil {
				break
			}
			if e.Name == "." || e.Name == ".." {
				continue
			}
			// The child may have been removed since the listing snapshot
			if child, lerr := r.fs.LookupChild(parent, e.Name); lerr == nil {
				r.fillEntry(child, entryOut)
			}
		}
	}
	return r.done("readdirplus", start, 0, err)
}

// dirEntries snapshots a directory as wire entries with stable offsets
func (r *FuseRaw) dirEntries(id memfs.NodeID) ([]gofuse.DirEntry, error) {
	l, err := r.fs.ListAt(id)
	if err != nil {
		return nil, err
	}
	parent, err := r.fs.Parent(id)
	if err != nil {
		return nil, err
	}

	entries := make([]gofuse.DirEntry, 0, l.Remaining()+2)
	entries = append(entries,
		gofuse.DirEntry{Name: ".", Mode: syscall.S_IFDIR, Ino: uint64(id)},
		gofuse.DirEntry{Name: "..", Mode: syscall.S_IFDIR, Ino: uint64(parent)},
	)
	for e, ok := l.Next(); ok; e, ok = l.Next() {
		entries = append(entries, gofuse.DirEntry{Name: e.Name, Mode: e.Mode, Ino: uint64(e.ID)})
	}
	for i := range entries {
		entries[i].Off = uint64(i + 1)
	}
	return entries, nil
}

func entriesFrom(entries []gofuse.DirEntry, offset uint64) []gofuse.DirEntry {
	if offset >= uint64(len(entries)) {
		return nil
	}
	return entries[offset:]
}
