//go:build cgofuse

// Package cgofuse serves the namespace through cgofuse's path based
// FileSystemInterface, for hosts where go-fuse is unavailable (macOS via
// macFUSE, Windows via WinFsp).
package cgofuse

import (
	"sync"
	"time"

	cfuse "github.com/winfsp/cgofuse/fuse"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/metrics"
)

// badFh is returned with a failed open/create
const badFh = ^uint64(0)

// FS adapts a memfs.Operator to cgofuse
type FS struct {
	cfuse.FileSystemBase
	ops     memfs.Operator
	cfg     *config.Config
	metrics metrics.Recorder

	host      *cfuse.FileSystemHost
	ready     chan struct{}
	readyOnce sync.Once
}

// New creates the adapter. A nil rec disables metrics.
func New(ops memfs.Operator, cfg *config.Config, rec metrics.Recorder) *FS {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	fs := &FS{
		ops:     ops,
		cfg:     cfg,
		metrics: rec,
		ready:   make(chan struct{}),
	}
	fs.host = cfuse.NewFileSystemHost(fs)
	return fs
}

// MountArgs are the mount options derived from the config
func (fs *FS) MountArgs() []string {
	args := []string{"-o", "fsname=" + fs.cfg.FsName}
	if fs.cfg.Debug {
		args = append(args, "-d")
	}
	return args
}

// Mount blocks serving mountPoint until unmounted. It reports whether the
// mount succeeded.
func (fs *FS) Mount(mountPoint string) bool {
	return fs.host.Mount(mountPoint, fs.MountArgs())
}

// Ready is closed once the host has called Init
func (fs *FS) Ready() <-chan struct{} {
	return fs.ready
}

func (fs *FS) Unmount() bool {
	return fs.host.Unmount()
}

func (fs *FS) done(op string, start time.Time, size int, err error) int {
	fs.metrics.RecordOperation(op, time.Since(start), int64(size), err)
	if err != nil {
		logger := util.GetLogger("CgoFuse." + op)
		logger.Debug().Err(err).Msg("Operation failed")
	}
	return ToErrno(err)
}

func (fs *FS) Init() {
	logger := util.GetLogger("CgoFuse.Init")
	logger.Debug().Msg("cgofuse initialized")
	fs.readyOnce.Do(func() { close(fs.ready) })
}

func (fs *FS) Destroy() {
	logger := util.GetLogger("CgoFuse.Destroy")
	logger.Info().Msg("cgofuse unmounted")
}

func (fs *FS) Statfs(path string, stat *cfuse.Statfs_t) int {
	st := fs.ops.Stats()
	stat.Bsize = 4096
	stat.Frsize = 4096
	stat.Files = uint64(st.Nodes)
	stat.Namemax = 255
	return 0
}

func (fs *FS) Getattr(path string, stat *cfuse.Stat_t, fh uint64) int {
	start := time.Now()
	a, err := fs.ops.GetAttributes(path)
	if err == nil {
		fillStat(a, stat)
	}
	return fs.done("getattr", start, 0, err)
}

func (fs *FS) Access(path string, mask uint32) int {
	return 0
}

// Mknod only creates regular files
func (fs *FS) Mknod(path string, mode uint32, dev uint64) int {
	if kind := mode & cfuse.S_IFMT; kind != 0 && kind != cfuse.S_IFREG {
		return -cfuse.EPERM
	}
	start := time.Now()
	fh, _, err := fs.ops.CreateAndOpen(path, mode&0o7777)
	if err == nil {
		fs.ops.Release(fh)
	}
	return fs.done("mknod", start, 0, err)
}

func (fs *FS) Mkdir(path string, mode uint32) int {
	start := time.Now()
	_, err := fs.ops.Mkdir(path, mode&0o7777)
	return fs.done("mkdir", start, 0, err)
}

func (fs *FS) Unlink(path string) int {
	start := time.Now()
	return fs.done("unlink", start, 0, fs.ops.Remove(path))
}

func (fs *FS) Rmdir(path string) int {
	start := time.Now()
	return fs.done("rmdir", start, 0, fs.ops.RemoveDirectory(path))
}

func (fs *FS) Chmod(path string, mode uint32) int {
	start := time.Now()
	return fs.done("chmod", start, 0, fs.ops.Chmod(path, mode&0o7777))
}

// Chown is accepted and ignored
func (fs *FS) Chown(path string, uid, gid uint32) int {
	_, err := fs.ops.GetAttributes(path)
	return ToErrno(err)
}

// utimens(2) markers passed through in Timespec.Nsec
const (
	utimeNow  = 1<<30 - 1
	utimeOmit = 1<<30 - 2
)

// Utimens sets atime and mtime. A nil tmsp means now.
func (fs *FS) Utimens(path string, tmsp []cfuse.Timespec) int {
	start := time.Now()
	atime, mtime := start, start
	if len(tmsp) == 2 {
		atime, mtime = utimensTime(tmsp[0], start), utimensTime(tmsp[1], start)
	}
	return fs.done("utimens", start, 0, fs.ops.SetTimes(path, atime, mtime))
}

// utimensTime resolves the UTIME_NOW and UTIME_OMIT markers. Omitted times
// are zero, which SetTimes leaves unchanged.
func utimensTime(ts cfuse.Timespec, now time.Time) time.Time {
	switch ts.Nsec {
	case utimeNow:
		return now
	case utimeOmit:
		return time.Time{}
	}
	return ts.Time()
}

func (fs *FS) Create(path string, flags int, mode uint32) (int, uint64) {
	start := time.Now()
	fh, _, err := fs.ops.CreateAndOpen(path, mode&0o7777)
	if errc := fs.done("create", start, 0, err); errc != 0 {
		return errc, badFh
	}
	return 0, uint64(fh)
}

func (fs *FS) Open(path string, flags int) (int, uint64) {
	start := time.Now()
	fh, err := fs.ops.Open(path)
	if err == nil && flags&cfuse.O_TRUNC != 0 {
		if err = fs.ops.Truncate(path, 0); err != nil {
			fs.ops.Release(fh)
		}
	}
	if errc := fs.done("open", start, 0, err); errc != 0 {
		return errc, badFh
	}
	return 0, uint64(fh)
}

func (fs *FS) Truncate(path string, size int64, fh uint64) int {
	start := time.Now()
	return fs.done("truncate", start, 0, fs.ops.Truncate(path, size))
}

// Read returns the number of bytes copied into buff or a negated errno
func (fs *FS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	start := time.Now()
	data, err := fs.ops.Read(memfs.Handle(fh), ofst, len(buff))
	if errc := fs.done("read", start, len(data), err); errc != 0 {
		return errc
	}
	return copy(buff, data)
}

func (fs *FS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	start := time.Now()
	n, err := fs.ops.Write(memfs.Handle(fh), ofst, buff)
	if errc := fs.done("write", start, n, err); errc != 0 {
		return errc
	}
	return n
}

func (fs *FS) Flush(path string, fh uint64) int {
	return 0
}

func (fs *FS) Fsync(path string, datasync bool, fh uint64) int {
	return 0
}

func (fs *FS) Release(path string, fh uint64) int {
	fs.ops.Release(memfs.Handle(fh))
	return 0
}

func (fs *FS) Opendir(path string) (int, uint64) {
	start := time.Now()
	a, err := fs.ops.GetAttributes(path)
	if err == nil && !a.IsDir() {
		err = memfs.ErrNotADirectory
	}
	if errc := fs.done("opendir", start, 0, err); errc != 0 {
		return errc, badFh
	}
	return 0, 0
}

// Readdir fills ".", ".." and then every child in listing order
func (fs *FS) Readdir(path string, fill func(name string, stat *cfuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	start := time.Now()
	l, err := fs.ops.List(path)
	if err != nil {
		return fs.done("readdir", start, 0, err)
	}

	fill(".", nil, 0)
	fill("..", nil, 0)
	for e, ok := l.Next(); ok; e, ok = l.Next() {
		stat := &cfuse.Stat_t{Ino: uint64(e.ID), Mode: e.Mode}
		if !fill(e.Name, stat, 0) {
			break
		}
	}
	return fs.done("readdir", start, 0, nil)
}

func (fs *FS) Releasedir(path string, fh uint64) int {
	return 0
}

func fillStat(a memfs.Attr, stat *cfuse.Stat_t) {
	stat.Ino = a.Ino
	stat.Mode = a.Mode
	stat.Nlink = a.Nlink
	stat.Uid = a.Uid
	stat.Gid = a.Gid
	stat.Size = int64(a.Size)
	stat.Blksize = int64(a.Blksize)
	stat.Blocks = int64(a.Blocks)
	stat.Atim = cfuse.NewTimespec(a.Atime)
	stat.Mtim = cfuse.NewTimespec(a.Mtime)
	stat.Ctim = cfuse.NewTimespec(a.Ctime)
	stat.Birthtim = cfuse.NewTimespec(a.Ctime)
}
