package fuse

import (
	"time"

	"github.com/brettbedarf/memfs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"
)

// fillAttr copies a into the wire attributes
func fillAttr(a memfs.Attr, out *gofuse.Attr) {
	out.Ino = a.Ino
	out.Size = a.Size
	out.Blocks = a.Blocks
	out.Mode = a.Mode
	out.Nlink = a.Nlink
	out.Owner = gofuse.Owner{Uid: a.Uid, Gid: a.Gid}
	out.Blksize = a.Blksize
	out.SetTimes(&a.Atime, &a.Mtime, &a.Ctime)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (r *FuseRaw) fillEntry(e memfs.Entry, out *gofuse.EntryOut) {
	out.NodeId = uint64(e.ID)
	fillAttr(e.Attr, &out.Attr)
	out.SetEntryTimeout(seconds(r.cfg.EntryTimeout))
	out.SetAttrTimeout(seconds(r.cfg.AttrTimeout))
}

func (r *FuseRaw) fillAttrOut(a memfs.Attr, out *gofuse.AttrOut) {
	fillAttr(a, &out.Attr)
	out.SetTimeout(seconds(r.cfg.AttrTimeout))
}
