package filesystem

import (
	"slices"

	"github.com/brettbedarf/memfs"
)

// NodeData is the kind specific payload of a [Node]: either *Dir or *File.
// The set of kinds is closed; callers type switch on it.
type NodeData interface {
	kind() memfs.NodeKind
}

// Dir holds child ids in insertion order, directories and files kept apart
// so listings yield directories first
type Dir struct {
	dirs  []memfs.NodeID
	files []memfs.NodeID
	index map[string]memfs.NodeID // name -> child of either kind
}

func newDir() *Dir {
	return &Dir{index: make(map[string]memfs.NodeID)}
}

func (*Dir) kind() memfs.NodeKind { return memfs.DirKind }

// Len is the number of children of both kinds
func (d *Dir) Len() int { return len(d.index) }

func (d *Dir) child(name string) (memfs.NodeID, bool) {
	id, ok := d.index[name]
	return id, ok
}

func (d *Dir) add(name string, id memfs.NodeID, k memfs.NodeKind) {
	d.index[name] = id
	if k == memfs.DirKind {
		d.dirs = append(d.dirs, id)
	} else {
		d.files = append(d.files, id)
	}
}

// remove detaches name keeping the relative order of the remaining siblings
func (d *Dir) remove(name string) {
	id, ok := d.index[name]
	if !ok {
		return
	}
	delete(d.index, name)
	if i := slices.Index(d.dirs, id); i >= 0 {
		d.dirs = slices.Delete(d.dirs, i, i+1)
		return
	}
	if i := slices.Index(d.files, id); i >= 0 {
		d.files = slices.Delete(d.files, i, i+1)
	}
}

// children returns a new slice of all child ids, directories first
func (d *Dir) children() []memfs.NodeID {
	ids := make([]memfs.NodeID, 0, len(d.index))
	ids = append(ids, d.dirs...)
	return append(ids, d.files...)
}

// File owns the content buffer. len(buf) is the file size.
type File struct {
	buf []byte
}

func (*File) kind() memfs.NodeKind { return memfs.FileKind }

// Size is the logical file length in bytes
func (f *File) Size() int { return len(f.buf) }

// Node is one entry of the namespace arena. Nodes reference their parent by
// id only; the root's parent is 0.
type Node struct {
	id     memfs.NodeID
	parent memfs.NodeID
	name   string
	data   NodeData
	meta   metadata
}

func (n *Node) ID() memfs.NodeID     { return n.id }
func (n *Node) Parent() memfs.NodeID { return n.parent }
func (n *Node) Name() string         { return n.name }
func (n *Node) Data() NodeData       { return n.data }
func (n *Node) Kind() memfs.NodeKind { return n.data.kind() }

func (n *Node) IsDir() bool {
	_, ok := n.data.(*Dir)
	return ok
}

func (n *Node) size() uint64 {
	if f, ok := n.data.(*File); ok {
		return uint64(len(f.buf))
	}
	return 0
}

// attr snapshots the node's attributes. Caller must hold at least the tree
// read lock.
func (n *Node) attr() memfs.Attr {
	a := memfs.Attr{
		Ino:     uint64(n.id),
		Kind:    n.Kind(),
		Size:    n.size(),
		Uid:     n.meta.uid,
		Gid:     n.meta.gid,
		Atime:   n.meta.Atime(),
		Mtime:   n.meta.mtime,
		Ctime:   n.meta.created,
		Blksize: blockSize,
	}
	switch n.data.(type) {
	case *Dir:
		a.Mode = uint32(DirAttr) | n.meta.mode
		a.Nlink = 2
	case *File:
		a.Mode = uint32(FileAttr) | n.meta.mode
		a.Nlink = 1
	}
	a.Blocks = (a.Size + 511) / 512
	return a
}

func (n *Node) entry() memfs.Entry {
	return memfs.Entry{ID: n.id, Name: n.name, Attr: n.attr()}
}

func (n *Node) dirEntry() memfs.DirEntry {
	a := n.attr()
	return memfs.DirEntry{ID: n.id, Name: n.name, Kind: a.Kind, Mode: a.Mode}
}
