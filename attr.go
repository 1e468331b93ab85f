package memfs

import "time"

// NodeID is the stable identifier of a node in the namespace arena. IDs are
// never reused within the lifetime of a tree.
type NodeID uint64

// RootID is the NodeID of the root directory. It matches the FUSE root node id
// so transports can pass it through untranslated.
const RootID NodeID = 1

// Handle is an opaque open file handle
type Handle uint64

// NodeKind valid kinds are DirKind and FileKind
type NodeKind uint8

const (
	DirKind NodeKind = iota + 1
	FileKind
)

func (k NodeKind) String() string {
	switch k {
	case DirKind:
		return "dir"
	case FileKind:
		return "file"
	default:
		return "unknown"
	}
}

// Attr is a snapshot of a node's attributes as surfaced to transports
type Attr struct {
	Ino     uint64
	Kind    NodeKind
	Mode    uint32 // kind bit | permission bits
	Size    uint64 // always 0 for directories
	Nlink   uint32 // 2 for directories, 1 for files
	Uid     uint32
	Gid     uint32
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time // creation time; never changes
	Blksize uint32
	Blocks  uint64 // number of 512-byte blocks
}

func (a Attr) IsDir() bool { return a.Kind == DirKind }

// Perm returns only the permission bits of Mode
func (a Attr) Perm() uint32 { return a.Mode & 0o7777 }

// Entry is a resolved node with its attributes
type Entry struct {
	ID   NodeID
	Name string
	Attr Attr
}

// DirEntry is one child yielded by a [Listing]
type DirEntry struct {
	ID   NodeID
	Name string
	Kind NodeKind
	Mode uint32
}

// Stats summarizes the namespace
type Stats struct {
	Nodes       int    `json:"nodes"`
	Directories int    `json:"directories"`
	Files       int    `json:"files"`
	Bytes       uint64 `json:"bytes"`
	OpenHandles int    `json:"open_handles"`
}
