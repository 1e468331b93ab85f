package api

import (
	"fmt"
	"time"

	"github.com/brettbedarf/memfs"
)

// AttrDTO is the JSON representation of [memfs.Attr]
type AttrDTO struct {
	Ino    uint64    `json:"ino"`
	Kind   string    `json:"kind"`
	Mode   string    `json:"mode"` // octal permission bits, i.e. "0755"
	Size   uint64    `json:"size"`
	Nlink  uint32    `json:"nlink"`
	Uid    uint32    `json:"uid"`
	Gid    uint32    `json:"gid"`
	Blocks uint64    `json:"blocks"`
	Atime  time.Time `json:"atime"`
	Mtime  time.Time `json:"mtime"`
	Ctime  time.Time `json:"ctime"`
}

func newAttrDTO(a memfs.Attr) AttrDTO {
	return AttrDTO{
		Ino:    a.Ino,
		Kind:   a.Kind.String(),
		Mode:   fmt.Sprintf("%04o", a.Perm()),
		Size:   a.Size,
		Nlink:  a.Nlink,
		Uid:    a.Uid,
		Gid:    a.Gid,
		Blocks: a.Blocks,
		Atime:  a.Atime,
		Mtime:  a.Mtime,
		Ctime:  a.Ctime,
	}
}

// DirEntryDTO is one element of a listing response
type DirEntryDTO struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Ino  uint64 `json:"ino"`
}
