package filesystem

import "syscall"

type SysAttrType uint32

const (
	DirAttr  SysAttrType = syscall.S_IFDIR
	FileAttr SysAttrType = syscall.S_IFREG
)

const (
	blockSize = 4096 // preferred size for fs ops
	maxName   = 255

	// maxFileSizeCeiling bounds file sizes when MaxFileSize is 0 (unlimited)
	maxFileSizeCeiling = 1 << 40
)
