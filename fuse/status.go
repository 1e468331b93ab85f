package fuse

import (
	"errors"
	"syscall"

	"github.com/brettbedarf/memfs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"
)

// ToStatus maps namespace errors to the status returned to the kernel
func ToStatus(err error) gofuse.Status {
	switch {
	case err == nil:
		return gofuse.OK
	case errors.Is(err, memfs.ErrNotFound):
		return gofuse.ENOENT
	case errors.Is(err, memfs.ErrNotADirectory):
		return gofuse.ENOTDIR
	case errors.Is(err, memfs.ErrNotAFile):
		return gofuse.EISDIR
	case errors.Is(err, memfs.ErrNameCollision):
		return gofuse.Status(syscall.EEXIST)
	case errors.Is(err, memfs.ErrDirectoryNotEmpty):
		return gofuse.Status(syscall.ENOTEMPTY)
	case errors.Is(err, memfs.ErrNameTooLong):
		return gofuse.Status(syscall.ENAMETOOLONG)
	case errors.Is(err, memfs.ErrInvalidPath), errors.Is(err, memfs.ErrInvalidArgument):
		return gofuse.EINVAL
	case errors.Is(err, memfs.ErrBadHandle):
		return gofuse.EBADF
	case errors.Is(err, memfs.ErrFileTooLarge):
		return gofuse.Status(syscall.EFBIG)
	case errors.Is(err, memfs.ErrTooManyOpen):
		return gofuse.Status(syscall.EMFILE)
	default:
		return gofuse.EIO
	}
}
