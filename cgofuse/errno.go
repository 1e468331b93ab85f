//go:build cgofuse

package cgofuse

import (
	"errors"

	cfuse "github.com/winfsp/cgofuse/fuse"

	"github.com/brettbedarf/memfs"
)

// ToErrno maps namespace errors to the negated errno cgofuse expects
func ToErrno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, memfs.ErrNotFound):
		return -cfuse.ENOENT
	case errors.Is(err, memfs.ErrNotADirectory):
		return -cfuse.ENOTDIR
	case errors.Is(err, memfs.ErrNotAFile):
		return -cfuse.EISDIR
	case errors.Is(err, memfs.ErrNameCollision):
		return -cfuse.EEXIST
	case errors.Is(err, memfs.ErrDirectoryNotEmpty):
		return -cfuse.ENOTEMPTY
	case errors.Is(err, memfs.ErrNameTooLong):
		return -cfuse.ENAMETOOLONG
	case errors.Is(err, memfs.ErrInvalidPath), errors.Is(err, memfs.ErrInvalidArgument):
		return -cfuse.EINVAL
	case errors.Is(err, memfs.ErrBadHandle):
		return -cfuse.EBADF
	case errors.Is(err, memfs.ErrFileTooLarge):
		return -cfuse.EFBIG
	case errors.Is(err, memfs.ErrTooManyOpen):
		return -cfuse.EMFILE
	default:
		return -cfuse.EIO
	}
}
