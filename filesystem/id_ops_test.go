package filesystem

import (
	"testing"
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystem_IDOps(t *testing.T) {
	t.Parallel()

	fs, clock := createTestFS(t)

	dir, err := fs.CreateDirectoryAt(memfs.RootID, "d", 0o755)
	require.NoError(t, err)
	file, err := fs.CreateFileAt(dir.ID, "f", 0o600)
	require.NoError(t, err)

	t.Run("LookupChild", func(t *testing.T) {
		e, err := fs.LookupChild(dir.ID, "f")
		require.NoError(t, err)
		assert.Equal(t, file.ID, e.ID)

		_, err = fs.LookupChild(dir.ID, "nope")
		assert.ErrorIs(t, err, memfs.ErrNotFound)
		_, err = fs.LookupChild(file.ID, "x")
		assert.ErrorIs(t, err, memfs.ErrNotADirectory)
		_, err = fs.LookupChild(12345, "x")
		assert.ErrorIs(t, err, memfs.ErrNotFound)
		_, err = fs.LookupChild(dir.ID, "..")
		assert.ErrorIs(t, err, memfs.ErrInvalidPath)
	})

	t.Run("Parent", func(t *testing.T) {
		p, err := fs.Parent(file.ID)
		require.NoError(t, err)
		assert.Equal(t, dir.ID, p)
		p, err = fs.Parent(memfs.RootID)
		require.NoError(t, err)
		assert.Equal(t, memfs.RootID, p)
		_, err = fs.Parent(12345)
		assert.ErrorIs(t, err, memfs.ErrNotFound)
	})

	t.Run("ListAt", func(t *testing.T) {
		l, err := fs.ListAt(dir.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"f"}, l.Names())
		_, err = fs.ListAt(file.ID)
		assert.ErrorIs(t, err, memfs.ErrNotADirectory)
		_, err = fs.ListAt(12345)
		assert.ErrorIs(t, err, memfs.ErrNotFound)
	})

	t.Run("ReadWriteAt", func(t *testing.T) {
		n, err := fs.WriteAt(file.ID, 2, []byte("yo"))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		data, err := fs.ReadAt(file.ID, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []byte("\x00\x00yo"), data)

		_, err = fs.ReadAt(dir.ID, 0, 1)
		assert.ErrorIs(t, err, memfs.ErrNotAFile)
		_, err = fs.WriteAt(dir.ID, 0, []byte("x"))
		assert.ErrorIs(t, err, memfs.ErrNotAFile)
	})

	t.Run("SetAttr", func(t *testing.T) {
		clock.Advance(time.Hour)
		mtime := clock.Now().Add(-time.Minute)
		attr, err := fs.SetAttr(file.ID, SetAttrRequest{
			Size:  util.Pointer(uint64(1)),
			Mode:  util.Pointer(uint32(0o640)),
			Mtime: &mtime,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), attr.Size)
		assert.Equal(t, uint32(0o640), attr.Perm())
		assert.True(t, attr.Mtime.Equal(mtime))

		_, err = fs.SetAttr(dir.ID, SetAttrRequest{Size: util.Pointer(uint64(0))})
		assert.ErrorIs(t, err, memfs.ErrNotAFile)
		_, err = fs.SetAttr(12345, SetAttrRequest{})
		assert.ErrorIs(t, err, memfs.ErrNotFound)
	})

	t.Run("OpenAt", func(t *testing.T) {
		fh, err := fs.OpenAt(file.ID)
		require.NoError(t, err)
		defer fs.Release(fh)
		id, ok := fs.handleNode(fh)
		assert.True(t, ok)
		assert.Equal(t, file.ID, id)

		_, err = fs.OpenAt(dir.ID)
		assert.ErrorIs(t, err, memfs.ErrNotAFile)
	})

	t.Run("CreateAndOpenAt", func(t *testing.T) {
		fh, e, err := fs.CreateAndOpenAt(dir.ID, "g", 0o644)
		require.NoError(t, err)
		defer fs.Release(fh)
		assert.Equal(t, "g", e.Name)

		_, _, err = fs.CreateAndOpenAt(dir.ID, "g", 0o644)
		assert.ErrorIs(t, err, memfs.ErrNameCollision)
	})

	t.Run("RemoveAt", func(t *testing.T) {
		assert.ErrorIs(t, fs.RemoveAt(memfs.RootID, "d"), memfs.ErrNotAFile)
		assert.ErrorIs(t, fs.RemoveDirectoryAt(memfs.RootID, "d"), memfs.ErrDirectoryNotEmpty)
		assert.ErrorIs(t, fs.RemoveDirectoryAt(dir.ID, "f"), memfs.ErrNotADirectory)

		require.NoError(t, fs.RemoveAt(dir.ID, "f"))
		require.NoError(t, fs.RemoveAt(dir.ID, "g"))
		require.NoError(t, fs.RemoveDirectoryAt(memfs.RootID, "d"))

		_, err := fs.GetAttr(dir.ID)
		assert.ErrorIs(t, err, memfs.ErrNotFound)
		assert.ErrorIs(t, fs.RemoveAt(memfs.RootID, "d"), memfs.ErrNotFound)
	})
}
