package filesystem

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNewFile(t *testing.T, fs *FileSystem, p string) memfs.Handle {
	t.Helper()
	fh, _, err := fs.CreateAndOpen(p, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Release(fh) })
	return fh
}

func TestFileContent_RoundTrip(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	rng := rand.New(rand.NewPCG(1, 2))

	sizes := []int{0, 1, 7, 4096, 65537}
	for _, size := range sizes {
		b := make([]byte, size)
		for i := range b {
			b[i] = byte(rng.UintN(256))
		}
		fh := openNewFile(t, fs, fmt.Sprintf("/rt%d", size))

		n, err := fs.Write(fh, 0, b)
		require.NoError(t, err)
		assert.Equal(t, size, n)

		got, err := fs.Read(fh, 0, size)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(b, got), "size %d", size)
	}
}

func TestFileContent_ReadPastEnd(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	fh := openNewFile(t, fs, "/f")
	_, err := fs.Write(fh, 0, []byte("hello"))
	require.NoError(t, err)

	for _, n := range []int{0, 1, 5, 1 << 20} {
		data, err := fs.Read(fh, 5, n)
		require.NoError(t, err)
		assert.Empty(t, data, "n=%d", n)
		assert.NotNil(t, data)

		data, err = fs.Read(fh, 100, n)
		require.NoError(t, err)
		assert.Empty(t, data)
	}

	t.Run("short read at tail", func(t *testing.T) {
		data, err := fs.Read(fh, 3, 100)
		require.NoError(t, err)
		assert.Equal(t, []byte("lo"), data)
	})
}

func TestFileContent_GapFill(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	fh := openNewFile(t, fs, "/f")
	_, err := fs.Write(fh, 0, []byte("abc"))
	require.NoError(t, err)

	n, err := fs.Write(fh, 10, []byte("XYZ"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := fs.Read(fh, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00\x00\x00XYZ"), data)

	attr, err := fs.GetAttributes("/f")
	require.NoError(t, err)
	assert.Equal(t, uint64(13), attr.Size)
	assert.Equal(t, uint64(1), attr.Blocks)
}

func TestFileContent_GapFillAfterShrink(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	fh := openNewFile(t, fs, "/f")
	_, err := fs.Write(fh, 0, []byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, fs.Truncate("/f", 2))

	_, err = fs.Write(fh, 6, []byte("!"))
	require.NoError(t, err)

	data, err := fs.Read(fh, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("01\x00\x00\x00\x00!"), data, "stale bytes must not reappear")
}

func TestFileContent_WriteInsideDoesNotShrink(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	fh := openNewFile(t, fs, "/f")
	_, err := fs.Write(fh, 0, []byte("hello world"))
	require.NoError(t, err)

	_, err = fs.Write(fh, 0, []byte("J"))
	require.NoError(t, err)

	data, err := fs.Read(fh, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("Jello world"), data)
}

func TestFileContent_EmptyWrite(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	fh := openNewFile(t, fs, "/f")

	n, err := fs.Write(fh, 100, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	attr, err := fs.GetAttributes("/f")
	require.NoError(t, err)
	assert.Zero(t, attr.Size)
}

func TestFileContent_TruncateGrow(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	fh := openNewFile(t, fs, "/f")
	_, err := fs.Write(fh, 0, []byte("ab"))
	require.NoError(t, err)

	require.NoError(t, fs.Truncate("/f", 5))

	data, err := fs.Read(fh, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab\x00\x00\x00"), data)

	assert.ErrorIs(t, fs.Truncate("/f", -1), memfs.ErrInvalidArgument)
	assert.ErrorIs(t, fs.Truncate("/", 0), memfs.ErrNotAFile)
	assert.ErrorIs(t, fs.Truncate("/missing", 0), memfs.ErrNotFound)
}

func TestFileContent_MaxFileSize(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig(&config.ConfigOverride{MaxFileSize: util.Pointer(config.ByteSize(8))})
	fs := NewFS(cfg)
	fh := openNewFile(t, fs, "/f")
	_, err := fs.Write(fh, 0, []byte("1234"))
	require.NoError(t, err)

	_, err = fs.Write(fh, 6, []byte("abc"))
	require.ErrorIs(t, err, memfs.ErrFileTooLarge)
	assert.ErrorIs(t, fs.Truncate("/f", 9), memfs.ErrFileTooLarge)

	data, err := fs.Read(fh, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("1234"), data, "failed write must not mutate")

	_, err = fs.Write(fh, 4, []byte("5678"))
	assert.NoError(t, err, "exactly at the limit is allowed")
}

func TestFileContent_UnlimitedHasCeiling(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()
	cfg.MaxFileSize = 0
	fs := NewFS(cfg)
	fh := openNewFile(t, fs, "/f")

	_, err := fs.Write(fh, 1<<62, []byte("x"))
	assert.ErrorIs(t, err, memfs.ErrFileTooLarge)
	_, err = fs.Write(fh, maxFileSizeCeiling, []byte("x"))
	assert.ErrorIs(t, err, memfs.ErrFileTooLarge)
	assert.ErrorIs(t, fs.Truncate("/f", 1<<62), memfs.ErrFileTooLarge)

	attr, err := fs.GetAttributes("/f")
	require.NoError(t, err)
	assert.Zero(t, attr.Size)

	_, err = fs.Write(fh, 1<<20, []byte("x"))
	assert.NoError(t, err, "unlimited still allows growth below the ceiling")
}

func TestFileContent_Handles(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)

	t.Run("unknown handle", func(t *testing.T) {
		_, err := fs.Read(memfs.Handle(9999), 0, 1)
		assert.ErrorIs(t, err, memfs.ErrBadHandle)
		_, err = fs.Write(memfs.Handle(9999), 0, []byte("x"))
		assert.ErrorIs(t, err, memfs.ErrBadHandle)
	})

	t.Run("released handle", func(t *testing.T) {
		fh, _, err := fs.CreateAndOpen("/r", 0o644)
		require.NoError(t, err)
		fs.Release(fh)
		fs.Release(fh)

		_, err = fs.Read(fh, 0, 1)
		assert.ErrorIs(t, err, memfs.ErrBadHandle)
	})

	t.Run("removed file", func(t *testing.T) {
		fh, _, err := fs.CreateAndOpen("/gone", 0o644)
		require.NoError(t, err)
		defer fs.Release(fh)
		require.NoError(t, fs.Remove("/gone"))

		_, err = fs.Read(fh, 0, 1)
		assert.ErrorIs(t, err, memfs.ErrNotFound)
		_, err = fs.Write(fh, 0, []byte("x"))
		assert.ErrorIs(t, err, memfs.ErrNotFound)
	})

	t.Run("open directory", func(t *testing.T) {
		_, err := fs.Mkdir("/dir", 0o755)
		require.NoError(t, err)
		_, err = fs.Open("/dir")
		assert.ErrorIs(t, err, memfs.ErrNotAFile)
		_, err = fs.Open("/")
		assert.ErrorIs(t, err, memfs.ErrNotAFile)
		_, err = fs.Open("/nope")
		assert.ErrorIs(t, err, memfs.ErrNotFound)
	})

	t.Run("negative offset", func(t *testing.T) {
		fh := openNewFile(t, fs, "/neg")
		_, err := fs.Read(fh, -1, 1)
		assert.ErrorIs(t, err, memfs.ErrInvalidArgument)
		_, err = fs.Write(fh, -1, []byte("x"))
		assert.ErrorIs(t, err, memfs.ErrInvalidArgument)
	})
}

func TestFileContent_ReadIsACopy(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	fh := openNewFile(t, fs, "/f")
	_, err := fs.Write(fh, 0, []byte("abc"))
	require.NoError(t, err)

	data, err := fs.Read(fh, 0, 3)
	require.NoError(t, err)
	data[0] = 'z'

	again, err := fs.Read(fh, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
