package requests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
)

var testNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func createTestFS() *filesystem.FileSystem {
	return filesystem.NewFS(nil, filesystem.WithClock(func() time.Time { return testNow }))
}

func readFile(t *testing.T, fs *filesystem.FileSystem, p string) []byte {
	t.Helper()
	fh, err := fs.Open(p)
	require.NoError(t, err)
	defer fs.Release(fh)
	data, err := fs.Read(fh, 0, 1<<20)
	require.NoError(t, err)
	return data
}

func TestApply(t *testing.T) {
	t.Parallel()

	m, err := ParseJSONManifest([]byte(jsonManifest))
	require.NoError(t, err)

	fs := createTestFS()
	res, err := Apply(fs, m)
	require.NoError(t, err)
	assert.Equal(t, ApplyResult{Dirs: 2, Files: 1}, res)

	assert.Equal(t, []byte("hello"), readFile(t, fs, "/home/fgk/notes.txt"))

	l, err := fs.List("/home/fgk")
	require.NoError(t, err)
	assert.Equal(t, []string{"videos", "notes.txt"}, l.Names())

	attr, err := fs.GetAttributes("/home/fgk/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o600), attr.Perm())

	tmp, err := fs.GetAttributes("/tmp")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o1777), tmp.Perm())
	assert.True(t, tmp.Atime.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Zero(t, fs.Stats().OpenHandles, "handles are released")
}

func TestApply_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	m := &Manifest{
		Dirs: []*memfs.DirCreateRequest{
			{NodeRequest: memfs.NodeRequest{Path: "relative", Perms: 0o755}},
			{NodeRequest: memfs.NodeRequest{Path: "/ok", Perms: 0o755}},
		},
		Files: []*memfs.FileCreateRequest{
			{NodeRequest: memfs.NodeRequest{Path: "/ok/f", Perms: 0o644}, Content: []byte("x")},
			{NodeRequest: memfs.NodeRequest{Path: "/ok/f/g", Perms: 0o644}},
			{NodeRequest: memfs.NodeRequest{Path: "/ok/f", Perms: 0o644}},
		},
	}

	fs := createTestFS()
	res, err := Apply(fs, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, memfs.ErrInvalidPath)
	assert.ErrorIs(t, err, memfs.ErrNotADirectory)
	assert.ErrorIs(t, err, memfs.ErrNameCollision)
	assert.Equal(t, ApplyResult{Dirs: 1, Files: 1}, res)

	assert.Equal(t, []byte("x"), readFile(t, fs, "/ok/f"))
}

func TestApplyDir_ExistingIsKept(t *testing.T) {
	t.Parallel()

	fs := createTestFS()
	req := &memfs.DirCreateRequest{NodeRequest: memfs.NodeRequest{Path: "/a/b", Perms: 0o700}}
	require.NoError(t, ApplyDir(fs, req))
	require.NoError(t, ApplyDir(fs, req), "mkdir -p is idempotent")

	attr, err := fs.GetAttributes("/a")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o700), attr.Perm(), "ancestors take the requested perms")
}
