package requests

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/memfs"
)

const jsonManifest = `[
	{"type": "dir", "path": "/home/fgk/videos", "uuid": "dir-1"},
	{"type": "file", "path": "/home/fgk/notes.txt", "content": "hello", "perms": 384},
	{"type": "dir", "path": "/tmp", "perms": 1023, "atime": "2024-01-02T03:04:05Z"}
]`

const yamlManifest = `
- type: dir
  path: /home/lassan
- type: file
  path: /home/lassan/todo.md
  content: |
    buy milk
  uuid: file-1
  perms: 384
`

func TestGetNodeType(t *testing.T) {
	t.Parallel()

	typ, err := GetNodeType([]byte(`{"type":"file","path":"/a"}`))
	require.NoError(t, err)
	assert.Equal(t, memfs.FileNodeType, typ)

	_, err = GetNodeType([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseJSONManifest(t *testing.T) {
	t.Parallel()

	m, err := ParseJSONManifest([]byte(jsonManifest))
	require.NoError(t, err)
	require.Len(t, m.Dirs, 2)
	require.Len(t, m.Files, 1)
	assert.Equal(t, 3, m.Len())

	videos := m.Dirs[0]
	assert.Equal(t, "/home/fgk/videos", videos.Path)
	assert.Equal(t, memfs.DirNodeType, videos.Type)
	assert.Equal(t, "dir-1", videos.UUID)
	assert.Equal(t, uint32(DefaultDirPerms), videos.Perms)
	assert.True(t, videos.Atime.IsZero())

	tmp := m.Dirs[1]
	assert.Equal(t, uint32(0o1777), tmp.Perms)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), tmp.Atime.UTC())

	notes := m.Files[0]
	assert.Equal(t, []byte("hello"), notes.Content)
	assert.Equal(t, uint32(0o600), notes.Perms)
	_, err = uuid.Parse(notes.UUID)
	assert.NoError(t, err, "missing uuid defaults to a random one")
}

func TestParseYAMLManifest(t *testing.T) {
	t.Parallel()

	m, err := ParseYAMLManifest([]byte(yamlManifest))
	require.NoError(t, err)
	require.Len(t, m.Dirs, 1)
	require.Len(t, m.Files, 1)

	assert.Equal(t, "/home/lassan", m.Dirs[0].Path)
	assert.Equal(t, uint32(DefaultDirPerms), m.Dirs[0].Perms)

	todo := m.Files[0]
	assert.Equal(t, "file-1", todo.UUID)
	assert.Equal(t, []byte("buy milk\n"), todo.Content)
	assert.Equal(t, uint32(0o600), todo.Perms)
}

func TestParseManifest_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		parse func([]byte) (*Manifest, error)
		data  string
		want  string
	}{
		{"json not array", ParseJSONManifest, `{"type":"dir"}`, "failed to unmarshal manifest"},
		{"json unknown type", ParseJSONManifest, `[{"type":"link","path":"/l"}]`, `manifest entry 0: unknown node type "link"`},
		{"json bad field", ParseJSONManifest, `[{"type":"file","path":3}]`, "manifest entry 0"},
		{"yaml unknown type", ParseYAMLManifest, "- type: socket\n  path: /s\n", `unknown node type "socket"`},
		{"yaml malformed", ParseYAMLManifest, "- [", "failed to unmarshal manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
		return p
	}

	m, err := LoadManifest(write("nodes.json", jsonManifest))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	m, err = LoadManifest(write("nodes.YML", yamlManifest))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, err = LoadManifest(write("nodes.toml", ""))
	assert.ErrorContains(t, err, "unknown manifest file extension")

	_, err = LoadManifest(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
