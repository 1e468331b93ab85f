package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/mocks"
	"github.com/brettbedarf/memfs/metrics"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func createTestAPI(t *testing.T) (*gin.Engine, *filesystem.FileSystem) {
	t.Helper()
	fs := filesystem.NewFS(nil)
	return NewServer(fs, nil, nil).Router(), fs
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAPI_WriteBodyLimit(t *testing.T) {
	t.Parallel()

	fs := filesystem.NewFS(nil)
	r := NewServer(fs, nil, nil, WithMaxBodySize(4)).Router()

	w := do(r, http.MethodPut, "/v1/files/big", "0123456789")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	_, err := fs.Lookup("/big")
	assert.ErrorIs(t, err, memfs.ErrNotFound, "rejected body creates nothing")

	w = do(r, http.MethodPut, "/v1/files/small", "0123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode[map[string]any](t, w)["written"])
}

func TestAPI_HelloScenario(t *testing.T) {
	t.Parallel()

	r, _ := createTestAPI(t)

	w := do(r, http.MethodPost, "/v1/dirs/a", "")
	require.Equal(t, http.StatusCreated, w.Code)
	dir := decode[AttrDTO](t, w)
	assert.Equal(t, "dir", dir.Kind)
	assert.Equal(t, "0755", dir.Mode)
	assert.Equal(t, uint32(2), dir.Nlink)

	w = do(r, http.MethodPut, "/v1/files/a/b.txt", "hello")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decode[map[string]int](t, w)["written"])

	w = do(r, http.MethodGet, "/v1/files/a/b.txt", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))

	w = do(r, http.MethodGet, "/v1/files/a/b.txt?offset=1&length=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ell", w.Body.String())

	w = do(r, http.MethodPut, "/v1/files/a/b.txt?truncate=2", "ignored")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/v1/stat/a/b.txt", "")
	require.Equal(t, http.StatusOK, w.Code)
	attr := decode[AttrDTO](t, w)
	assert.Equal(t, uint64(2), attr.Size)
	assert.Equal(t, "file", attr.Kind)
	assert.Equal(t, "0644", attr.Mode)

	w = do(r, http.MethodGet, "/v1/files/a/b.txt", "")
	assert.Equal(t, "he", w.Body.String())
}

func TestAPI_WriteAtOffset(t *testing.T) {
	t.Parallel()

	r, fs := createTestAPI(t)

	w := do(r, http.MethodPut, "/v1/files/f?mode=600", "ab")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodPut, "/v1/files/f?offset=4", "yz")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/v1/files/f", "")
	assert.Equal(t, "ab\x00\x00yz", w.Body.String())

	attr, err := fs.GetAttributes("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o600), attr.Perm(), "mode only applies on create")
	assert.Zero(t, fs.Stats().OpenHandles, "handles are released")
}

func TestAPI_List(t *testing.T) {
	t.Parallel()

	r, fs := createTestAPI(t)
	_, err := fs.Mkdir("/d", 0o755)
	require.NoError(t, err)
	_, _, err = fs.CreateAndOpen("/f", 0o644)
	require.NoError(t, err)
	_, err = fs.Mkdir("/e", 0o755)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/v1/list/", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]DirEntryDTO](t, w)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name + ":" + e.Kind
	}
	assert.Equal(t, []string{"d:dir", "e:dir", "f:file"}, names)

	w = do(r, http.MethodGet, "/v1/list/empty", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_Delete(t *testing.T) {
	t.Parallel()

	r, fs := createTestAPI(t)
	_, err := fs.MkdirAll("/a/b/c", 0o755)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, do(r, http.MethodPut, "/v1/files/a/f", "x").Code)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/v1/files/a", "").Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/v1/dirs/a", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/v1/dirs/a?recursive=maybe", "").Code)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/v1/files/a/f", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/v1/dirs/a?recursive=true", "").Code)

	_, err = fs.Lookup("/a")
	assert.ErrorIs(t, err, memfs.ErrNotFound)
	assert.Equal(t, 1, fs.Stats().Nodes)
}

func TestAPI_Errors(t *testing.T) {
	t.Parallel()

	r, fs := createTestAPI(t)
	_, err := fs.Mkdir("/d", 0o755)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"stat missing", http.MethodGet, "/v1/stat/missing", "", http.StatusNotFound},
		{"mkdir collision", http.MethodPost, "/v1/dirs/d", "", http.StatusConflict},
		{"mkdir missing parent", http.MethodPost, "/v1/dirs/x/y", "", http.StatusNotFound},
		{"mkdir bad mode", http.MethodPost, "/v1/dirs/m?mode=9", "", http.StatusBadRequest},
		{"mkdir root", http.MethodPost, "/v1/dirs/", "", http.StatusBadRequest},
		{"write to dir", http.MethodPut, "/v1/files/d", "x", http.StatusBadRequest},
		{"write bad offset", http.MethodPut, "/v1/files/f?offset=-3", "x", http.StatusBadRequest},
		{"truncate bad size", http.MethodPut, "/v1/files/f?truncate=abc", "", http.StatusBadRequest},
		{"truncate missing", http.MethodPut, "/v1/files/f?truncate=1", "", http.StatusNotFound},
		{"read dir", http.MethodGet, "/v1/files/d", "", http.StatusBadRequest},
		{"read missing", http.MethodGet, "/v1/files/nope", "", http.StatusNotFound},
		{"rmdir missing", http.MethodDelete, "/v1/dirs/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}
}

func TestAPI_InternalErrorIsHidden(t *testing.T) {
	t.Parallel()

	ops := &mocks.MockOperator{}
	ops.On("GetAttributes", "/x").Return(memfs.Attr{}, errors.New("secret detail"))
	rec := &mocks.MockRecorder{}
	rec.On("RecordOperation", "http_stat", mock.Anything, int64(0), mock.Anything).Return()

	r := NewServer(ops, rec, nil).Router()
	w := do(r, http.MethodGet, "/v1/stat/x", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	ops.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestAPI_Stats(t *testing.T) {
	t.Parallel()

	ops := &mocks.MockOperator{}
	st := memfs.Stats{Nodes: 3, Directories: 2, Files: 1, Bytes: 10}
	ops.On("Stats").Return(st)
	rec := &mocks.MockRecorder{}
	rec.On("ObserveTree", st).Return()

	r := NewServer(ops, rec, nil).Router()
	w := do(r, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, st, decode[memfs.Stats](t, w))
	rec.AssertExpectations(t)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/metrics", "").Code, "no metrics handler")
}

func TestAPI_Metrics(t *testing.T) {
	t.Parallel()

	collector, err := metrics.NewCollector("memfs")
	require.NoError(t, err)
	fs := filesystem.NewFS(nil)
	r := NewServer(fs, collector, collector.Handler()).Router()

	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/v1/dirs/a", "").Code)
	require.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/stat/nope", "").Code)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `memfs_nodes{kind="dir"} 2`)
	assert.Contains(t, body, `memfs_operations_total{operation="http_mkdir",status="success"} 1`)
	assert.Contains(t, body, `memfs_errors_total{operation="http_stat",type="not_found"} 1`)
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{memfs.ErrNotFound, http.StatusNotFound},
		{memfs.ErrNameCollision, http.StatusConflict},
		{memfs.ErrDirectoryNotEmpty, http.StatusConflict},
		{memfs.ErrInvalidPath, http.StatusBadRequest},
		{memfs.ErrInvalidArgument, http.StatusBadRequest},
		{memfs.ErrNotADirectory, http.StatusBadRequest},
		{memfs.ErrNotAFile, http.StatusBadRequest},
		{memfs.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{&memfs.PathError{Op: "rmdir", Path: "/a", Err: memfs.ErrDirectoryNotEmpty}, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
