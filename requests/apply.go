package requests

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
)

// Target is the part of the namespace a manifest is applied to
type Target interface {
	MkdirAll(path string, perm uint32) (memfs.Entry, error)
	CreateAndOpen(path string, perm uint32) (memfs.Handle, memfs.Entry, error)
	Write(fh memfs.Handle, offset int64, data []byte) (int, error)
	Release(fh memfs.Handle)
	SetTimes(path string, atime, mtime time.Time) error
}

// ApplyResult counts the nodes a manifest created
type ApplyResult struct {
	Dirs  int
	Files int
}

// Apply creates directories first, then files. Missing ancestors are
// created like mkdir -p. A failed request is logged and skipped; all
// failures are returned joined.
func Apply(t Target, m *Manifest) (ApplyResult, error) {
	logger := util.GetLogger("Requests.Apply")
	var res ApplyResult
	var errs []error

	for _, req := range m.Dirs {
		if err := ApplyDir(t, req); err != nil {
			logger.Debug().Str("uuid", req.UUID).Str("path", req.Path).Err(err).Msg("Failed to add directory request")
			errs = append(errs, err)
			continue
		}
		res.Dirs++
	}
	for _, req := range m.Files {
		if err := ApplyFile(t, req); err != nil {
			logger.Debug().Str("uuid", req.UUID).Str("path", req.Path).Err(err).Msg("Failed to add file request")
			errs = append(errs, err)
			continue
		}
		res.Files++
	}

	logger.Info().Int("directories", res.Dirs).Int("files", res.Files).Int("failed", len(errs)).Msg("Applied manifest")
	return res, errors.Join(errs...)
}

// ApplyDir creates req.Path and its ancestors
func ApplyDir(t Target, req *memfs.DirCreateRequest) error {
	if _, err := t.MkdirAll(req.Path, req.Perms); err != nil {
		return err
	}
	return setTimes(t, &req.NodeRequest)
}

// ApplyFile creates the parent directories, then the file with its content
func ApplyFile(t Target, req *memfs.FileCreateRequest) error {
	logger := util.GetLogger("Requests.ApplyFile")

	if dir := path.Dir(req.Path); dir != "/" {
		if _, err := t.MkdirAll(dir, DefaultDirPerms); err != nil {
			return err
		}
	}
	fh, _, err := t.CreateAndOpen(req.Path, req.Perms)
	if err != nil {
		return err
	}
	defer t.Release(fh)

	if len(req.Content) > 0 {
		n, err := t.Write(fh, 0, req.Content)
		if err != nil {
			return err
		}
		if n != len(req.Content) {
			return fmt.Errorf("short write to %s: %d of %d bytes", req.Path, n, len(req.Content))
		}
	}
	logger.Trace().Str("uuid", req.UUID).Str("path", req.Path).Int("size", len(req.Content)).Msg("File created")
	return setTimes(t, &req.NodeRequest)
}

func setTimes(t Target, req *memfs.NodeRequest) error {
	if req.Atime.IsZero() && req.Mtime.IsZero() {
		return nil
	}
	return t.SetTimes(req.Path, req.Atime, req.Mtime)
}
