// Package server mounts a namespace tree and owns its lifetime. The kernel
// transport is go-fuse by default and cgofuse with the cgofuse build tag.
package server

import (
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/metrics"
)

// MemFs contains the namespace tree with abstractions over the underlying
// FUSE wire protocol implementation
type MemFs struct {
	*filesystem.FileSystem
	cfg     *config.Config
	metrics metrics.Recorder
	unmount func() error
}

// New creates a MemFs instance given your config. rec may be nil.
func New(cfg *config.Config, rec metrics.Recorder) *MemFs {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &MemFs{
		FileSystem: filesystem.NewFS(cfg),
		cfg:        cfg,
		metrics:    rec,
	}
}

func (fs *MemFs) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- fs.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Unmount cleanly unmounts the filesystem.
func (fs *MemFs) Unmount() error {
	if fs.unmount == nil {
		return nil
	}
	return fs.unmount()
}

// Close unmounts if needed and tears the tree down
func (fs *MemFs) Close() error {
	err := fs.Unmount()
	if cerr := fs.FileSystem.Close(); err == nil {
		err = cerr
	}
	return err
}
