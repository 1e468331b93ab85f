//go:build !cgofuse

package server

import (
	mfuse "github.com/brettbedarf/memfs/fuse"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// MountOptions translates the config into go-fuse mount options
func (fs *MemFs) MountOptions() *fuse.MountOptions {
	opts := fs.cfg.MountOptions
	return &fuse.MountOptions{
		Name:     opts.Name,
		FsName:   opts.FsName,
		Debug:    opts.Debug || fs.cfg.LogLvl == util.TraceLevel,
		MaxWrite: fs.cfg.MaxWrite,
		Logger:   util.NewLogLogger("FuseServer", fs.cfg.LogLvl),
	}
}

// Serve mounts and serves the filesystem at the given mountPoint. It returns
// once the kernel has acknowledged the mount.
func (fs *MemFs) Serve(mountPoint string) error {
	raw := mfuse.NewFuseRaw(fs.FileSystem, fs.cfg, fs.metrics)
	srv, err := fuse.NewServer(raw, mountPoint, fs.MountOptions())
	if err != nil {
		return err
	}
	fs.unmount = srv.Unmount

	go srv.Serve()
	return srv.WaitMount()
}
