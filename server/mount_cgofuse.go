//go:build cgofuse

package server

import (
	"errors"
	"fmt"

	"github.com/brettbedarf/memfs/cgofuse"
)

// Serve mounts the filesystem at mountPoint through cgofuse. It returns once
// the host has initialized the filesystem or the mount has failed.
func (fs *MemFs) Serve(mountPoint string) error {
	host := cgofuse.New(fs.FileSystem, fs.cfg, fs.metrics)

	failed := make(chan struct{})
	go func() {
		if !host.Mount(mountPoint) {
			close(failed)
		}
	}()

	select {
	case <-host.Ready():
	case <-failed:
		return fmt.Errorf("cgofuse: failed to mount %s", mountPoint)
	}

	fs.unmount = func() error {
		if !host.Unmount() {
			return errors.New("cgofuse: unmount failed")
		}
		return nil
	}
	return nil
}
