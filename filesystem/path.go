package filesystem

import (
	"strings"

	"github.com/brettbedarf/memfs"
)

// SplitPath splits an absolute path into its segments. Empty segments from
// leading, trailing or repeated slashes are dropped, so "/" yields none.
func SplitPath(p string) ([]string, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, memfs.ErrInvalidPath
	}
	segs := make([]string, 0, strings.Count(p, "/"))
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "" {
			continue
		}
		if err := validName(seg); err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// SplitParent splits p into the segments of its parent directory and the
// final name. The root has no name and is rejected.
func SplitParent(p string) (parent []string, name string, err error) {
	segs, err := SplitPath(p)
	if err != nil {
		return nil, "", err
	}
	if len(segs) == 0 {
		return nil, "", memfs.ErrInvalidPath
	}
	return segs[:len(segs)-1], segs[len(segs)-1], nil
}

func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return memfs.ErrInvalidPath
	case len(name) > maxName:
		return memfs.ErrNameTooLong
	case strings.ContainsAny(name, "/\x00"):
		return memfs.ErrInvalidPath
	}
	return nil
}

// resolveLocked walks segs from the root. Every segment but the last must
// name a directory; the last may name either kind.
// Caller must hold fs.mu.
func (fs *FileSystem) resolveLocked(segs []string) (*Node, error) {
	cur := fs.nodes[memfs.RootID]
	for i, name := range segs {
		dir, ok := cur.data.(*Dir)
		if !ok {
			return nil, memfs.ErrNotADirectory
		}
		id, ok := dir.child(name)
		if !ok {
			return nil, memfs.ErrNotFound
		}
		cur = fs.nodes[id]
		if i < len(segs)-1 && !cur.IsDir() {
			return nil, memfs.ErrNotADirectory
		}
	}
	return cur, nil
}

// resolvePathLocked parses and resolves p. Caller must hold fs.mu.
func (fs *FileSystem) resolvePathLocked(p string) (*Node, error) {
	segs, err := SplitPath(p)
	if err != nil {
		return nil, err
	}
	return fs.resolveLocked(segs)
}

// resolveDirLocked resolves segs to a directory. Caller must hold fs.mu.
func (fs *FileSystem) resolveDirLocked(segs []string) (*Node, error) {
	n, err := fs.resolveLocked(segs)
	if err != nil {
		return nil, err
	}
	if !n.IsDir() {
		return nil, memfs.ErrNotADirectory
	}
	return n, nil
}

// pathOfLocked rebuilds the absolute path of id for error messages.
// Caller must hold fs.mu.
func (fs *FileSystem) pathOfLocked(id memfs.NodeID) string {
	var segs []string
	for id != memfs.RootID {
		n, ok := fs.nodes[id]
		if !ok {
			return idPath(id)
		}
		segs = append(segs, n.name)
		id = n.parent
	}
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segs[i])
	}
	return b.String()
}

// childPathLocked is pathOfLocked(parent) joined with name
func (fs *FileSystem) childPathLocked(parent memfs.NodeID, name string) string {
	p := fs.pathOfLocked(parent)
	if p == "/" {
		return "/" + name
	}
	return p + "/" + name
}
