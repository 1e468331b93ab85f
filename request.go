package memfs

import "time"

// NodeRequest has common fields embedded in concrete request types
type NodeRequest struct {
	Path  string
	Type  NodeCreateRequestType
	UUID  string    // Identifies the request in logs
	Perms uint32    // i.e. 0755
	Atime time.Time // Last Accessed at; zero keeps creation time
	Mtime time.Time // Last Modified at; zero keeps creation time
}

// NodeCreateRequestType valid types are FileNodeType "file", DirNodeType "dir"
type NodeCreateRequestType string

const (
	FileNodeType NodeCreateRequestType = "file"
	DirNodeType  NodeCreateRequestType = "dir"
)

type FileCreateRequest struct {
	NodeRequest
	Content []byte
	Source  []byte // Raw JSON source config; when set it is fetched into Content before applying
}

type DirCreateRequest struct {
	NodeRequest
}
