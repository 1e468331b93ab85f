package requests

import (
	"time"

	"github.com/brettbedarf/memfs"
)

// NodeRequestDTO is the JSON/YAML representation of [memfs.NodeRequest]
type NodeRequestDTO struct {
	Path  string                      `json:"path" yaml:"path"`
	Type  memfs.NodeCreateRequestType `json:"type" yaml:"type"`
	UUID  *string                     `json:"uuid,omitempty" yaml:"uuid,omitempty"`   // Optional id to trace the request in logs
	Atime *time.Time                  `json:"atime,omitempty" yaml:"atime,omitempty"` // Last Accessed at (Default creation time)
	Mtime *time.Time                  `json:"mtime,omitempty" yaml:"mtime,omitempty"` // Last Modified at (Default creation time)
	Perms *uint32                     `json:"perms,omitempty" yaml:"perms,omitempty"` // i.e. 0755
}

// FileRequestDTO is the JSON/YAML representation of [memfs.FileCreateRequest]
type FileRequestDTO struct {
	NodeRequestDTO `yaml:",inline"`
	Content        string         `json:"content,omitempty" yaml:"content,omitempty"`
	Source         map[string]any `json:"source,omitempty" yaml:"source,omitempty"` // i.e. {"type": "http", "url": "..."}
}

type DirRequestDTO struct {
	NodeRequestDTO `yaml:",inline"`
}
