package requests

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/memfs"
)

// Manifest is a parsed list of nodes to create at startup
type Manifest struct {
	Dirs  []*memfs.DirCreateRequest
	Files []*memfs.FileCreateRequest
}

// Len is the total number of requests
func (m *Manifest) Len() int {
	return len(m.Dirs) + len(m.Files)
}

// LoadManifest reads a JSON (.json) or YAML (.yaml, .yml) manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSONManifest(data)
	case ".yaml", ".yml":
		return ParseYAMLManifest(data)
	default:
		return nil, fmt.Errorf("unknown manifest file extension: %s", path)
	}
}

// ParseJSONManifest parses a JSON array of node requests
func ParseJSONManifest(data []byte) (*Manifest, error) {
	var rawNodes []json.RawMessage
	if err := json.Unmarshal(data, &rawNodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	m := &Manifest{}
	for i, rawNode := range rawNodes {
		nodeType, err := GetNodeType(rawNode)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}

		switch nodeType {
		case memfs.FileNodeType:
			req, err := UnmarshalFileRequest(rawNode)
			if err != nil {
				return nil, fmt.Errorf("manifest entry %d: %w", i, err)
			}
			m.Files = append(m.Files, req)
		case memfs.DirNodeType:
			req, err := UnmarshalDirRequest(rawNode)
			if err != nil {
				return nil, fmt.Errorf("manifest entry %d: %w", i, err)
			}
			m.Dirs = append(m.Dirs, req)
		default:
			return nil, fmt.Errorf("manifest entry %d: unknown node type %q", i, nodeType)
		}
	}
	return m, nil
}

// ParseYAMLManifest parses a YAML sequence of node requests
func ParseYAMLManifest(data []byte) (*Manifest, error) {
	var dtos []FileRequestDTO
	if err := yaml.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	m := &Manifest{}
	for i, dto := range dtos {
		switch dto.Type {
		case memfs.FileNodeType:
			req, err := convertFileDTO(dto)
			if err != nil {
				return nil, fmt.Errorf("manifest entry %d: %w", i, err)
			}
			m.Files = append(m.Files, req)
		case memfs.DirNodeType:
			m.Dirs = append(m.Dirs, convertDirDTO(DirRequestDTO{dto.NodeRequestDTO}))
		default:
			return nil, fmt.Errorf("manifest entry %d: unknown node type %q", i, dto.Type)
		}
	}
	return m, nil
}
