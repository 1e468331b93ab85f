package requests

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brettbedarf/memfs"
)

const (
	DefaultFilePerms = 0o644
	DefaultDirPerms  = 0o755
)

// GetNodeType extracts the node type from JSON without full unmarshaling
func GetNodeType(data []byte) (memfs.NodeCreateRequestType, error) {
	var meta struct {
		Type memfs.NodeCreateRequestType `json:"type"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	return meta.Type, nil
}

// UnmarshalFileRequest handles file-specific unmarshaling
func UnmarshalFileRequest(data []byte) (*memfs.FileCreateRequest, error) {
	var dto FileRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	return convertFileDTO(dto)
}

// UnmarshalDirRequest handles explicit directory unmarshaling
func UnmarshalDirRequest(data []byte) (*memfs.DirCreateRequest, error) {
	var dto DirRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	return convertDirDTO(dto), nil
}

func convertFileDTO(dto FileRequestDTO) (*memfs.FileCreateRequest, error) {
	req := &memfs.FileCreateRequest{
		NodeRequest: convertNodeDTO(dto.NodeRequestDTO, DefaultFilePerms),
		Content:     []byte(dto.Content),
	}
	if dto.Source != nil {
		// Sources are decoded from JSON whatever the manifest format
		raw, err := json.Marshal(dto.Source)
		if err != nil {
			return nil, fmt.Errorf("source of %s: %w", dto.Path, err)
		}
		req.Source = raw
	}
	return req, nil
}

func convertDirDTO(dto DirRequestDTO) *memfs.DirCreateRequest {
	return &memfs.DirCreateRequest{
		NodeRequest: convertNodeDTO(dto.NodeRequestDTO, DefaultDirPerms),
	}
}

// Conversion logic with defaults in the unmarshaling layer
func convertNodeDTO(dto NodeRequestDTO, perms uint32) memfs.NodeRequest {
	return memfs.NodeRequest{
		Path:  dto.Path,
		Type:  dto.Type,
		UUID:  valueOrDefault(dto.UUID, uuid.New().String()),
		Perms: valueOrDefault(dto.Perms, perms) & 0o7777,
		Atime: valueOrDefault(dto.Atime, time.Time{}),
		Mtime: valueOrDefault(dto.Mtime, time.Time{}),
	}
}

func valueOrDefault[T any](ptr *T, defaultVal T) T {
	if ptr != nil {
		return *ptr
	}
	return defaultVal
}
