// Package adapters resolves the initial content of manifest files from
// external sources such as HTTP endpoints
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrUnknownSource is returned by [Registry.Decode] when no factory is
// registered for the source's "type"
var ErrUnknownSource = errors.New("unknown source type")

// Source yields the content a file starts with. The caller closes the reader.
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
}

// Factory builds a Source from its raw JSON config
type Factory func(raw []byte) (Source, error)

// Registry maps source "type" keys to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register ties a factory to a "type" key, replacing any previous one
func (r *Registry) Register(sourceType string, f Factory) {
	r.mu.Lock()
	r.factories[sourceType] = f
	r.mu.Unlock()
}

// Types lists the registered keys in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Decode picks the factory based on the "type" field of raw and builds the
// Source with it
func (r *Registry) Decode(raw []byte) (Source, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	r.mu.RLock()
	f, ok := r.factories[meta.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, meta.Type)
	}
	return f(raw)
}
