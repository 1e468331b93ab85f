package requests

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/brettbedarf/memfs/adapters"
	"github.com/brettbedarf/memfs/internal/util"
)

// ResolveSources fetches the content of every file request that names a
// source, replacing any inline content. Requests whose source cannot be
// fetched are dropped from m and their errors returned joined.
func (m *Manifest) ResolveSources(ctx context.Context, reg *adapters.Registry) error {
	logger := util.GetLogger("Requests.ResolveSources")
	var errs []error

	kept := m.Files[:0]
	for _, req := range m.Files {
		if len(req.Source) == 0 {
			kept = append(kept, req)
			continue
		}
		data, err := fetch(ctx, reg, req.Source)
		if err != nil {
			logger.Debug().Str("uuid", req.UUID).Str("path", req.Path).Err(err).Msg("Failed to fetch file source")
			errs = append(errs, fmt.Errorf("source of %s: %w", req.Path, err))
			continue
		}
		logger.Trace().Str("uuid", req.UUID).Str("path", req.Path).Int("size", len(data)).Msg("Fetched file source")
		req.Content = data
		kept = append(kept, req)
	}
	clear(m.Files[len(kept):])
	m.Files = kept

	return errors.Join(errs...)
}

func fetch(ctx context.Context, reg *adapters.Registry, raw []byte) ([]byte, error) {
	src, err := reg.Decode(raw)
	if err != nil {
		return nil, err
	}
	rc, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close() // nolint:errcheck
	return io.ReadAll(rc)
}
