// Package api exposes the namespace over a small HTTP admin API
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/metrics"
)

const (
	defaultDirPerms  = 0o755
	defaultFilePerms = 0o644

	shutdownTimeout = 5 * time.Second
)

// Server serves the admin API over an Operator
type Server struct {
	ops            memfs.Operator
	metrics        metrics.Recorder
	metricsHandler http.Handler
	maxBody        int64
}

type Option func(*Server)

// WithMaxBodySize limits write request bodies to n bytes; n <= 0 disables
// the limit
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// NewServer creates the API. rec may be nil; metricsHandler may be nil, in
// which case /metrics is not routed.
func NewServer(ops memfs.Operator, rec metrics.Recorder, metricsHandler http.Handler, opts ...Option) *Server {
	if rec == nil {
		rec = metrics.Nop{}
	}
	s := &Server{
		ops:            ops,
		metrics:        rec,
		metricsHandler: metricsHandler,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	v1 := r.Group("/v1")
	{
		v1.GET("/stat/*path", s.stat)
		v1.GET("/list/*path", s.list)
		v1.POST("/dirs/*path", s.mkdir)
		v1.DELETE("/dirs/*path", s.rmdir)
		v1.GET("/files/*path", s.readFile)
		v1.PUT("/files/*path", s.writeFile)
		v1.DELETE("/files/*path", s.removeFile)
		v1.GET("/stats", s.stats)
	}

	if s.metricsHandler != nil {
		h := gin.WrapH(s.metricsHandler)
		r.GET("/metrics", func(c *gin.Context) {
			s.metrics.ObserveTree(s.ops.Stats())
			h(c)
		})
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	logger := util.GetLogger("API")
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info().Str("addr", addr).Msg("Admin API listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("admin api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin api shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info().Msg("Admin API stopped")
	return nil
}

func (s *Server) done(op string, start time.Time, size int, err error) {
	s.metrics.RecordOperation("http_"+op, time.Since(start), int64(size), err)
}

func (s *Server) stat(c *gin.Context) {
	start := time.Now()
	a, err := s.ops.GetAttributes(c.Param("path"))
	s.done("stat", start, 0, err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAttrDTO(a))
}

func (s *Server) list(c *gin.Context) {
	start := time.Now()
	l, err := s.ops.List(c.Param("path"))
	s.done("list", start, 0, err)
	if err != nil {
		abortWithError(c, err)
		return
	}

	entries := make([]DirEntryDTO, 0, l.Remaining())
	for e, ok := l.Next(); ok; e, ok = l.Next() {
		entries = append(entries, DirEntryDTO{Name: e.Name, Kind: e.Kind.String(), Ino: uint64(e.ID)})
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) mkdir(c *gin.Context) {
	p := c.Param("path")
	perm, err := permQuery(c, "mkdir", p, defaultDirPerms)
	if err != nil {
		abortWithError(c, err)
		return
	}

	start := time.Now()
	e, err := s.ops.Mkdir(p, perm)
	s.done("mkdir", start, 0, err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAttrDTO(e.Attr))
}

func (s *Server) rmdir(c *gin.Context) {
	p := c.Param("path")
	recursive, err := strconv.ParseBool(c.DefaultQuery("recursive", "false"))
	if err != nil {
		abortWithError(c, &memfs.PathError{Op: "rmdir", Path: p, Err: memfs.ErrInvalidArgument})
		return
	}

	start := time.Now()
	if recursive {
		err = s.ops.RemoveAll(p)
		s.done("removeall", start, 0, err)
	} else {
		err = s.ops.RemoveDirectory(p)
		s.done("rmdir", start, 0, err)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeFile(c *gin.Context) {
	start := time.Now()
	err := s.ops.Remove(c.Param("path"))
	s.done("unlink", start, 0, err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// readFile returns length bytes from offset, or up to the end of the file
// when length is absent
func (s *Server) readFile(c *gin.Context) {
	p := c.Param("path")
	offset, err := int64Query(c, "offset", "read", p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if offset < 0 {
		offset = 0
	}
	length, err := int64Query(c, "length", "read", p)
	if err != nil {
		abortWithError(c, err)
		return
	}

	start := time.Now()
	data, err := s.read(p, offset, length)
	s.done("read", start, len(data), err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) read(p string, offset, length int64) ([]byte, error) {
	fh, err := s.ops.Open(p)
	if err != nil {
		return nil, err
	}
	defer s.ops.Release(fh)

	if length < 0 {
		a, err := s.ops.GetAttributes(p)
		if err != nil {
			return nil, err
		}
		length = max(int64(a.Size)-offset, 0)
	}
	return s.ops.Read(fh, offset, int(length))
}

// writeFile creates p if missing and writes the body at offset. With
// ?truncate=N the body is ignored and the file is resized instead.
func (s *Server) writeFile(c *gin.Context) {
	p := c.Param("path")

	if _, ok := c.GetQuery("truncate"); ok {
		size, err := int64Query(c, "truncate", "truncate", p)
		if err == nil {
			start := time.Now()
			err = s.ops.Truncate(p, size)
			s.done("truncate", start, 0, err)
		}
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"size": size})
		return
	}

	offset, err := int64Query(c, "offset", "write", p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if offset < 0 {
		offset = 0
	}
	perm, err := permQuery(c, "write", p, defaultFilePerms)
	if err != nil {
		abortWithError(c, err)
		return
	}
	body := c.Request.Body
	if s.maxBody > 0 {
		body = http.MaxBytesReader(c.Writer, body, s.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		kind := memfs.ErrInvalidArgument
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			kind = memfs.ErrFileTooLarge
		}
		abortWithError(c, &memfs.PathError{Op: "write", Path: p, Err: kind})
		return
	}

	start := time.Now()
	n, err := s.write(p, perm, offset, data)
	s.done("write", start, n, err)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": n})
}

func (s *Server) write(p string, perm uint32, offset int64, data []byte) (int, error) {
	fh, err := s.ops.Open(p)
	if errors.Is(err, memfs.ErrNotFound) {
		fh, _, err = s.ops.CreateAndOpen(p, perm)
	}
	if err != nil {
		return 0, err
	}
	defer s.ops.Release(fh)
	return s.ops.Write(fh, offset, data)
}

func (s *Server) stats(c *gin.Context) {
	st := s.ops.Stats()
	s.metrics.ObserveTree(st)
	c.JSON(http.StatusOK, st)
}

// int64Query parses an optional integer query parameter; absent is -1
func int64Query(c *gin.Context, key, op, p string) (int64, error) {
	v, ok := c.GetQuery(key)
	if !ok {
		return -1, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, &memfs.PathError{Op: op, Path: p, Err: memfs.ErrInvalidArgument}
	}
	return n, nil
}

// permQuery parses ?mode= as octal permission bits
func permQuery(c *gin.Context, op, p string, def uint32) (uint32, error) {
	v, ok := c.GetQuery("mode")
	if !ok {
		return def, nil
	}
	perm, err := strconv.ParseUint(v, 8, 32)
	if err != nil || perm > 0o7777 {
		return 0, &memfs.PathError{Op: op, Path: p, Err: memfs.ErrInvalidArgument}
	}
	return uint32(perm), nil
}
