package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brettbedarf/memfs"
)

// HTTPStatus maps namespace errors to response codes
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, memfs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, memfs.ErrNameCollision), errors.Is(err, memfs.ErrDirectoryNotEmpty):
		return http.StatusConflict
	case errors.Is(err, memfs.ErrInvalidPath), errors.Is(err, memfs.ErrInvalidArgument),
		errors.Is(err, memfs.ErrNotADirectory), errors.Is(err, memfs.ErrNotAFile):
		return http.StatusBadRequest
	case errors.Is(err, memfs.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	c.Error(err) // nolint:errcheck
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
