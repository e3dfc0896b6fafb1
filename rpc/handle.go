package rpc

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ridoystarlord/rapidgen/logger"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

// usageErrors are returned by the model client for malformed arguments.
var usageErrors = []error{
	sqlite.ErrNoValues,
	sqlite.ErrColumnsMismatch,
	sqlite.ErrInvalidOrderBy,
	sqlite.ErrInvalidSortOrder,
}

// IsUsageError reports whether err was caused by the caller's arguments
// rather than by the database.
func IsUsageError(err error) bool {
	for _, target := range usageErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Handle adapts a client method to a gin handler. The JSON body decodes into
// the method's argument struct; an empty body is the zero value.
func Handle[A any, R any](fn func(context.Context, A) (R, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var args A
		if err := c.ShouldBindJSON(&args); err != nil && !errors.Is(err, io.EOF) {
			Fail(c, http.StatusBadRequest, err, "Invalid request body")
			return
		}

		result, err := fn(c.Request.Context(), args)
		switch {
		case err == nil:
			Success(c, http.StatusOK, result, "")
		case IsUsageError(err):
			Fail(c, http.StatusBadRequest, err, "Invalid arguments")
		default:
			logger.L().ErrorWith("operation failed", err, map[string]any{"route": c.FullPath()})
			Fail(c, http.StatusInternalServerError, err, "Operation failed")
		}
	}
}
