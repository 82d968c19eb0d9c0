package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// respondError writes the response for an error returned by a service
func respondError(c *gin.Context, err error) {
	if errs, ok := validation.AsErrors(err); ok {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	var relErr *service.RelationError
	switch {
	case errors.As(err, &relErr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": relErr.Message})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Unable to log in with provided credentials."}})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	default:
		logging.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
	}
}

// maxBodySize leaves room for a base64 encoded image of the largest accepted size
var maxBodySize = int64(base64.StdEncoding.EncodedLen(service.MaxImageSize)) + 64<<10

// bindJSON decodes the request body into req and answers 400 when it is malformed
func bindJSON(c *gin.Context, req interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Request body too large."})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error - " + err.Error()})
		return false
	}
	return true
}

// paramID reads a numeric path parameter; anything else is a missing resource
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return uint(id), true
}
