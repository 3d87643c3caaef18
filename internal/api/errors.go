package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/service"
	"github.com/rs/zerolog"
)

// respondError maps service and CSV errors to a status code. Unknown errors
// are logged and reported as 500 without detail.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var (
		emptyErr   *csvcodec.EmptyHeaderError
		missingErr *csvcodec.MissingColumnsError
		rowErr     *csvcodec.RowError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNothingToExport):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrLocked), errors.Is(err, service.ErrBufferClosed):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput),
		errors.As(err, &emptyErr), errors.As(err, &missingErr), errors.As(err, &rowErr):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
