package middleware

import (
	"errors"
	"net/http"

	"catalog-chat/internal/transport/httpdto"
	catalog_errors "catalog-chat/pkg/errors"
	"catalog-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last handler error, mapping storage outages to 503.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}

		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		if errors.Is(err, catalog_errors.ErrStorageUnavailable) {
			status, code = http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}
