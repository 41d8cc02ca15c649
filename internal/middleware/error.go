package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/logger"
)

// ErrorHandler renders the last error attached to the context when nothing
// downstream wrote a response. The auth gates report failures this way.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError renders err as {"error":{"code","message"}}. An AppError keeps
// its status and code; its internal cause, if any, is logged. Any other
// error is logged and reported as INTERNAL_ERROR.
func WriteError(c *gin.Context, err error) {
	log := logger.Get().With(
		"request_id", RequestID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	var appErr *apperrors.AppError
	switch {
	case !errors.As(err, &appErr):
		log.Errorw("unexpected error", "error", err.Error())
		appErr = apperrors.ErrInternalServer
	case appErr.Internal != nil:
		log.Errorw("app error", "code", appErr.Code, "internal", appErr.Internal.Error())
	}

	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
