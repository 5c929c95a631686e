package middleware

import (
	"errors"
	"net/http"

	"go-panel-backend/internal/delivery/http/response"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Err != nil {
				logger.Log.Warn("request failed",
					"path", c.FullPath(),
					"kind", appErr.Kind,
					"status", appErr.Code,
					"error", appErr.Err,
				)
			}
			response.Error(c, appErr.Code, appErr.Message, response.ErrorBody{
				Kind:    string(appErr.Kind),
				Code:    appErr.AuthCode,
				Details: appErr.Details,
			})
			return
		}

		// Never expose internal error details to clients.
		logger.Log.Error("unhandled error", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, apperror.MsgUnexpected, response.ErrorBody{
			Kind: string(apperror.KindGeneric),
		})
	}
}
