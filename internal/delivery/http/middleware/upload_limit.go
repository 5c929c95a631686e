package middleware

import (
	"strconv"
	"strings"

	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

const msgUploadLimited = "Has subido demasiadas imágenes. Intenta más tarde."

// UploadLimitMiddleware throttles multipart requests that may carry an
// image. Other requests on the same route pass through untouched.
func UploadLimitMiddleware(limiter *security.UploadLimiter, audit *security.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Next()
			return
		}

		accountID := ""
		if s := SessionFrom(c); s != nil {
			accountID = s.UID
		}

		allowed, retryAfter, err := limiter.AllowUpload(c.Request.Context(), c.ClientIP(), accountID)
		if err != nil {
			logger.Log.Error("upload limiter unavailable", "error", err)
		}
		if !allowed {
			if audit != nil {
				audit.Log(c.Request.Context(), security.AuditEvent{
					Event:        security.EventUploadRejected,
					SubjectType:  "ip",
					SubjectValue: c.ClientIP(),
					IP:           c.ClientIP(),
					UserAgent:    c.Request.UserAgent(),
					Details:      map[string]any{"path": c.FullPath()},
				})
			}
			if retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(retryAfter))
			}
			_ = c.Error(apperror.TooManyRequests(msgUploadLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
