package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"go-panel-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const (
	CSRFTokenCookieName = "csrf_token"
	CSRFTokenHeaderName = "X-CSRF-Token"
	csrfTokenTTL        = 24 * time.Hour
)

const msgCSRFRejected = "La solicitud no pudo verificarse. Recarga la página e intenta nuevamente."

// CSRFMiddleware is a double-submit check: every visitor gets a script
// readable csrf_token cookie, and unsafe methods must echo it in
// X-CSRF-Token. Websocket upgrades are GETs and rely on the origin check.
func CSRFMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(CSRFTokenCookieName)
		if token == "" {
			raw := make([]byte, 32)
			if _, err := rand.Read(raw); err != nil {
				_ = c.Error(apperror.Internal(err))
				c.Abort()
				return
			}
			token = base64.RawURLEncoding.EncodeToString(raw)
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CSRFTokenCookieName, token, int(csrfTokenTTL.Seconds()), "/", "", secure, false)
		}

		if safeMethod(c.Request.Method) {
			c.Next()
			return
		}
		echoed := c.GetHeader(CSRFTokenHeaderName)
		if echoed == "" || subtle.ConstantTimeCompare([]byte(echoed), []byte(token)) != 1 {
			_ = c.Error(apperror.Forbidden(msgCSRFRejected))
			c.Abort()
			return
		}
		c.Next()
	}
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}
