package middleware

import (
	"net/http"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/auth"
	"go-panel-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ClientSessionCookie carries the signed slot token.
const ClientSessionCookie = "client_session"

// SessionCookies issues and rotates the client_session cookie.
type SessionCookies struct {
	Tokens *auth.SessionTokens
	Secure bool
}

// Issue writes a fresh slot token and returns the new slot id.
func (s SessionCookies) Issue(c *gin.Context) (string, error) {
	token, sid, err := s.Tokens.Issue()
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ClientSessionCookie, token, int(s.Tokens.TTL().Seconds()), "/", "", s.Secure, true)
	return sid, nil
}

// Rotate replaces the slot of the current request with a fresh one. Used on
// logout so the old slot id can never be reused by this browser.
func (s SessionCookies) Rotate(c *gin.Context) (domain.ClientSession, error) {
	sid, err := s.Issue(c)
	if err != nil {
		return domain.ClientSession{}, err
	}
	cs := clientSession(c, sid)
	c.Set(string(domain.KeyClientSession), cs)
	return cs, nil
}

// ClientSessionMiddleware resolves the sign-in slot for every request. A
// missing or invalid cookie gets a new slot.
func ClientSessionMiddleware(cookies SessionCookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sid string
		if raw, err := c.Cookie(ClientSessionCookie); err == nil && raw != "" {
			sid, err = cookies.Tokens.Parse(raw)
			if err != nil {
				logger.Log.Debug("client session cookie rejected", "error", err)
				sid = ""
			}
		}

		if sid == "" {
			var err error
			sid, err = cookies.Issue(c)
			if err != nil {
				_ = c.Error(apperror.Internal(err))
				c.Abort()
				return
			}
		}

		c.Set(string(domain.KeyClientSession), clientSession(c, sid))
		c.Next()
	}
}

func clientSession(c *gin.Context, sid string) domain.ClientSession {
	return domain.ClientSession{
		ID:        sid,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// ClientSessionFrom returns the slot resolved by ClientSessionMiddleware.
func ClientSessionFrom(c *gin.Context) domain.ClientSession {
	v, _ := c.Get(string(domain.KeyClientSession))
	cs, _ := v.(domain.ClientSession)
	return cs
}

// RequireSession gates editor routes on a signed-in slot. When required is
// false the session is still resolved but never enforced.
func RequireSession(sessions domain.SessionUsecase, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs := ClientSessionFrom(c)
		session, err := sessions.CurrentSession(c.Request.Context(), cs)
		if err != nil {
			if required {
				_ = c.Error(err)
				c.Abort()
				return
			}
			session = nil
		}

		if session == nil && required {
			_ = c.Error(apperror.Unauthorized(apperror.MsgSessionRequired))
			c.Abort()
			return
		}

		if session != nil {
			c.Set(string(domain.KeySession), session)
			c.Set(string(domain.KeyUserID), session.UID)
			c.Set(string(domain.KeyUserEmail), session.Email)
		}
		c.Next()
	}
}

// SessionFrom returns the signed-in session, or nil.
func SessionFrom(c *gin.Context) *domain.Session {
	v, _ := c.Get(string(domain.KeySession))
	s, _ := v.(*domain.Session)
	return s
}
