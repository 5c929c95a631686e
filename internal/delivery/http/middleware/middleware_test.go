package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-panel-backend/internal/delivery/http/response"
	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockSessions struct {
	mock.Mock
	domain.SessionUsecase
}

func (m *mockSessions) CurrentSession(ctx context.Context, cs domain.ClientSession) (*domain.Session, error) {
	args := m.Called(ctx, cs)
	s, _ := args.Get(0).(*domain.Session)
	return s, args.Error(1)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/auth", func(c *gin.Context) {
		_ = c.Error(apperror.Auth(apperror.CodeWrongPassword, errors.New("bad hash")))
	})
	r.GET("/validation", func(c *gin.Context) {
		_ = c.Error(apperror.Validation("Por favor escribe un mensaje", "mensaje"))
	})
	r.GET("/raw", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: connection reset"))
	})

	t.Run("auth error carries code", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decode(t, w)
		assert.False(t, body.Success)
		assert.Equal(t, "La contraseña es incorrecta.", body.Message)
		assert.NotEmpty(t, body.RequestID)
		errBody := body.Error.(map[string]any)
		assert.Equal(t, "auth", errBody["kind"])
		assert.Equal(t, apperror.CodeWrongPassword, errBody["code"])
	})

	t.Run("validation details", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/validation", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		errBody := decode(t, w).Error.(map[string]any)
		assert.Equal(t, "validation", errBody["kind"])
		assert.Equal(t, []any{"mensaje"}, errBody["details"])
	})

	t.Run("raw error is hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/raw", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
		assert.Equal(t, apperror.MsgUnexpected, decode(t, w).Message)
	})
}

func TestRequestIDReusesValidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1d6f8e-3c55-4c1e-9a59-0f4b1f6a2d11")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "6f1d6f8e-3c55-4c1e-9a59-0f4b1f6a2d11", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func sessionRouter(cookies SessionCookies, handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(), ClientSessionMiddleware(cookies))
	r.GET("/", append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, ClientSessionFrom(c).ID)
	})...)
	return r
}

func TestClientSessionMiddleware(t *testing.T) {
	tokens := auth.NewSessionTokens("secret", time.Hour)
	r := sessionRouter(SessionCookies{Tokens: tokens})

	t.Run("issues a slot when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, w.Code)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, ClientSessionCookie, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)

		sid, err := tokens.Parse(cookies[0].Value)
		require.NoError(t, err)
		assert.Equal(t, sid, w.Body.String())
	})

	t.Run("reuses a valid slot", func(t *testing.T) {
		token, sid, err := tokens.Issue()
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: ClientSessionCookie, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, sid, w.Body.String())
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("replaces a forged slot", func(t *testing.T) {
		other := auth.NewSessionTokens("other-secret", time.Hour)
		token, sid, err := other.Issue()
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: ClientSessionCookie, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.NotEqual(t, sid, w.Body.String())
		assert.Len(t, w.Result().Cookies(), 1)
	})
}

func TestRequireSession(t *testing.T) {
	tokens := auth.NewSessionTokens("secret", time.Hour)
	cookies := SessionCookies{Tokens: tokens}

	t.Run("rejects a signed out slot", func(t *testing.T) {
		sessions := new(mockSessions)
		sessions.On("CurrentSession", mock.Anything, mock.Anything).Return(nil, nil)

		w := httptest.NewRecorder()
		sessionRouter(cookies, RequireSession(sessions, true)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperror.MsgSessionRequired, decode(t, w).Message)
	})

	t.Run("passes a signed in slot", func(t *testing.T) {
		sessions := new(mockSessions)
		sessions.On("CurrentSession", mock.Anything, mock.Anything).Return(&domain.Session{UID: "u1"}, nil)

		w := httptest.NewRecorder()
		sessionRouter(cookies, RequireSession(sessions, true)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("optional mode ignores lookup errors", func(t *testing.T) {
		sessions := new(mockSessions)
		sessions.On("CurrentSession", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		w := httptest.NewRecorder()
		sessionRouter(cookies, RequireSession(sessions, false)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCSRFMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), CSRFMiddleware(false))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	token := cookies[0].Value

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFTokenCookieName, Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFTokenCookieName, Value: token})
	req.Header.Set(CSRFTokenHeaderName, token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRateLimitInMemory(t *testing.T) {
	cfg := AuthRateLimitConfig(2, time.Minute, nil)
	cfg.KeyPrefix = "rl:test:" + t.Name() + ":"

	r := gin.New()
	r.Use(ErrorHandler(), RateLimitMiddleware(cfg))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
		if i == 2 {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("https://panel.example.com", true))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://panel.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	allowed := AllowedOrigin("https://panel.example.com", false)
	assert.True(t, allowed("http://localhost:5173"))
	assert.False(t, allowed("https://evil.example.com"))
}

func TestLocalWindowsReset(t *testing.T) {
	var l localWindows
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, l.hit("k", time.Minute, start).count)
	assert.Equal(t, 2, l.hit("k", time.Minute, start.Add(10*time.Second)).count)
	assert.Equal(t, 1, l.hit("k", time.Minute, start.Add(2*time.Minute)).count)

	l.hit("other", time.Minute, start)
	l.hit("k", time.Minute, start.Add(5*time.Minute))
	_, kept := l.buckets["other"]
	assert.False(t, kept)
}
