package v1

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-panel-backend/config"
	"go-panel-backend/internal/delivery/http/middleware"
	"go-panel-backend/internal/domain"
	"go-panel-backend/internal/usecase"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/auth"
	"go-panel-backend/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, sessionUC domain.SessionUsecase, postUC domain.PostUsecase, dbErr error) (*httptest.Server, *auth.SessionTokens) {
	t.Helper()
	cfg := &config.Config{
		FrontendURL:              testFrontend,
		Environment:              "test",
		RequireSessionForEditors: true,
		UploadMaxBytes:           1 << 20,
		RateLimitWindowSeconds:   60,
		RateLimitGlobalThreshold: 1000,
		RateLimitLoginThreshold:  1000,
	}
	tokens := auth.NewSessionTokens("router-secret", time.Hour)
	reg := prometheus.NewRegistry()

	r := NewRouter(RouterDeps{
		SessionUC: sessionUC,
		ContactUC: new(MockContactUsecase),
		PostUC:    postUC,
		ProductUC: new(MockProductUsecase),
		HealthUC: usecase.NewHealthUsecase(map[string]usecase.HealthCheck{
			"database": func(context.Context) error { return dbErr },
			"redis":    nil,
		}),
		SessionTokens: tokens,
		Metrics:       metrics.NewCollector(reg),
		Gatherer:      reg,
		Config:        cfg,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, tokens
}

func TestRouter_Health(t *testing.T) {
	srv, _ := testRouter(t, new(MockSessionUsecase), new(MockPostUsecase), nil)
	resp, err := http.Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv, _ = testRouter(t, new(MockSessionUsecase), new(MockPostUsecase), errors.New("down"))
	resp, err = http.Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_EditorsRequireSession(t *testing.T) {
	sessionUC := new(MockSessionUsecase)
	sessionUC.On("CurrentSession", mock.Anything, mock.Anything).Return(nil, nil)
	postUC := new(MockPostUsecase)
	srv, _ := testRouter(t, sessionUC, postUC, nil)

	resp, err := http.Get(srv.URL + "/v1/post")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	postUC.AssertNotCalled(t, "List", mock.Anything)
}

func TestRouter_SignedInSlotReachesEditors(t *testing.T) {
	postUC := new(MockPostUsecase)
	postUC.On("List", mock.Anything).Return([]domain.Post{{ID: "p1", Mensaje: "hola"}}, nil)

	sessionUC := new(MockSessionUsecase)
	srv, tokens := testRouter(t, sessionUC, postUC, nil)
	token, sid, err := tokens.Issue()
	require.NoError(t, err)
	sessionUC.On("CurrentSession", mock.Anything, mock.MatchedBy(func(cs domain.ClientSession) bool { return cs.ID == sid })).
		Return(&domain.Session{UID: "u1"}, nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/post", nil)
	req.AddCookie(&http.Cookie{Name: middleware.ClientSessionCookie, Value: token})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestRouter_MutationsNeedCSRFToken(t *testing.T) {
	sessionUC := new(MockSessionUsecase)
	srv, _ := testRouter(t, sessionUC, new(MockPostUsecase), nil)

	resp, err := http.Post(srv.URL+"/v1/auth/login", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	sessionUC.On("Login", mock.Anything, mock.Anything, "a@b.co", "x").
		Return(nil, apperror.Auth(apperror.CodeWrongPassword, nil))

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/auth/login", jsonRequest(http.MethodPost, "/", LoginRequest{Email: "a@b.co", Password: "x"}).Body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CSRFTokenHeaderName, "tok")
	req.AddCookie(&http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "tok"})
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	srv, _ := testRouter(t, new(MockSessionUsecase), new(MockPostUsecase), nil)

	resp, err := http.Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/v1/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
