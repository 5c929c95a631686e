package v1

import (
	"net/http"
	"time"

	"go-panel-backend/config"
	"go-panel-backend/internal/delivery/http/middleware"
	"go-panel-backend/internal/delivery/http/response"
	"go-panel-backend/internal/domain"
	"go-panel-backend/internal/usecase"
	"go-panel-backend/pkg/auth"
	"go-panel-backend/pkg/metrics"
	"go-panel-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	SessionUC     domain.SessionUsecase
	ContactUC     domain.ContactUsecase
	PostUC        domain.PostUsecase
	ProductUC     domain.ProductUsecase
	HealthUC      usecase.HealthUsecase
	SessionTokens *auth.SessionTokens
	Metrics       metrics.Recorder
	Gatherer      prometheus.Gatherer // nil hides /metrics
	Audit         *security.AuditLogger
	UploadLimiter *security.UploadLimiter
	Config        *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	r := gin.New()

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL, cfg.IsProduction())) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.MetricsMiddleware(rec))
	r.Use(middleware.ErrorHandler())

	v1 := r.Group("/v1")

	v1.GET("/health", func(c *gin.Context) {
		status := deps.HealthUC.Check(c.Request.Context())
		if status["status"] != "ok" {
			response.Success(c, http.StatusServiceUnavailable, "System degraded", status)
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})
	if deps.Gatherer != nil {
		v1.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}

	api := v1.Group("")
	api.Use(middleware.SecurityHeadersMiddleware(cfg.BlobPublicBaseURL, cfg.IsProduction()))
	api.Use(middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig(cfg.RateLimitGlobalThreshold, window, deps.Audit)))
	api.Use(middleware.ClientSessionMiddleware(middleware.SessionCookies{Tokens: deps.SessionTokens, Secure: cfg.SecureCookies}))
	api.Use(middleware.CSRFMiddleware(cfg.SecureCookies))

	// base64 inflates images by a third; leave headroom for the JSON around it.
	sockets := NewSockets(middleware.AllowedOrigin(cfg.FrontendURL, cfg.IsProduction()), cfg.UploadMaxBytes*2+64<<10)

	var upload gin.HandlerFunc
	if deps.UploadLimiter != nil {
		upload = middleware.UploadLimitMiddleware(deps.UploadLimiter, deps.Audit)
	}

	NewAuthHandler(api, deps.SessionUC, AuthHandlerConfig{
		Cookies:     middleware.SessionCookies{Tokens: deps.SessionTokens, Secure: cfg.SecureCookies},
		Sockets:     sockets,
		FrontendURL: cfg.FrontendURL,
		MaxUpload:   cfg.UploadMaxBytes,
		Strict:      middleware.RateLimitMiddleware(middleware.AuthRateLimitConfig(cfg.RateLimitLoginThreshold, window, deps.Audit)),
		Upload:      upload,
	})

	// Editor routes
	editors := api.Group("")
	editors.Use(middleware.RequireSession(deps.SessionUC, cfg.RequireSessionForEditors))
	{
		editorDeps := EditorDeps{
			Sockets:   sockets,
			Metrics:   rec,
			Audit:     deps.Audit,
			MaxUpload: cfg.UploadMaxBytes,
			Upload:    upload,
		}
		NewContactHandler(editors, deps.ContactUC, editorDeps)
		NewPostHandler(editors, deps.PostUC, editorDeps)
		NewProductHandler(editors, deps.ProductUC, editorDeps)
	}

	return r
}
