package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-panel-backend/config"
	_ "go-panel-backend/docs" // Important for Swagger
	v1 "go-panel-backend/internal/delivery/http/v1"
	"go-panel-backend/internal/identity"
	"go-panel-backend/internal/repository/objectstore"
	"go-panel-backend/internal/repository/postgres"
	"go-panel-backend/internal/usecase"
	"go-panel-backend/pkg/auth"
	"go-panel-backend/pkg/database"
	"go-panel-backend/pkg/email"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/metrics"
	"go-panel-backend/pkg/notify"
	"go-panel-backend/pkg/redis"
	"go-panel-backend/pkg/security"
	"go-panel-backend/pkg/security/antivirus"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// @title           Panel Backend API
// @version         1.0
// @description     Session manager and live entity editors for the admin panel.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey ClientSession
// @in cookie
// @name client_session
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := database.RunMigrations(cfg.DBUrl); err != nil {
			logger.Log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		logger.Log.Info("Migrations applied")
		return
	}

	logger.Log.Info("Starting panel backend", "port", cfg.Port, "env", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl, database.DefaultPoolConfig())
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Redis and change notifications
	hub := notify.NewHub()
	if cfg.UpstashRedisURL != "" {
		if err := redis.Initialize(redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword}); err != nil {
			logger.Log.Warn("Redis unavailable, staying in-process", "error", err)
		}
	}
	if client := redis.Client(); client != nil {
		defer redis.Close()
		relay := notify.NewRedisRelay(client, notify.DefaultChannel)
		hub.SetRelay(relay)
		go func() {
			if err := relay.Run(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Error("Change relay stopped", "error", err)
			}
		}()
	}

	// 5. Metrics and audit
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	audit := security.NewAuditLogger("panel-backend", cfg.Environment)
	defer audit.Sync()

	// 6. Setup Repositories
	documents := postgres.NewDocumentRepository(dbPool, hub)
	profiles := postgres.NewProfileRepository(dbPool)
	accounts := postgres.NewAccountRepository(dbPool)
	slots := postgres.NewClientSessionRepository(dbPool)

	blobs := objectstore.Unconfigured()
	var s3Ping usecase.HealthCheck
	if cfg.S3Bucket != "" {
		client, err := objectstore.NewClient(ctx, objectstore.ClientConfig{
			Provider:        objectstore.Provider(cfg.S3Provider),
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
		})
		if err != nil {
			logger.Log.Error("Blob storage unavailable", "error", err)
		} else {
			blobs = objectstore.NewS3Store(client, cfg.S3Bucket, cfg.BlobPublicBaseURL)
			s3Ping = func(ctx context.Context) error { return objectstore.Ping(ctx, client, cfg.S3Bucket) }
		}
	} else {
		logger.Log.Warn("S3_BUCKET not configured - avatar and product uploads will fail")
	}

	// 7. Identity provider
	emailService := email.NewEmailService(cfg)
	var mailer identity.Mailer
	if emailService.IsConfigured() {
		mailer = emailService
	} else {
		logger.Log.Warn("Email service not fully configured - password reset mail is unavailable")
	}

	var google identity.GoogleClient
	googleOAuth := auth.NewGoogleOAuth(auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleCallbackURL,
	}, auth.NewSigningKeys(cfg.GoogleJWKSURL))
	if googleOAuth.Configured() {
		google = googleOAuth
	}

	tracker := security.NewLoginTracker(security.LoginTrackerConfig{
		MaxAttempts:   cfg.FailedLoginMaxAttempts,
		AttemptWindow: time.Duration(cfg.FailedLoginBlockMinutes) * time.Minute,
		BlockDuration: time.Duration(cfg.FailedLoginBlockMinutes) * time.Minute,
		UseIPTracking: true,
	}, audit)

	provider := identity.NewProvider(identity.Config{
		SessionTTL:    cfg.SessionTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		ResetURL:      cfg.FrontendURL + "/reset-password",
	}, identity.Deps{
		Accounts: accounts,
		Sessions: slots,
		Notifier: hub,
		Google:   google,
		Mailer:   mailer,
		Guard:    tracker,
		Audit:    audit,
	})

	// 8. Setup UseCases
	var scanner antivirus.Scanner = antivirus.Nop{}
	var scannerPing usecase.HealthCheck
	if cfg.ClamAVAddress != "" {
		clam := antivirus.NewClamAV(cfg.ClamAVAddress, cfg.ClamAVTimeout)
		scanner, scannerPing = clam, clam.Ping
	}
	images := usecase.NewImageUploader(blobs, usecase.ImageConfig{
		MaxBytes:     cfg.UploadMaxBytes,
		MaxDimension: cfg.UploadMaxDimension,
		Scanner:      scanner,
	}, collector)
	sessionUC := usecase.NewSessionUsecase(provider, profiles, images, hub, collector, cfg.RequireSessionForEditors)
	contactUC := usecase.NewContactUsecase(documents, hub, collector)
	postUC := usecase.NewPostUsecase(documents, hub, collector)
	productUC := usecase.NewProductUsecase(documents, hub, images, collector)

	var redisPing usecase.HealthCheck
	if redis.Client() != nil {
		redisPing = redis.HealthCheck
	}
	healthUC := usecase.NewHealthUsecase(map[string]usecase.HealthCheck{
		"database":  dbPool.Ping,
		"redis":     redisPing,
		"storage":   s3Ping,
		"antivirus": scannerPing,
	})

	// 9. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		SessionUC:     sessionUC,
		ContactUC:     contactUC,
		PostUC:        postUC,
		ProductUC:     productUC,
		HealthUC:      healthUC,
		SessionTokens: auth.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL),
		Metrics:       collector,
		Gatherer:      registry,
		Audit:         audit,
		UploadLimiter: security.NewUploadLimiter(cfg.UploadPerMinute, cfg.UploadPerDay),
		Config:        cfg,
	})

	// 10. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
			stop()
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Websocket connections are hijacked; Shutdown does not wait for them.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
