package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBUrl       string
	FrontendURL string
	LogLevel    string
	Environment string
	// Client sessions
	SessionSecret            string
	SessionTTL               time.Duration
	SecureCookies            bool
	RequireSessionForEditors bool
	// Google sign-in
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	GoogleJWKSURL      string
	// SMTP Configuration (password reset mail)
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromEmail string
	ResetTokenTTL time.Duration
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Blob storage (S3 compatible)
	S3Provider         string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	S3Region           string
	S3Bucket           string
	S3Endpoint         string
	BlobPublicBaseURL  string
	UploadMaxBytes     int64
	UploadMaxDimension int
	UploadPerMinute    int
	UploadPerDay       int
	// Optional clamd daemon for upload scanning
	ClamAVAddress string
	ClamAVTimeout time.Duration
	// Rate Limiting Configuration
	RateLimitWindowSeconds   int
	RateLimitLoginThreshold  int
	RateLimitGlobalThreshold int
	FailedLoginBlockMinutes  int
	FailedLoginMaxAttempts   int
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DBUrl:       getEnv("DATABASE_URL", ""),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("APP_ENV", "development"),
		// Client sessions
		SessionSecret:            getEnv("SESSION_SECRET", ""),
		SessionTTL:               time.Duration(getEnvInt("SESSION_TTL_HOURS", 24*14)) * time.Hour,
		SecureCookies:            getEnvBool("SECURE_COOKIES", false),
		RequireSessionForEditors: getEnvBool("REQUIRE_SESSION_FOR_EDITORS", true),
		// Google sign-in
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:8080/v1/auth/google/callback"),
		GoogleJWKSURL:      getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		// SMTP Configuration
		SMTPHost:      getEnv("SMTP_HOST", "smtp-relay.brevo.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail: getEnv("SMTP_FROM_EMAIL", "noreply@panel.local"),
		ResetTokenTTL: time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Blob storage
		S3Provider:         getEnv("S3_PROVIDER", "aws"),
		S3AccessKeyID:      getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:  getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Endpoint:         strings.TrimRight(getEnv("S3_ENDPOINT", ""), "/"),
		BlobPublicBaseURL:  strings.TrimRight(getEnv("BLOB_PUBLIC_BASE_URL", ""), "/"),
		UploadMaxBytes:     int64(getEnvInt("UPLOAD_MAX_BYTES", 5<<20)),
		UploadMaxDimension: getEnvInt("UPLOAD_IMAGE_MAX_DIMENSION", 0), // 0 keeps uploaded bytes untouched
		UploadPerMinute:    getEnvInt("UPLOAD_PER_MINUTE", 10),
		UploadPerDay:       getEnvInt("UPLOAD_PER_DAY", 50),
		ClamAVAddress:      getEnv("CLAMAV_ADDRESS", ""),
		ClamAVTimeout:      time.Duration(getEnvInt("CLAMAV_TIMEOUT_SECONDS", 30)) * time.Second,
		// Rate Limiting Configuration (with sensible defaults)
		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitLoginThreshold:  getEnvInt("RATE_LIMIT_LOGIN_THRESHOLD", 10),
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 300),
		FailedLoginBlockMinutes:  getEnvInt("FAILED_LOGIN_BLOCK_MINUTES", 15),
		FailedLoginMaxAttempts:   getEnvInt("FAILED_LOGIN_MAX_ATTEMPTS", 5),
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.SessionSecret == "" {
		log.Println("WARNING: SESSION_SECRET not configured. Using an insecure development secret.")
		cfg.SessionSecret = "dev-only-session-secret"
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Rate limiting and change relay stay in-process.")
	}
	if cfg.GoogleClientID == "" {
		log.Println("WARNING: GOOGLE_CLIENT_ID not configured. Google sign-in is disabled.")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
