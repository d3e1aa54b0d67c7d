package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultDatabaseURL     = "hostel.db"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTTTL          = "24h"
	defaultRealtimeStream  = "hostel:changes"
	defaultRealtimeMaxLen  = "10000"
	defaultDispatchWorkers = "2"
	defaultDispatchQueue   = "256"
	defaultSMTPPort        = "587"
	defaultNodeID          = "1"
	defaultLogLevel        = "info"

	// MaxAttachments bounds the images a student may attach at creation.
	MaxAttachments = 5
	// MaxResolutionImages bounds retained plus newly submitted proof.
	MaxResolutionImages = 5
	// MaxRemarkLength is measured in runes.
	MaxRemarkLength = 2000
)

type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	SkipTLSVerify bool
}

// Enabled reports whether enough is configured to dial out.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type Config struct {
	AppEnv             string
	HTTPAddr           string
	DatabaseURL        string
	JWTSecret          string
	JWTTTL             time.Duration
	RedisURL           string
	RealtimeStream     string
	RealtimeMaxLen     int64
	DispatchWorkers    int
	DispatchQueue      int
	SMTP               SMTPConfig
	NodeID             int64
	LogLevel           slog.Level
	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.RealtimeStream = strings.TrimSpace(getEnv("REALTIME_STREAM", defaultRealtimeStream))

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	maxLen, err := parseIntEnv("REALTIME_MAXLEN", defaultRealtimeMaxLen)
	if err != nil {
		return nil, err
	}
	cfg.RealtimeMaxLen = int64(maxLen)

	cfg.DispatchWorkers, err = parseIntEnv("DISPATCH_WORKERS", defaultDispatchWorkers)
	if err != nil {
		return nil, err
	}
	cfg.DispatchQueue, err = parseIntEnv("DISPATCH_QUEUE", defaultDispatchQueue)
	if err != nil {
		return nil, err
	}

	nodeID, err := parseIntEnv("NODE_ID", defaultNodeID)
	if err != nil {
		return nil, err
	}
	cfg.NodeID = int64(nodeID)

	cfg.SMTP.Host = strings.TrimSpace(os.Getenv("SMTP_HOST"))
	cfg.SMTP.Port, err = parseIntEnv("SMTP_PORT", defaultSMTPPort)
	if err != nil {
		return nil, err
	}
	cfg.SMTP.User = os.Getenv("SMTP_USER")
	cfg.SMTP.Pass = os.Getenv("SMTP_PASS")
	cfg.SMTP.From = strings.TrimSpace(os.Getenv("SMTP_FROM"))
	cfg.SMTP.SkipTLSVerify = parseBoolEnv("SMTP_SKIP_TLS_VERIFY", "false")

	cfg.LogLevel, err = parseLevelEnv("LOG_LEVEL", defaultLogLevel)
	if err != nil {
		return nil, err
	}

	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProdLike reports whether defaults must be refused.
func (c *Config) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.DispatchWorkers <= 0 {
		return fmt.Errorf("DISPATCH_WORKERS must be > 0")
	}
	if cfg.DispatchQueue <= 0 {
		return fmt.Errorf("DISPATCH_QUEUE must be > 0")
	}
	if cfg.RealtimeMaxLen <= 0 {
		return fmt.Errorf("REALTIME_MAXLEN must be > 0")
	}
	if cfg.RealtimeStream == "" {
		return fmt.Errorf("REALTIME_STREAM must not be empty")
	}
	if cfg.NodeID < 0 || cfg.NodeID > 1023 {
		return fmt.Errorf("NODE_ID must be between 0 and 1023")
	}
	if cfg.SMTP.Port <= 0 {
		return fmt.Errorf("SMTP_PORT must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.SMTP.SkipTLSVerify {
			return fmt.Errorf("in prod/release SMTP_SKIP_TLS_VERIFY must be off")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseLevelEnv(name, fallback string) (slog.Level, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(value)); err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return lvl, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
