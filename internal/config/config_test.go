package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"APP_ENV", "ENV", "HTTP_ADDR", "DATABASE_URL", "JWT_SECRET", "JWT_TTL",
		"REDIS_URL", "REALTIME_STREAM", "REALTIME_MAXLEN", "DISPATCH_WORKERS",
		"DISPATCH_QUEUE", "SMTP_HOST", "SMTP_PORT", "SMTP_FROM", "SMTP_SKIP_TLS_VERIFY",
		"NODE_ID", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "hostel.db", cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 2, cfg.DispatchWorkers)
	assert.Equal(t, 256, cfg.DispatchQueue)
	assert.Equal(t, int64(10000), cfg.RealtimeMaxLen)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.SMTP.Enabled())
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("DISPATCH_WORKERS", "4")
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("SMTP_FROM", "Hostel <no-reply@example.org>")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 4, cfg.DispatchWorkers)
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad ttl":         {"JWT_TTL": "soon"},
		"zero workers":    {"DISPATCH_WORKERS": "0"},
		"node id range":   {"NODE_ID": "2048"},
		"bad level":       {"LOG_LEVEL": "loud"},
		"prod default":    {"APP_ENV": "production"},
		"prod skip tls":   {"APP_ENV": "prod", "JWT_SECRET": "real", "SMTP_SKIP_TLS_VERIFY": "1"},
		"negative maxlen": {"REALTIME_MAXLEN": "-1"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger_JSONInProd(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "prod", LogLevel: slog.LevelInfo})
	logger.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"app":"hostelcare"`)
}
