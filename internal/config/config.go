// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"newsletter-backend/internal/secret"
)

const (
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

type Settings struct {
	Port        int
	Environment string

	DatabaseURL            string
	DBMaxOpenConns         int
	DBMaxIdleConns         int
	DBConnMaxLifetime      time.Duration
	DBConnMaxIdleTime      time.Duration
	RunMigrationsOnStartup bool

	HMACSecret secret.Key

	SessionBackend string
	RedisURL       string
	SessionTTL     time.Duration
	CookieSecure   bool

	PasswordHashWorkers int

	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration
	TrustedProxies       []string

	AdminUsername string
	AdminPassword secret.String

	CronSecret       string
	IPLimitRetention time.Duration
	CleanupBatchSize int

	SentryDSN string
}

func (s Settings) IsProduction() bool {
	return s.Environment == "production"
}

func (s Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Load reads settings from the environment. When loadDotEnv is set a .env
// file in the working directory is read first; a missing file is ignored.
func Load(loadDotEnv bool) (Settings, error) {
	if loadDotEnv {
		_ = godotenv.Load()
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Settings{}, err
	}
	rawSecret, err := mustEnv("HMAC_SECRET")
	if err != nil {
		return Settings{}, err
	}
	key, err := secret.NewKey(rawSecret)
	if err != nil {
		return Settings{}, fmt.Errorf("HMAC_SECRET: %w", err)
	}

	environment := envOrDefault("APP_ENV", "development")
	settings := Settings{
		Port:        envIntOrDefault("PORT", 8080),
		Environment: environment,

		DatabaseURL:            databaseURL,
		DBMaxOpenConns:         envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:         envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:      envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime:      envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
		RunMigrationsOnStartup: EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", false),

		HMACSecret: key,

		SessionBackend: strings.ToLower(envOrDefault("SESSION_BACKEND", SessionBackendRedis)),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		SessionTTL:     envMinutesOrDefault("SESSION_TTL_MINUTES", 60),
		CookieSecure:   EnvBoolOrDefault("COOKIE_SECURE", environment == "production"),

		PasswordHashWorkers: envIntOrDefault("PASSWORD_HASH_WORKERS", runtime.NumCPU()),

		LoginRateLimitMax:    envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateLimitWindow: envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),
		TrustedProxies:       envListOrDefault("TRUSTED_PROXIES", nil),

		AdminUsername: strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword: secret.NewString(os.Getenv("ADMIN_PASSWORD")),

		CronSecret:       os.Getenv("CRON_SECRET"),
		IPLimitRetention: envDaysOrDefault("AUTH_IP_LIMIT_RETENTION_DAYS", 30),
		CleanupBatchSize: envIntOrDefault("AUTH_CLEANUP_BATCH_SIZE", 500),

		SentryDSN: os.Getenv("SENTRY_DSN"),
	}

	switch settings.SessionBackend {
	case SessionBackendRedis:
		if settings.RedisURL == "" {
			return Settings{}, fmt.Errorf("missing required env: REDIS_URL")
		}
	case SessionBackendMemory:
	default:
		return Settings{}, fmt.Errorf("invalid SESSION_BACKEND %q", settings.SessionBackend)
	}

	return settings, nil
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envDaysOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * 24 * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envListOrDefault(name string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
