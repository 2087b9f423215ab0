package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingSecret    = errors.New("SECRET must be set")
	ErrMissingAlgorithm = errors.New("ALGORITHM must be set")
)

// Config holds process-wide settings. It is built once at startup and passed
// by value into constructors; nothing re-reads the environment afterwards.
type Config struct {
	Port        string
	Env         string
	LogLevel    slog.Level
	Storage     string
	DatabaseDSN string

	TokenSecret    string
	TokenAlgorithm string
	TokenIssuer    string
	TokenTTL       time.Duration

	PasswordHasher string

	RedisAddr        string
	LoginMaxAttempts int
	LoginLockout     time.Duration

	CORSOrigins []string
}

// Load reads the configuration from the environment. A missing signing
// secret or algorithm is fatal for the caller.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8000"),
		Env:         getEnv("ENV", "development"),
		Storage:     getEnv("STORAGE", "mysql"),
		DatabaseDSN: getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/asktracker?parseTime=true"),

		TokenSecret:    os.Getenv("SECRET"),
		TokenAlgorithm: os.Getenv("ALGORITHM"),
		TokenIssuer:    getEnv("TOKEN_ISSUER", "asktracker"),

		PasswordHasher: getEnv("PASSWORD_HASHER", "sha256"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}

	if cfg.TokenSecret == "" {
		return Config{}, ErrMissingSecret
	}
	if cfg.TokenAlgorithm == "" {
		return Config{}, ErrMissingAlgorithm
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.LoginLockout, err = getDuration("LOGIN_LOCKOUT", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LoginMaxAttempts, err = getInt("LOGIN_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch cfg.PasswordHasher {
	case "sha256", "argon2id":
	default:
		return Config{}, fmt.Errorf("PASSWORD_HASHER: unsupported value %q", cfg.PasswordHasher)
	}

	switch cfg.Storage {
	case "mysql", "memory":
	default:
		return Config{}, fmt.Errorf("STORAGE: unsupported value %q", cfg.Storage)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
