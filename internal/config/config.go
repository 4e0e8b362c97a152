package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultJWTAccessTTL   = "15m"
	defaultRefreshTTL     = "168h"
	defaultChallengeTTL   = "5m"
	defaultTOTPIssuer     = "rentspace"
	defaultJWTSecret      = "change-me-jwt-secret"
	defaultRefreshHashKey = "change-me-refresh-hash-key"
)

type Config struct {
	AppEnv string

	DatabaseURL string
	RedisAddr   string

	JWTSecret           string
	JWTAccessTTL        time.Duration
	RefreshTokenHashKey string
	RefreshTTL          time.Duration
	ChallengeTTL        time.Duration

	TOTPIssuer string
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

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.RefreshTokenHashKey = strings.TrimSpace(getEnv("REFRESH_TOKEN_HASH_KEY", defaultRefreshHashKey))
	cfg.TOTPIssuer = strings.TrimSpace(getEnv("TOTP_ISSUER", defaultTOTPIssuer))

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}

	cfg.RefreshTTL, err = parseDurationEnv("REFRESH_TTL", defaultRefreshTTL)
	if err != nil {
		return nil, err
	}

	cfg.ChallengeTTL, err = parseDurationEnv("CHALLENGE_TTL", defaultChallengeTTL)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TTL must be > 0")
	}
	if cfg.ChallengeTTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL must be > 0")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.RefreshTokenHashKey == "" {
		return fmt.Errorf("REFRESH_TOKEN_HASH_KEY must not be empty")
	}

	// The refresh-token hash key and the JWT signing key protect different
	// material; sharing one value means a leak of either compromises both.
	if cfg.RefreshTokenHashKey == cfg.JWTSecret {
		return fmt.Errorf("REFRESH_TOKEN_HASH_KEY must differ from JWT_SECRET")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.RefreshTokenHashKey, defaultRefreshHashKey) {
			return fmt.Errorf("in prod/release REFRESH_TOKEN_HASH_KEY must be set and not default")
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

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
