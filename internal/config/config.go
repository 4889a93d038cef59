package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Identity  IdentityConfig
	OAuth     OAuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session token parameters.
type AuthConfig struct {
	JWTSecret         string
	SessionTTLMinutes int
	SecureCookies     bool
}

// IdentityConfig describes the external identity backend.
type IdentityConfig struct {
	// Mode selects the verifier implementation: "http" for the external
	// backend, "memory" for the seeded in-process backend used in
	// development.
	Mode           string
	BaseURL        string
	TimeoutSeconds int
}

// OAuthConfig describes the external OAuth identity provider for the
// alternate login path. Disabled when ClientID is empty.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	UserInfoURL  string
	Scopes       []string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig bounds repeated login and code-submission attempts.
type RateLimitConfig struct {
	LoginMaxAttempts         int
	LoginCooldownSeconds     int
	TwoFactorMaxAttempts     int
	TwoFactorCooldownSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "portal-auth"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("AUTH_JWT_SECRET", "dev-secret"),
			SessionTTLMinutes: getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 60),
			SecureCookies:     getEnvAsBool("AUTH_SECURE_COOKIES", false),
		},
		Identity: IdentityConfig{
			Mode:           getEnv("IDENTITY_MODE", "http"),
			BaseURL:        getEnv("IDENTITY_BASE_URL", "http://127.0.0.1:9090"),
			TimeoutSeconds: getEnvAsInt("IDENTITY_TIMEOUT_SECONDS", 5),
		},
		OAuth: OAuthConfig{
			ClientID:     os.Getenv("OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			AuthURL:      os.Getenv("OAUTH_AUTH_URL"),
			TokenURL:     os.Getenv("OAUTH_TOKEN_URL"),
			RedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
			UserInfoURL:  os.Getenv("OAUTH_USERINFO_URL"),
			Scopes:       splitList(getEnv("OAUTH_SCOPES", "openid profile email")),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		RateLimit: RateLimitConfig{
			LoginMaxAttempts:         getEnvAsInt("RATELIMIT_LOGIN_MAX_ATTEMPTS", 10),
			LoginCooldownSeconds:     getEnvAsInt("RATELIMIT_LOGIN_COOLDOWN_SECONDS", 300),
			TwoFactorMaxAttempts:     getEnvAsInt("RATELIMIT_2FA_MAX_ATTEMPTS", 8),
			TwoFactorCooldownSeconds: getEnvAsInt("RATELIMIT_2FA_COOLDOWN_SECONDS", 300),
		},
	}

	if cfg.Auth.SessionTTLMinutes <= 0 {
		cfg.Auth.SessionTTLMinutes = 60
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the outbound identity call timeout.
func (i IdentityConfig) Timeout() time.Duration {
	if i.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// Enabled reports whether the provider login path is configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.AuthURL != "" && o.TokenURL != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	parts := strings.Fields(val)
	if len(parts) == 0 {
		return nil
	}
	return parts
}
