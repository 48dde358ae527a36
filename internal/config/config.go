package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      string
	LogLevel  string
	LogFormat string
	DB        DBConfig
	Redis     RedisConfig
	Auth      Auth
	Limiter   LimiterConfig
	Client    ClientConfig
}

type DBConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

type RedisConfig struct {
	URL    string
	Prefix string
}

type LimiterConfig struct {
	PerMinute int
	Burst     int
}

type ClientConfig struct {
	BaseURL     string
	SessionPath string
	Timeout     time.Duration
}

// Auth implements the auth.Config getters
type Auth struct {
	SigningKey      string
	SigningKeyID    string
	RetiredKeys     map[string]string
	SigningMethod   string
	ContextKey      string
	TokenExpiration time.Duration
	TokenLookup     string
	AuthScheme      string
	Issuer          string
	Audience        []string
}

func (a Auth) GetSigningKey() string                    { return a.SigningKey }
func (a Auth) GetSigningKeyID() string                  { return a.SigningKeyID }
func (a Auth) GetRetiredSigningKeys() map[string]string { return a.RetiredKeys }
func (a Auth) GetSigningMethod() string                 { return a.SigningMethod }
func (a Auth) GetContextKey() string                    { return a.ContextKey }
func (a Auth) GetTokenExpiration() time.Duration        { return a.TokenExpiration }
func (a Auth) GetTokenLookup() string                   { return a.TokenLookup }
func (a Auth) GetAuthScheme() string                    { return a.AuthScheme }
func (a Auth) GetIssuer() string                        { return a.Issuer }
func (a Auth) GetAudience() []string                    { return a.Audience }

// Load reads configuration from the environment. In development a .env
// file in the working directory is loaded first.
func Load() (Config, error) {
	if getEnv("PORTAL_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:       getEnv("PORTAL_ENV", "development"),
		Port:      getEnv("PORT", "5000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DATABASE_URL", "file:portal.db?cache=shared"),
		},
		Redis: RedisConfig{
			URL:    getEnv("REDIS_URL", ""),
			Prefix: getEnv("REDIS_REVOCATION_PREFIX", "portal-auth:revoked:"),
		},
		Auth: Auth{
			SigningKey:      getEnv("JWT_SECRET", ""),
			SigningKeyID:    getEnv("JWT_KEY_ID", "default"),
			RetiredKeys:     parseKeys(getEnv("JWT_RETIRED_KEYS", "")),
			SigningMethod:   "HS256",
			ContextKey:      getEnv("AUTH_CONTEXT_KEY", "user"),
			TokenExpiration: getEnvDuration("JWT_EXPIRATION", time.Hour),
			TokenLookup:     getEnv("AUTH_TOKEN_LOOKUP", "header:Authorization"),
			AuthScheme:      getEnv("AUTH_SCHEME", "Bearer"),
			Issuer:          getEnv("JWT_ISSUER", "portal-auth"),
			Audience:        splitList(getEnv("JWT_AUDIENCE", "portal")),
		},
		Limiter: LimiterConfig{
			PerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
			Burst:     getEnvInt("LOGIN_RATE_BURST", 10),
		},
		Client: ClientConfig{
			BaseURL:     getEnv("PORTAL_URL", "http://localhost:5000"),
			SessionPath: getEnv("PORTAL_SESSION_PATH", ""),
			Timeout:     getEnvDuration("PORTAL_CLIENT_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings the server can not start without
func (c Config) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.IsProduction() && len(c.Auth.SigningKey) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}

	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	if c.Auth.TokenExpiration <= 0 {
		return fmt.Errorf("JWT_EXPIRATION must be positive")
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseKeys reads "kid:secret,kid:secret"
func parseKeys(raw string) map[string]string {
	keys := map[string]string{}
	for _, pair := range splitList(raw) {
		kid, secret, ok := strings.Cut(pair, ":")
		if !ok || kid == "" || secret == "" {
			continue
		}
		keys[strings.TrimSpace(kid)] = strings.TrimSpace(secret)
	}
	return keys
}
