package config

import (
	"errors"
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
	HTTP      HTTPConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Session   SessionConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	Locale                string
	RequestTimeoutSeconds int
}

// HTTPConfig holds transport level settings.
type HTTPConfig struct {
	CORSOrigin string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectRetrySec int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	CookieName            string
	CookieSecure          bool
	LoaderTimeoutMillis   int
	ExpiryWarningMinutes  int
}

// SessionConfig bounds the in-process account cache.
type SessionConfig struct {
	TTLSeconds int
	MaxEntries int
}

// UploadConfig constrains file uploads.
type UploadConfig struct {
	Dir               string
	PublicPrefix      string
	FieldName         string
	MaxSizeBytes      int64
	MaxFilenameLength int
	AllowedMIMETypes  []string
	BodyLimitBytes    int
}

// RateLimitConfig controls the per-IP request limiter on /api.
type RateLimitConfig struct {
	Enabled       bool
	Max           int
	WindowSeconds int
}

const (
	defaultSessionTTL        = 15 * time.Minute
	defaultSessionMaxEntries = 1000
	defaultUploadMaxBytes    = 5 * 1024 * 1024
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxUpload, err := strconv.ParseInt(getEnv("UPLOAD_MAX_SIZE_BYTES", strconv.Itoa(defaultUploadMaxBytes)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_SIZE_BYTES: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "marketplace-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3001"),
			Version:               getEnv("APP_VERSION", "dev"),
			Locale:                getEnv("APP_LOCALE", "pt-BR"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		HTTP: HTTPConfig{
			CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ConnectRetrySec: getEnvAsInt("POSTGRES_CONNECT_RETRY_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("JWT_TTL_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
			CookieName:            getEnv("AUTH_COOKIE_NAME", "jwt"),
			CookieSecure:          getEnvAsBool("AUTH_COOKIE_SECURE", false),
			LoaderTimeoutMillis:   getEnvAsInt("AUTH_LOADER_TIMEOUT_MS", 2000),
			ExpiryWarningMinutes:  getEnvAsInt("AUTH_EXPIRY_WARNING_MINUTES", 10),
		},
		Session: SessionConfig{
			TTLSeconds: getEnvAsInt("SESSION_CACHE_TTL_SECONDS", int(defaultSessionTTL/time.Second)),
			MaxEntries: getEnvAsInt("SESSION_CACHE_MAX_ENTRIES", defaultSessionMaxEntries),
		},
		Upload: UploadConfig{
			Dir:               getEnv("UPLOAD_DIR", "public/storage"),
			PublicPrefix:      getEnv("UPLOAD_PUBLIC_PREFIX", "/storage"),
			FieldName:         getEnv("UPLOAD_FIELD_NAME", "file"),
			MaxSizeBytes:      maxUpload,
			MaxFilenameLength: getEnvAsInt("UPLOAD_MAX_FILENAME_LENGTH", 255),
			AllowedMIMETypes:  getEnvAsList("UPLOAD_ALLOWED_MIME_TYPES", []string{"image/jpeg", "image/png", "image/gif", "image/webp"}),
			BodyLimitBytes:    getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 64*1024*1024),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Max:           getEnvAsInt("RATE_LIMIT_MAX", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 15*60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" || (c.Auth.JWTSecret == "dev-secret" && !c.App.IsDevelopment()) {
		errs = append(errs, errors.New("JWT_SECRET must be set outside development"))
	}
	if c.Session.TTLSeconds <= 0 {
		errs = append(errs, errors.New("SESSION_CACHE_TTL_SECONDS must be positive"))
	}
	if c.Session.MaxEntries <= 0 {
		errs = append(errs, errors.New("SESSION_CACHE_MAX_ENTRIES must be positive"))
	}
	if c.Upload.MaxSizeBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_SIZE_BYTES must be positive"))
	}
	// Oversized uploads must reach the handler so auth failures keep precedence.
	if int64(c.Upload.BodyLimitBytes) <= c.Upload.MaxSizeBytes {
		errs = append(errs, errors.New("HTTP_BODY_LIMIT_BYTES must exceed UPLOAD_MAX_SIZE_BYTES"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsDevelopment reports whether the service runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return strings.EqualFold(a.Env, "development")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TTL returns the cache time-to-live.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// LoaderTimeout bounds a single account store lookup.
func (a AuthConfig) LoaderTimeout() time.Duration {
	return time.Duration(a.LoaderTimeoutMillis) * time.Millisecond
}

// ExpiryWarning is the advisory "expiring soon" threshold.
func (a AuthConfig) ExpiryWarning() time.Duration {
	return time.Duration(a.ExpiryWarningMinutes) * time.Minute
}

// Window returns the rate limiting window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
