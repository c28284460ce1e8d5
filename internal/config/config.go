package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Client       ClientConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	FrontendURL           string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	AccessTokenSecret        string
	RefreshTokenSecret       string
	AccessTokenTTLMinutes    int
	RefreshTokenTTLMinutes   int
	BcryptCost               int
	OTPTTLMinutes            int
	OTPVerifiedTTLMinutes    int
	CookieSecure             bool
	EnforceRefreshRevocation bool
}

// NotificationConfig holds stub notification settings.
type NotificationConfig struct {
	EmailFrom string
}

// ClientConfig configures the session client used by the CLI.
type ClientConfig struct {
	BaseURL         string
	CredentialsFile string
	TimeoutSeconds  int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "storefront-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AccessTokenSecret:        getEnv("SECRET_KEY_ACCESS_TOKEN", "dev-access-secret"),
			RefreshTokenSecret:       getEnv("SECRET_KEY_REFRESH_TOKEN", "dev-refresh-secret"),
			AccessTokenTTLMinutes:    getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 5*60),
			RefreshTokenTTLMinutes:   getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_MINUTES", 7*24*60),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 10),
			OTPTTLMinutes:            getEnvAsInt("AUTH_OTP_TTL_MINUTES", 60),
			OTPVerifiedTTLMinutes:    getEnvAsInt("AUTH_OTP_VERIFIED_TTL_MINUTES", 15),
			CookieSecure:             getEnvAsBool("AUTH_COOKIE_SECURE", true),
			EnforceRefreshRevocation: getEnvAsBool("AUTH_ENFORCE_REFRESH_REVOCATION", true),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@binkeyit.com"),
		},
		Client: ClientConfig{
			BaseURL:         getEnv("STOREFRONT_API_URL", "http://localhost:8080"),
			CredentialsFile: getEnv("STOREFRONT_CREDENTIALS_FILE", defaultCredentialsFile()),
			TimeoutSeconds:  getEnvAsInt("STOREFRONT_HTTP_TIMEOUT_SECONDS", 15),
		},
	}

	if cfg.Auth.AccessTokenSecret == cfg.Auth.RefreshTokenSecret {
		return nil, fmt.Errorf("SECRET_KEY_ACCESS_TOKEN and SECRET_KEY_REFRESH_TOKEN must differ")
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

// AccessTokenTTL returns the access credential lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh credential lifetime.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLMinutes) * time.Minute
}

// OTPTTL returns how long a password reset OTP stays valid.
func (a AuthConfig) OTPTTL() time.Duration {
	return time.Duration(a.OTPTTLMinutes) * time.Minute
}

// OTPVerifiedTTL returns how long a verified OTP allows a password reset.
func (a AuthConfig) OTPVerifiedTTL() time.Duration {
	return time.Duration(a.OTPVerifiedTTLMinutes) * time.Minute
}

// Timeout returns the client HTTP timeout.
func (c ClientConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront-credentials.json"
	}
	return home + string(os.PathSeparator) + ".storefront-credentials.json"
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
