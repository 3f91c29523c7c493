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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Cache        CacheConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
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
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	HashConcurrency       int64
	AllowRoleOnRegister   bool
	AdminEmail            string
	AdminPassword         string
	AdminName             string
}

// StorageConfig describes the S3 bucket used for profile pictures.
type StorageConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicBaseURL   string
	UsePathStyle    bool
	MaxUploadBytes  int
}

// NotificationConfig tunes the websocket broadcast channel.
type NotificationConfig struct {
	SendTimeoutSeconds  int
	RequireAuth         bool
	BroadcastUserEvents bool

	// PublicBroadcast drops the token requirement on POST /api/notification.
	PublicBroadcast bool
}

// CacheConfig controls the Redis read-through user cache.
type CacheConfig struct {
	UserTTLSeconds int
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
	maxUpload := getEnvAsInt("UPLOAD_MAX_BYTES", 10*1024*1024)

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("HOST", "0.0.0.0"),
			Port:                  getEnv("PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			// multipart framing needs headroom over the file itself
			BodyLimitBytes: getEnvAsInt("HTTP_BODY_LIMIT_BYTES", maxUpload+1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:             getEnv("DATABASE_URL", os.Getenv("POSTGRES_DSN")),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
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
			JWTSecret:             os.Getenv("JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			HashConcurrency:       int64(getEnvAsInt("AUTH_HASH_CONCURRENCY", 4)),
			AllowRoleOnRegister:   getEnvAsBool("AUTH_ALLOW_ROLE_ON_REGISTER", false),
			AdminEmail:            os.Getenv("AUTH_ADMIN_EMAIL"),
			AdminPassword:         os.Getenv("AUTH_ADMIN_PASSWORD"),
			AdminName:             getEnv("AUTH_ADMIN_NAME", "Administrator"),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("AWS_BUCKET_NAME"),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        os.Getenv("AWS_S3_ENDPOINT"),
			PublicBaseURL:   os.Getenv("AWS_S3_PUBLIC_BASE_URL"),
			UsePathStyle:    getEnvAsBool("AWS_S3_USE_PATH_STYLE", false),
			MaxUploadBytes:  maxUpload,
		},
		Notification: NotificationConfig{
			SendTimeoutSeconds:  getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 5),
			RequireAuth:         getEnvAsBool("NOTIFY_REQUIRE_AUTH", false),
			BroadcastUserEvents: getEnvAsBool("NOTIFY_USER_EVENTS", false),
			PublicBroadcast:     getEnvAsBool("NOTIFY_PUBLIC_BROADCAST", false),
		},
		Cache: CacheConfig{
			UserTTLSeconds: getEnvAsInt("CACHE_USER_TTL_SECONDS", 60),
		},
	}

	if cfg.Auth.JWTSecret == "" && cfg.App.IsDevelopment() {
		cfg.Auth.JWTSecret = "supersecretkey"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.HashConcurrency <= 0 {
		errs = append(errs, errors.New("AUTH_HASH_CONCURRENCY must be positive"))
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		errs = append(errs, errors.New("AUTH_ADMIN_EMAIL and AUTH_ADMIN_PASSWORD must be set together"))
	}
	if c.Storage.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsDevelopment reports whether the service runs with development defaults.
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

// AccessTokenTTL returns the default lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// SendTimeout returns the per-connection send deadline.
func (n NotificationConfig) SendTimeout() time.Duration {
	if n.SendTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(n.SendTimeoutSeconds) * time.Second
}

// UserTTL returns how long cached users stay in Redis.
func (c CacheConfig) UserTTL() time.Duration {
	return time.Duration(c.UserTTLSeconds) * time.Second
}

// Enabled reports whether a bucket was configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
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
