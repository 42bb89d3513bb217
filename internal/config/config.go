package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Email    EmailConfig
	Storage  StorageConfig
	Log      LogConfig
	CORS     CORSConfig
	Metrics  MetricsConfig
	Jobs     JobsConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	PublicURL    string `mapstructure:"public_url"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: "single", "sentinel" or "cluster". Defaults to "single".
	Mode string `mapstructure:"mode"`

	// Addrs is used by every mode; single mode takes the first entry.
	Addrs []string `mapstructure:"addrs"`

	// Addr is the single-mode fallback when Addrs is empty.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName is required in sentinel mode.
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig holds the signing settings of the local identity provider.
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	KeyID          string        `mapstructure:"key_id"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	WSTicketTTL    time.Duration `mapstructure:"ws_ticket_ttl"`
}

// AuthConfig содержит настройки аутентификации
type AuthConfig struct {
	RefreshTokenTTL          time.Duration `mapstructure:"refresh_token_ttl"`
	SessionLimit             int           `mapstructure:"session_limit"`
	MinPasswordLength        int           `mapstructure:"min_password_length"`
	RequireEmailConfirmation bool          `mapstructure:"require_email_confirmation"`
	VerificationCodeTTL      time.Duration `mapstructure:"verification_code_ttl"`
	ResendCooldown           time.Duration `mapstructure:"resend_cooldown"`
	MaxVerificationAttempts  int           `mapstructure:"max_verification_attempts"`
	CodePepper               string        `mapstructure:"code_pepper"`
	RateLimitPerMinute       int           `mapstructure:"rate_limit_per_minute"`
}

// EmailConfig selects the transactional email sender.
type EmailConfig struct {
	Provider     string `mapstructure:"provider"` // "noop" or "resend"
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// StorageConfig selects the backend for uploaded images.
type StorageConfig struct {
	Backend        string             `mapstructure:"backend"` // "local" or "s3"
	MaxUploadBytes int64              `mapstructure:"max_upload_bytes"`
	Local          LocalStorageConfig `mapstructure:"local"`
	S3             S3StorageConfig    `mapstructure:"s3"`
}

type LocalStorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
	// URLPrefix is the route under which BaseDir is served, e.g. "/uploads".
	URLPrefix string `mapstructure:"url_prefix"`
}

type S3StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	// PublicBaseURL, when set, is used for object URLs instead of presigning.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type JobsConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL для golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "5000")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 30)

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.max_open_conns", 25)
	vip.SetDefault("database.max_idle_conns", 10)
	vip.SetDefault("database.conn_max_lifetime", time.Hour)
	vip.SetDefault("database.migrations_path", "migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")

	vip.SetDefault("jwt.key_id", "default")
	vip.SetDefault("jwt.issuer", "marketplace-api")
	vip.SetDefault("jwt.access_token_ttl", time.Hour)
	vip.SetDefault("jwt.ws_ticket_ttl", 60*time.Second)

	vip.SetDefault("auth.refresh_token_ttl", 30*24*time.Hour)
	vip.SetDefault("auth.session_limit", 10)
	vip.SetDefault("auth.min_password_length", 6)
	vip.SetDefault("auth.require_email_confirmation", true)
	vip.SetDefault("auth.verification_code_ttl", 15*time.Minute)
	vip.SetDefault("auth.resend_cooldown", 60*time.Second)
	vip.SetDefault("auth.max_verification_attempts", 5)
	vip.SetDefault("auth.rate_limit_per_minute", 10)

	vip.SetDefault("email.provider", "noop")

	vip.SetDefault("storage.backend", "local")
	vip.SetDefault("storage.max_upload_bytes", 5*1024*1024)
	vip.SetDefault("storage.local.base_dir", "./uploads")
	vip.SetDefault("storage.local.url_prefix", "/uploads")

	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.format", "json")

	vip.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	vip.SetDefault("metrics.enabled", true)
	vip.SetDefault("jobs.cleanup_interval", time.Hour)
}

func bindEnv(vip *viper.Viper) {
	// Server
	vip.BindEnv("server.port", "PORT", "SERVER_PORT")
	vip.BindEnv("server.public_url", "SERVER_PUBLIC_URL")

	// Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	// Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// JWT
	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.key_id", "JWT_KEY_ID")
	vip.BindEnv("jwt.access_token_ttl", "JWT_ACCESS_TOKEN_TTL")
	vip.BindEnv("jwt.ws_ticket_ttl", "JWT_WS_TICKET_TTL")

	// Auth
	vip.BindEnv("auth.refresh_token_ttl", "AUTH_REFRESH_TOKEN_TTL")
	vip.BindEnv("auth.session_limit", "AUTH_SESSION_LIMIT")
	vip.BindEnv("auth.require_email_confirmation", "AUTH_REQUIRE_EMAIL_CONFIRMATION")
	vip.BindEnv("auth.code_pepper", "AUTH_CODE_PEPPER")
	vip.BindEnv("auth.rate_limit_per_minute", "AUTH_RATE_LIMIT_PER_MINUTE")

	// Email
	vip.BindEnv("email.provider", "EMAIL_PROVIDER")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	// Storage
	vip.BindEnv("storage.backend", "STORAGE_BACKEND")
	vip.BindEnv("storage.local.base_dir", "STORAGE_LOCAL_BASE_DIR")
	vip.BindEnv("storage.s3.bucket", "STORAGE_S3_BUCKET")
	vip.BindEnv("storage.s3.region", "STORAGE_S3_REGION")
	vip.BindEnv("storage.s3.endpoint", "STORAGE_S3_ENDPOINT")
	vip.BindEnv("storage.s3.access_key_id", "STORAGE_S3_ACCESS_KEY_ID")
	vip.BindEnv("storage.s3.secret_access_key", "STORAGE_S3_SECRET_ACCESS_KEY")
	vip.BindEnv("storage.s3.use_path_style", "STORAGE_S3_USE_PATH_STYLE")
	vip.BindEnv("storage.s3.public_base_url", "STORAGE_S3_PUBLIC_BASE_URL")

	// Logging / CORS / metrics
	vip.BindEnv("log.level", "LOG_LEVEL")
	vip.BindEnv("log.format", "LOG_FORMAT")
	vip.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")
	vip.BindEnv("metrics.enabled", "METRICS_ENABLED")
	vip.BindEnv("jobs.cleanup_interval", "JOBS_CLEANUP_INTERVAL")
}

// Load загружает конфигурацию из файла и переменных окружения.
// Файл необязателен: все ключи можно задать через env.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	vip := viper.New()
	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
				log.Info().Msgf("Config file %q not found, using environment and defaults", configPath)
			} else {
				log.Warn().Err(err).Msgf("Failed to read config file %q", configPath)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS and CORS_ALLOWED_ORIGINS arrive as one comma-separated string
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.DBName).
		Str("redis_mode", cfg.Redis.Mode).
		Str("storage", cfg.Storage.Backend).
		Str("email", cfg.Email.Provider).
		Bool("require_email_confirmation", cfg.Auth.RequireEmailConfirmation).
		Str("port", cfg.Server.Port).
		Msg("Configuration loaded")

	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 characters (check JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if os.Getenv("GIN_MODE") == "release" && c.Database.Password == "" {
		return fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}
	switch c.Email.Provider {
	case "noop", "":
	case "resend":
		if c.Email.ResendAPIKey == "" || c.Email.From == "" {
			return fmt.Errorf("resend email provider requires RESEND_API_KEY and EMAIL_FROM")
		}
	default:
		return fmt.Errorf("unknown email provider %q", c.Email.Provider)
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" || c.Storage.S3.Region == "" {
			return fmt.Errorf("s3 storage requires bucket and region")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
