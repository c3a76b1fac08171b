package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all gateway configuration
type Config struct {
	App             AppConfig       `mapstructure:"app"`
	Server          ServerConfig    `mapstructure:"server"`
	Log             LogConfig       `mapstructure:"log"`
	Session         SessionConfig   `mapstructure:"session"`
	SessionDatabase DatabaseConfig  `mapstructure:"session_database"` // postgres box backend
	Redis           RedisConfig     `mapstructure:"redis"`
	Upstream        UpstreamConfig  `mapstructure:"upstream"`
	Login           LoginConfig     `mapstructure:"login"`
	MockAuth        MockAuthConfig  `mapstructure:"mock_auth"`
	Kafka           KafkaConfig     `mapstructure:"kafka"`
	OTel            OTelConfig      `mapstructure:"otel"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// AllowedOrigin is the browser origin allowed to send credentialed requests
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Session box backends
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// SessionConfig holds session box settings
type SessionConfig struct {
	// Backend selects the box implementation: redis, postgres, memory
	Backend    string        `mapstructure:"backend"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
	// CookieSecure marks the session cookie Secure; off for local dev
	CookieSecure bool `mapstructure:"cookie_secure"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// UpstreamConfig holds the remote analytics backend settings
type UpstreamConfig struct {
	// BaseURL of the KrishiSat analytics API
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// MockAuth switches the OTP gateway to the local development issuer
	MockAuth bool `mapstructure:"mock_auth"`
}

// LoginConfig holds login flow settings
type LoginConfig struct {
	// AttemptTTL is how long an idle login attempt is kept before pruning
	AttemptTTL time.Duration `mapstructure:"attempt_ttl"`
}

// MockAuthConfig holds the development OTP issuer settings
type MockAuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
	OTPTTL    time.Duration `mapstructure:"otp_ttl"`
}

// KafkaConfig holds Kafka/Redpanda settings for audit events
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServiceName   string `mapstructure:"service_name"`
	CollectorAddr string `mapstructure:"collector_addr"`
}

// RateLimitConfig holds the auth-route token bucket settings
type RateLimitConfig struct {
	AuthRPS   float64 `mapstructure:"auth_rps"`
	AuthBurst int     `mapstructure:"auth_burst"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// .env is optional, env vars alone are fine
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithPath loads configuration from a specific env file
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "krishisat-gateway")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	v.SetDefault("SERVER_ALLOWED_ORIGIN", "http://localhost:5173")

	// Log defaults
	v.SetDefault("LOG_LEVEL", "info")

	// Session defaults
	v.SetDefault("SESSION_BACKEND", "redis")
	v.SetDefault("SESSION_COOKIE_NAME", "krishisat_session")
	v.SetDefault("SESSION_TTL", "720h") // 30 days
	v.SetDefault("SESSION_COOKIE_SECURE", false)

	// Session database defaults (postgres backend)
	v.SetDefault("SESSION_DATABASE_HOST", "localhost")
	v.SetDefault("SESSION_DATABASE_PORT", 5432)
	v.SetDefault("SESSION_DATABASE_USER", "postgres")
	v.SetDefault("SESSION_DATABASE_PASSWORD", "postgres")
	v.SetDefault("SESSION_DATABASE_DBNAME", "krishisat_sessions")
	v.SetDefault("SESSION_DATABASE_SSLMODE", "disable")
	v.SetDefault("SESSION_DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("SESSION_DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("SESSION_DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("SESSION_DATABASE_CONN_MAX_IDLE_TIME", "30m")

	// Redis defaults
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Upstream defaults
	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:8000")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")
	v.SetDefault("UPSTREAM_MOCK_AUTH", true)

	// Login flow defaults
	v.SetDefault("LOGIN_ATTEMPT_TTL", "15m")

	// Mock auth defaults
	v.SetDefault("MOCK_AUTH_JWT_SECRET", "dev-secret-change-in-production")
	v.SetDefault("MOCK_AUTH_TOKEN_TTL", "720h")
	v.SetDefault("MOCK_AUTH_ISSUER", "krishisat-gateway")
	v.SetDefault("MOCK_AUTH_OTP_TTL", "5m")

	// Kafka defaults
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "krishisat.auth.events")
	v.SetDefault("KAFKA_CLIENT_ID", "krishisat-gateway")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "krishisat-gateway")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")

	// Rate limit defaults (auth endpoints only)
	v.SetDefault("RATE_LIMIT_AUTH_RPS", 20.0)
	v.SetDefault("RATE_LIMIT_AUTH_BURST", 5)
}

func bindConfig(v *viper.Viper, cfg *Config) {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")
	cfg.Server.AllowedOrigin = v.GetString("SERVER_ALLOWED_ORIGIN")

	// Log
	cfg.Log.Level = v.GetString("LOG_LEVEL")

	// Session
	cfg.Session.Backend = v.GetString("SESSION_BACKEND")
	cfg.Session.CookieName = v.GetString("SESSION_COOKIE_NAME")
	cfg.Session.TTL = v.GetDuration("SESSION_TTL")
	cfg.Session.CookieSecure = v.GetBool("SESSION_COOKIE_SECURE")

	// Session database
	cfg.SessionDatabase.Host = v.GetString("SESSION_DATABASE_HOST")
	cfg.SessionDatabase.Port = v.GetInt("SESSION_DATABASE_PORT")
	cfg.SessionDatabase.User = v.GetString("SESSION_DATABASE_USER")
	cfg.SessionDatabase.Password = v.GetString("SESSION_DATABASE_PASSWORD")
	cfg.SessionDatabase.DBName = v.GetString("SESSION_DATABASE_DBNAME")
	cfg.SessionDatabase.SSLMode = v.GetString("SESSION_DATABASE_SSLMODE")
	cfg.SessionDatabase.MaxOpenConns = v.GetInt("SESSION_DATABASE_MAX_OPEN_CONNS")
	cfg.SessionDatabase.MaxIdleConns = v.GetInt("SESSION_DATABASE_MAX_IDLE_CONNS")
	cfg.SessionDatabase.ConnMaxLifetime = v.GetDuration("SESSION_DATABASE_CONN_MAX_LIFETIME")
	cfg.SessionDatabase.ConnMaxIdleTime = v.GetDuration("SESSION_DATABASE_CONN_MAX_IDLE_TIME")

	// Redis
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Upstream
	cfg.Upstream.BaseURL = v.GetString("UPSTREAM_BASE_URL")
	cfg.Upstream.Timeout = v.GetDuration("UPSTREAM_TIMEOUT")
	cfg.Upstream.MockAuth = v.GetBool("UPSTREAM_MOCK_AUTH")

	// Login flow
	cfg.Login.AttemptTTL = v.GetDuration("LOGIN_ATTEMPT_TTL")

	// Mock auth
	cfg.MockAuth.JWTSecret = v.GetString("MOCK_AUTH_JWT_SECRET")
	cfg.MockAuth.TokenTTL = v.GetDuration("MOCK_AUTH_TOKEN_TTL")
	cfg.MockAuth.Issuer = v.GetString("MOCK_AUTH_ISSUER")
	cfg.MockAuth.OTPTTL = v.GetDuration("MOCK_AUTH_OTP_TTL")

	// Kafka
	cfg.Kafka.Enabled = v.GetBool("KAFKA_ENABLED")
	cfg.Kafka.Brokers = strings.Split(v.GetString("KAFKA_BROKERS"), ",")
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")

	// Rate limit
	cfg.RateLimit.AuthRPS = v.GetFloat64("RATE_LIMIT_AUTH_RPS")
	cfg.RateLimit.AuthBurst = v.GetInt("RATE_LIMIT_AUTH_BURST")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Session.Backend {
	case BackendRedis, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("invalid session backend: %s", c.Session.Backend)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Upstream.BaseURL == "" && !c.Upstream.MockAuth {
		return fmt.Errorf("upstream base URL is required when mock auth is disabled")
	}

	if c.Upstream.MockAuth && c.MockAuth.JWTSecret == "" {
		return fmt.Errorf("mock auth JWT secret is required")
	}

	if c.App.Environment == "production" && c.Upstream.MockAuth {
		return fmt.Errorf("mock auth must be disabled in production")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
