// Package config loads the bot's configuration from environment variables
// (and an optional .env file loaded by main) using Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minJWTLength = 32
)

// Settings backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// BotName is the character name used in "/tell <bot> ..." chat links.
	BotName      string `mapstructure:"BOT_NAME" yaml:"bot_name"`
	JwtSecretKey string `mapstructure:"JWT_SECRET_KEY" yaml:"jwt_secret_key"`
}

// OpenWeatherConfig configures the provider client.
type OpenWeatherConfig struct {
	BaseURL string `mapstructure:"BASE_URL" yaml:"base_url"`
	// APIKey seeds the oweather_api_key setting when the store has no value yet.
	APIKey         string `mapstructure:"API_KEY" yaml:"api_key"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
	// RequestsPerMinute caps outbound provider calls. Zero disables the limiter.
	RequestsPerMinute int `mapstructure:"REQUESTS_PER_MINUTE" yaml:"requests_per_minute"`
	Burst             int `mapstructure:"BURST" yaml:"burst"`
}

// Timeout returns the per-request timeout.
func (c OpenWeatherConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SettingsConfig selects where bot settings are persisted.
type SettingsConfig struct {
	Backend    string `mapstructure:"BACKEND" yaml:"backend"`
	SQLitePath string `mapstructure:"SQLITE_PATH" yaml:"sqlite_path"`
	RedisKey   string `mapstructure:"REDIS_KEY" yaml:"redis_key"`
}

// DatabaseConfig holds PostgreSQL connection details for the postgres settings backend.
type DatabaseConfig struct {
	Host           string `mapstructure:"HOST" yaml:"host"`
	Port           int    `mapstructure:"PORT" yaml:"port"`
	User           string `mapstructure:"USER" yaml:"user"`
	Password       string `mapstructure:"PASSWORD" yaml:"password"`
	Name           string `mapstructure:"NAME" yaml:"name"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	SSLMode        string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
}

// URL returns a postgres:// connection URL usable by pgx and golang-migrate.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

// RedisConfig holds Redis connection details. An empty Address disables Redis.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// RateLimitConfig limits chat commands per sender.
type RateLimitConfig struct {
	CommandsPerWindow int `mapstructure:"COMMANDS_PER_WINDOW" yaml:"commands_per_window"`
	WindowSeconds     int `mapstructure:"WINDOW_SECONDS" yaml:"window_seconds"`
}

// Window returns the limiter window.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// TracingConfig enables OpenTelemetry export to Zipkin when ZipkinURL is set.
type TracingConfig struct {
	ZipkinURL   string `mapstructure:"ZIPKIN_URL" yaml:"zipkin_url"`
	ServiceName string `mapstructure:"SERVICE_NAME" yaml:"service_name"`
}

// WorkerPoolConfig holds configuration for the command worker pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	QueueSize              int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	JobTimeoutSeconds      int `mapstructure:"JOB_TIMEOUT_SECONDS" yaml:"job_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server      ServerConfig      `mapstructure:"SERVER" yaml:"server"`
	OpenWeather OpenWeatherConfig `mapstructure:"OPENWEATHER" yaml:"openweather"`
	Settings    SettingsConfig    `mapstructure:"SETTINGS" yaml:"settings"`
	Database    DatabaseConfig    `mapstructure:"DATABASE" yaml:"database"`
	Redis       RedisConfig       `mapstructure:"REDIS" yaml:"redis"`
	RateLimit   RateLimitConfig   `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
	Tracing     TracingConfig     `mapstructure:"TRACING" yaml:"tracing"`
	WorkerPool  WorkerPoolConfig  `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("SERVER.BOT_NAME", "Weatherbot")
	v.SetDefault("SERVER.JWT_SECRET_KEY", "")
	v.SetDefault("OPENWEATHER.BASE_URL", "http://api.openweathermap.org/data/2.5")
	v.SetDefault("OPENWEATHER.API_KEY", "")
	v.SetDefault("OPENWEATHER.TIMEOUT_SECONDS", 10)
	v.SetDefault("OPENWEATHER.REQUESTS_PER_MINUTE", 60) // free tier quota
	v.SetDefault("OPENWEATHER.BURST", 5)
	v.SetDefault("SETTINGS.BACKEND", BackendSQLite)
	v.SetDefault("SETTINGS.SQLITE_PATH", "oweather.db")
	v.SetDefault("SETTINGS.REDIS_KEY", "oweather:settings")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "oweather")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 4)
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("REDIS.ADDRESS", "")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("RATE_LIMIT.COMMANDS_PER_WINDOW", 10)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)
	v.SetDefault("TRACING.ZIPKIN_URL", "")
	v.SetDefault("TRACING.SERVICE_NAME", "oweather-bot")
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 4)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 100)
	v.SetDefault("WORKER_POOL.JOB_TIMEOUT_SECONDS", 30)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 15)
}

// LoadConfig reads defaults and environment variables, unmarshals them into
// Config and validates the result.
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

// load applies defaults and environment bindings on top of whatever v
// already holds, then unmarshals and validates.
func load(v *viper.Viper) (*Config, error) {
	log := logger.GetLogger()

	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.BOT_NAME", "BOT_NAME"},
		{"SERVER.JWT_SECRET_KEY", "JWT_SECRET_KEY"},
		{"OPENWEATHER.API_KEY", "OWEATHER_API_KEY"},
		{"OPENWEATHER.BASE_URL", "OWEATHER_BASE_URL"},
		{"SETTINGS.BACKEND", "SETTINGS_BACKEND"},
		{"SETTINGS.SQLITE_PATH", "SETTINGS_SQLITE_PATH"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"TRACING.ZIPKIN_URL", "ZIPKIN_URL"},
	}
	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"settings_backend", cfg.Settings.Backend,
		"openweather_base_url", cfg.OpenWeather.BaseURL,
		"openweather_api_key", logger.MaskAPIKey(cfg.OpenWeather.APIKey),
		"redis_enabled", cfg.Redis.Enabled(),
		"tracing_enabled", cfg.Tracing.ZipkinURL != "",
	)
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if cfg.Server.BotName == "" {
		return fmt.Errorf("bot name is required")
	}
	if cfg.Server.JwtSecretKey == "" {
		if cfg.Server.Environment == EnvProduction {
			return fmt.Errorf("JWT secret key is required in production")
		}
		log.Warn("JWT secret key is not set, settings endpoints are disabled")
	} else if len(cfg.Server.JwtSecretKey) < minJWTLength {
		return fmt.Errorf("JWT secret key must be at least %d characters long", minJWTLength)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if _, err := url.ParseRequestURI(cfg.OpenWeather.BaseURL); err != nil {
		return fmt.Errorf("invalid openweather base URL: %w", err)
	}
	if cfg.OpenWeather.TimeoutSeconds <= 0 {
		return fmt.Errorf("openweather timeout must be positive")
	}
	if cfg.OpenWeather.RequestsPerMinute < 0 {
		return fmt.Errorf("openweather requests per minute must not be negative")
	}

	switch cfg.Settings.Backend {
	case BackendSQLite:
		if cfg.Settings.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite settings backend")
		}
	case BackendPostgres:
		if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database host, user and name are required for the postgres settings backend")
		}
		if cfg.Database.Password == "" {
			log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
		}
	case BackendRedis:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("redis address is required for the redis settings backend")
		}
	default:
		return fmt.Errorf("unknown settings backend %q", cfg.Settings.Backend)
	}

	if cfg.RateLimit.CommandsPerWindow <= 0 {
		return fmt.Errorf("rate limit commands per window must be positive")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window seconds must be positive")
	}

	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.JobTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool job timeout must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}

	return nil
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
