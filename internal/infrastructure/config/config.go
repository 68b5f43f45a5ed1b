package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	Redis       RedisConfig
	Marketplace MarketplaceConfig
	HTTP        HTTPConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// RedisConfig holds Redis connection settings for the shared quota store
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MarketplaceConfig holds the marketplace client settings
type MarketplaceConfig struct {
	// Endpoint is the provider base URL
	Endpoint string
	// AuthToken is the bearer token presented on every call
	AuthToken string
	// RequestTimeout bounds one HTTP exchange
	RequestTimeout time.Duration
	// AdmissionTimeout bounds the wait for a rate-limit token
	AdmissionTimeout time.Duration
	// MaxAttempts bounds local retries of transient failures
	MaxAttempts int
	// BaseBackoff is the backoff before the first retry
	BaseBackoff time.Duration
	// MaxBackoff caps a single backoff sleep
	MaxBackoff time.Duration
	// BackoffMultiplier grows the backoff per retry
	BackoffMultiplier float64
	// MaxPages bounds pagination drains
	MaxPages int
	// SharedQuota routes daily-quota tracking through Redis so several
	// instances can drain one provider account
	SharedQuota bool
}

// HTTPConfig holds the ops HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool   // Whether to enable OpenTelemetry
	CollectorEndpoint string // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string // Service name attached to exported metrics
	ExportInterval    time.Duration
	Insecure          bool // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with OPS_ prefix (e.g., OPS_MARKETPLACE_AUTH_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("OPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Marketplace: MarketplaceConfig{
			Endpoint:          v.GetString("marketplace.endpoint"),
			AuthToken:         v.GetString("marketplace.auth_token"),
			RequestTimeout:    v.GetDuration("marketplace.request_timeout"),
			AdmissionTimeout:  v.GetDuration("marketplace.admission_timeout"),
			MaxAttempts:       v.GetInt("marketplace.max_attempts"),
			BaseBackoff:       v.GetDuration("marketplace.base_backoff"),
			MaxBackoff:        v.GetDuration("marketplace.max_backoff"),
			BackoffMultiplier: v.GetFloat64("marketplace.backoff_multiplier"),
			MaxPages:          v.GetInt("marketplace.max_pages"),
			SharedQuota:       v.GetBool("marketplace.shared_quota"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "commerceops-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Marketplace.Endpoint == "" {
		cfg.Marketplace.Endpoint = "https://sellingpartnerapi-na.amazon.com"
	}
	if cfg.Marketplace.RequestTimeout == 0 {
		cfg.Marketplace.RequestTimeout = 30 * time.Second
	}
	if cfg.Marketplace.AdmissionTimeout == 0 {
		cfg.Marketplace.AdmissionTimeout = 10 * time.Second
	}
	if cfg.Marketplace.MaxAttempts == 0 {
		cfg.Marketplace.MaxAttempts = 3
	}
	if cfg.Marketplace.BaseBackoff == 0 {
		cfg.Marketplace.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.Marketplace.MaxBackoff == 0 {
		cfg.Marketplace.MaxBackoff = 8 * time.Second
	}
	if cfg.Marketplace.BackoffMultiplier == 0 {
		cfg.Marketplace.BackoffMultiplier = 2
	}
	if cfg.Marketplace.MaxPages == 0 {
		cfg.Marketplace.MaxPages = 10
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "commerceops-backend"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	// Note: Insecure defaults to false for safety (TLS enabled by default)
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Marketplace.MaxAttempts < 1 {
		return fmt.Errorf("marketplace.max_attempts must be at least 1")
	}
	if c.Marketplace.BackoffMultiplier < 1 {
		return fmt.Errorf("marketplace.backoff_multiplier must be at least 1")
	}
	if c.Marketplace.BaseBackoff > c.Marketplace.MaxBackoff {
		return fmt.Errorf("marketplace.base_backoff (%s) cannot exceed marketplace.max_backoff (%s)",
			c.Marketplace.BaseBackoff, c.Marketplace.MaxBackoff)
	}
	if c.Marketplace.MaxPages < 1 {
		return fmt.Errorf("marketplace.max_pages must be at least 1")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Marketplace.AuthToken == "" {
			return fmt.Errorf("marketplace.auth_token is required in production")
		}
		if !strings.HasPrefix(c.Marketplace.Endpoint, "https://") {
			return fmt.Errorf("marketplace.endpoint must use https in production")
		}
	}

	return nil
}

// Addr returns the Redis connection address.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
