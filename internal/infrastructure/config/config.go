// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultFolderURL is the shared folder users are sent to after saving.
const DefaultFolderURL = "https://drive.google.com/drive/folders/1hJfNLbEMKnLaV2QqtuJombf_G5Mn0rkl"

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Session    SessionConfig    `mapstructure:"session"`
	AI         AIConfig         `mapstructure:"ai"`
	Export     ExportConfig     `mapstructure:"export"`
	State      StateConfig      `mapstructure:"state"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`

	v *viper.Viper
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	LogOutput   string `mapstructure:"log_output"`
	Locale      string `mapstructure:"locale"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SessionConfig contains browser session configuration
type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
	Secure     bool          `mapstructure:"secure"`
}

// AIConfig contains Gemini configuration
type AIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	TextModel      string        `mapstructure:"text_model"`
	ImageModel     string        `mapstructure:"image_model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ResolveAPIKey returns the configured key, falling back to the
// GEMINI_API_KEY and API_KEY environment variables. It is read on every
// call so a key exported after startup is picked up.
func (a AIConfig) ResolveAPIKey() string {
	if a.APIKey != "" {
		return a.APIKey
	}
	if key := os.Getenv("CHEFNANO_AI_API_KEY"); key != "" {
		return key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("API_KEY")
}

// ExportConfig contains image save configuration
type ExportConfig struct {
	FolderURL      string        `mapstructure:"folder_url"`
	BannerDuration time.Duration `mapstructure:"banner_duration"`
	S3             S3Config      `mapstructure:"s3"`
	LocalDir       string        `mapstructure:"local_dir"`
}

// S3Config configures the optional bucket sharer. An empty bucket disables it.
type S3Config struct {
	Bucket         string `mapstructure:"bucket"`
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	Prefix         string `mapstructure:"prefix"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	// Static credentials; when empty the default AWS chain is used.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// StateConfig selects the session state repository
type StateConfig struct {
	Store       string        `mapstructure:"store"`
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
}

// MonitoringConfig contains observability configuration
type MonitoringConfig struct {
	EnableMetrics   bool    `mapstructure:"enable_metrics"`
	EnableTracing   bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	HealthCheckPath string  `mapstructure:"health_check_path"`
	ReadinessPath   string  `mapstructure:"readiness_path"`
	LivenessPath    string  `mapstructure:"liveness_path"`
	MetricsPath     string  `mapstructure:"metrics_path"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	BurstSize       int           `mapstructure:"burst_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/chefnano")
	}

	// Enable environment variable override
	v.SetEnvPrefix("CHEFNANO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}
	config.v = v

	return config, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// OnChange watches the config file and calls fn with the reloaded
// configuration after every write. Invalid edits are reported through
// onError and otherwise ignored. It does nothing when no file was loaded.
func (c *Config) OnChange(fn func(*Config), onError func(error)) bool {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return false
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(c.v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		fn(next)
	})
	c.v.WatchConfig()

	return true
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Chef Nano: Smart Kitchen")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_output", "stdout")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.locale", "ko")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.poll_interval", "1s")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)

	// Session defaults
	v.SetDefault("session.secret", "")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie_name", "chefnano_session")

	// AI defaults
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.text_model", "gemini-3-flash-preview")
	v.SetDefault("ai.image_model", "gemini-2.5-flash-image")
	v.SetDefault("ai.request_timeout", "0s")

	// Export defaults
	v.SetDefault("export.folder_url", DefaultFolderURL)
	v.SetDefault("export.banner_duration", "8s")
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.region", "us-east-1")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.prefix", "recipes/")
	v.SetDefault("export.s3.force_path_style", false)
	v.SetDefault("export.s3.access_key_id", "")
	v.SetDefault("export.s3.secret_access_key", "")
	v.SetDefault("export.local_dir", "")

	// State defaults
	v.SetDefault("state.store", "memory")
	v.SetDefault("state.ttl", "24h")
	v.SetDefault("state.max_sessions", 10000)
	v.SetDefault("state.key_prefix", "chefnano:state:")

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "")
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/ready")
	v.SetDefault("monitoring.liveness_path", "/live")
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_min", 120)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.cleanup_interval", "1m")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Session.Secret == "" && c.IsProduction() {
		return fmt.Errorf("session.secret is required in production")
	}

	// Validate port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.State.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("state.store must be memory or redis, got %q", c.State.Store)
	}

	switch c.App.Locale {
	case "ko", "en":
	default:
		return fmt.Errorf("app.locale must be ko or en, got %q", c.App.Locale)
	}

	if c.AI.TextModel == "" || c.AI.ImageModel == "" {
		return fmt.Errorf("ai.text_model and ai.image_model are required")
	}

	if c.Export.BannerDuration < 0 || c.AI.RequestTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
