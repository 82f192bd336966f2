package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Intra   IntraConfig   `mapstructure:"intra"`
	Report  ReportConfig  `mapstructure:"report"`
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig defines listener and HTTP settings
type ServerConfig struct {
	BindAddress  string   `mapstructure:"bind_address"`
	HTTPPort     int      `mapstructure:"http_port"`
	MetricsPort  int      `mapstructure:"metrics_port"`
	BaseURL      string   `mapstructure:"base_url"` // Where browsers reach this service
	ReadTimeout  string   `mapstructure:"read_timeout"`
	WriteTimeout string   `mapstructure:"write_timeout"`
	RateLimit    int      `mapstructure:"rate_limit"` // Requests per minute per client IP, 0 disables
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

// IntraConfig defines the upstream 42 intra API and OAuth application
type IntraConfig struct {
	APIURL       string `mapstructure:"api_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	PageSize     int    `mapstructure:"page_size"`
	Timeout      string `mapstructure:"timeout"`
}

// ReportConfig defines how month reports are computed
type ReportConfig struct {
	Timezone    string `mapstructure:"timezone"`
	TargetHours int    `mapstructure:"target_hours"`
}

// SessionConfig defines the browser identity cookie
type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	MaxAge     int    `mapstructure:"max_age"` // Seconds; also the credential index TTL
	Secure     bool   `mapstructure:"secure"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type           string      `mapstructure:"type"` // "memory" or "redis"
	MaxCredentials int         `mapstructure:"max_credentials"`
	Redis          RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv maps config keys to the environment variables older deployments
// set without the LOGTIME_ prefix.
var legacyEnv = map[string]string{
	"intra.client_id":     "FT_CLIENT_ID",
	"intra.client_secret": "FT_CLIENT_SECRET",
	"intra.redirect_uri":  "FT_REDIRECT_URI",
	"server.base_url":     "APP_BASE_URL",
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := New(configPath)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file, use defaults and environment variables
	}

	return Decode(v)
}

// New returns a viper instance with defaults and environment bindings set.
func New(configPath string) *viper.Viper {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("LOGTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := "LOGTIME_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, legacy)
	}

	return v
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Server.BaseURL = strings.TrimRight(config.Server.BaseURL, "/")
	if config.Intra.RedirectURI == "" {
		config.Intra.RedirectURI = config.Server.BaseURL + "/callback"
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.cors_origins", []string{})

	// Intra defaults
	v.SetDefault("intra.api_url", "https://api.intra.42.fr")
	v.SetDefault("intra.client_id", "")
	v.SetDefault("intra.client_secret", "")
	v.SetDefault("intra.redirect_uri", "")
	v.SetDefault("intra.page_size", 100)
	v.SetDefault("intra.timeout", "10s")

	// Report defaults
	v.SetDefault("report.timezone", "Asia/Seoul")
	v.SetDefault("report.target_hours", 80)

	// Session defaults
	v.SetDefault("session.cookie_name", "access_token")
	v.SetDefault("session.max_age", 3600)
	v.SetDefault("session.secure", false)

	// Storage defaults
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.max_credentials", 10000)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.BaseURL == "" {
		return fmt.Errorf("server base_url is required")
	}
	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d", cfg.Server.RateLimit)
	}
	for name, d := range map[string]string{
		"server.read_timeout":  cfg.Server.ReadTimeout,
		"server.write_timeout": cfg.Server.WriteTimeout,
		"intra.timeout":        cfg.Intra.Timeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, d, err)
		}
	}

	if cfg.Intra.APIURL == "" {
		return fmt.Errorf("intra api_url is required")
	}
	if cfg.Intra.PageSize <= 0 || cfg.Intra.PageSize > 100 {
		return fmt.Errorf("invalid intra page size: %d (must be 1-100)", cfg.Intra.PageSize)
	}

	if _, err := time.LoadLocation(cfg.Report.Timezone); err != nil {
		return fmt.Errorf("invalid report timezone %q: %w", cfg.Report.Timezone, err)
	}
	if cfg.Report.TargetHours < 0 {
		return fmt.Errorf("invalid target hours: %d", cfg.Report.TargetHours)
	}

	if cfg.Session.CookieName == "" {
		return fmt.Errorf("session cookie_name is required")
	}
	if cfg.Session.MaxAge <= 0 {
		return fmt.Errorf("invalid session max_age: %d", cfg.Session.MaxAge)
	}

	switch cfg.Storage.Type {
	case "", "memory":
		cfg.Storage.Type = "memory"
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s (must be memory or redis)", cfg.Storage.Type)
	}

	return nil
}

// Location returns the reporting time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Report.Timezone)
}

// IntraTimeout returns the upstream request timeout.
func (c *Config) IntraTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Intra.Timeout)
	return d
}

// SessionTTL returns the lifetime of a browser login.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.MaxAge) * time.Second
}
