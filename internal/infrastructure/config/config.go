package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Gateway   GatewayConfig
	Realtime  RealtimeConfig
	Dashboard DashboardConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// GatewayConfig holds the remote data gateway connection. URL is a
// postgres:// URL without password; Key is the access key used as the
// password.
type GatewayConfig struct {
	URL             string
	Key             string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RealtimeConfig selects how change notifications are delivered
type RealtimeConfig struct {
	Driver               string // postgres, redis, memory
	Channel              string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	// FallbackToMemory uses the in-process feed when the configured driver
	// cannot be reached at startup.
	FallbackToMemory bool
}

// DashboardConfig holds cache behaviour settings
type DashboardConfig struct {
	FetchTimeout      time.Duration
	FetchOrdering     string // sequenced, last_completed
	DefaultMemberType string
	TopInvestors      int
	// SessionIdle is how long a signed-in client's page positions survive
	// without a request.
	SessionIdle time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds session token settings
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	SSEHeartbeat     time.Duration
	SSEMaxClients    int
	MaxBodyBytes     int64
	SignInLimit      int
	SignInWindow     time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
	// SamplingRatio is the share of traces recorded, from 0 to 1.
	SamplingRatio float64
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with IRDASH_ prefix (e.g., IRDASH_GATEWAY_KEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("IRDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Zero is a meaningful ratio, so it cannot be defaulted after reading.
	v.SetDefault("telemetry.sampling_ratio", 1.0)

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Gateway: GatewayConfig{
			URL:             v.GetString("gateway.url"),
			Key:             v.GetString("gateway.key"),
			SSLMode:         v.GetString("gateway.sslmode"),
			MaxOpenConns:    v.GetInt("gateway.max_open_conns"),
			MaxIdleConns:    v.GetInt("gateway.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("gateway.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("gateway.conn_max_idle_time"),
		},
		Realtime: RealtimeConfig{
			Driver:               v.GetString("realtime.driver"),
			Channel:              v.GetString("realtime.channel"),
			MinReconnectInterval: v.GetDuration("realtime.min_reconnect_interval"),
			MaxReconnectInterval: v.GetDuration("realtime.max_reconnect_interval"),
			FallbackToMemory:     v.GetBool("realtime.fallback_to_memory"),
		},
		Dashboard: DashboardConfig{
			FetchTimeout:      v.GetDuration("dashboard.fetch_timeout"),
			FetchOrdering:     v.GetString("dashboard.fetch_ordering"),
			DefaultMemberType: v.GetString("dashboard.default_member_type"),
			TopInvestors:      v.GetInt("dashboard.top_investors"),
			SessionIdle:       v.GetDuration("dashboard.session_idle"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			SSEHeartbeat:     v.GetDuration("http.sse_heartbeat"),
			SSEMaxClients:    v.GetInt("http.sse_max_clients"),
			MaxBodyBytes:     v.GetInt64("http.max_body_bytes"),
			SignInLimit:      v.GetInt("http.sign_in_limit"),
			SignInWindow:     v.GetDuration("http.sign_in_window"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
		},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "irdash-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Gateway.SSLMode == "" {
		cfg.Gateway.SSLMode = "disable"
	}
	if cfg.Gateway.MaxOpenConns == 0 {
		cfg.Gateway.MaxOpenConns = 10
	}
	if cfg.Gateway.MaxIdleConns == 0 {
		cfg.Gateway.MaxIdleConns = 2
	}
	if cfg.Gateway.ConnMaxLifetime == 0 {
		cfg.Gateway.ConnMaxLifetime = 60
	}
	if cfg.Gateway.ConnMaxIdleTime == 0 {
		cfg.Gateway.ConnMaxIdleTime = 30
	}
	if cfg.Realtime.Driver == "" {
		cfg.Realtime.Driver = "postgres"
	}
	if cfg.Realtime.Channel == "" {
		cfg.Realtime.Channel = "row_changes"
	}
	if cfg.Realtime.MinReconnectInterval == 0 {
		cfg.Realtime.MinReconnectInterval = 10 * time.Second
	}
	if cfg.Realtime.MaxReconnectInterval == 0 {
		cfg.Realtime.MaxReconnectInterval = time.Minute
	}
	if cfg.Dashboard.FetchTimeout == 0 {
		cfg.Dashboard.FetchTimeout = 10 * time.Second
	}
	if cfg.Dashboard.FetchOrdering == "" {
		cfg.Dashboard.FetchOrdering = "sequenced"
	}
	if cfg.Dashboard.DefaultMemberType == "" {
		cfg.Dashboard.DefaultMemberType = "Co-Investor"
	}
	if cfg.Dashboard.TopInvestors == 0 {
		cfg.Dashboard.TopInvestors = 5
	}
	if cfg.Dashboard.SessionIdle == 0 {
		cfg.Dashboard.SessionIdle = 30 * time.Minute
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 12 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "irdash-backend"
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// SSE streams need an unbounded write timeout.
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.SSEHeartbeat == 0 {
		cfg.HTTP.SSEHeartbeat = 30 * time.Second
	}
	if cfg.HTTP.SSEMaxClients == 0 {
		cfg.HTTP.SSEMaxClients = 1000
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.HTTP.SignInLimit == 0 {
		cfg.HTTP.SignInLimit = 10
	}
	if cfg.HTTP.SignInWindow == 0 {
		cfg.HTTP.SignInWindow = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "irdash-backend"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration. A missing gateway is
// not an error: the server starts and every gateway call reports it.
func (c *Config) validate() error {
	if c.Gateway.MaxOpenConns <= 0 {
		return fmt.Errorf("gateway.max_open_conns must be positive")
	}
	if c.Gateway.MaxIdleConns > c.Gateway.MaxOpenConns {
		return fmt.Errorf("gateway.max_idle_conns (%d) cannot exceed gateway.max_open_conns (%d)",
			c.Gateway.MaxIdleConns, c.Gateway.MaxOpenConns)
	}

	switch c.Realtime.Driver {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("realtime.driver must be one of postgres, redis, memory, got %q", c.Realtime.Driver)
	}

	switch c.Dashboard.FetchOrdering {
	case "sequenced", "last_completed":
	default:
		return fmt.Errorf("dashboard.fetch_ordering must be sequenced or last_completed, got %q", c.Dashboard.FetchOrdering)
	}
	if c.Dashboard.FetchTimeout < 0 {
		return fmt.Errorf("dashboard.fetch_timeout cannot be negative")
	}
	if c.Dashboard.SessionIdle < 0 {
		return fmt.Errorf("dashboard.session_idle cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Gateway.SSLMode == "disable" {
			return fmt.Errorf("gateway.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}
	return nil
}

// IsConfigured reports whether the gateway URL is a usable postgres URL with
// a host and the access key is set.
func (g *GatewayConfig) IsConfigured() bool {
	if strings.TrimSpace(g.Key) == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(g.URL))
	if err != nil {
		return false
	}
	return (u.Scheme == "postgres" || u.Scheme == "postgresql") && u.Hostname() != ""
}

// DSN returns the connection string with the access key as password. The
// URL's own sslmode wins over SSLMode.
func (g *GatewayConfig) DSN() string {
	u, err := url.Parse(strings.TrimSpace(g.URL))
	if err != nil {
		return ""
	}
	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, g.Key)
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", g.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
