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
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Log           LogConfig
	HTTP          HTTPConfig
	Forecast      ForecastConfig
	Expiry        ExpiryConfig
	Replenishment ReplenishmentConfig
	Scheduler     SchedulerConfig
	Telemetry     TelemetryConfig
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

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. An empty Host disables the
// forecast cache's Redis backend.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	CORSOrigins     []string
	// RateLimitRequests is the burst allowed per client on the sweep and
	// bulk recalculation routes within RateLimitWindow; zero disables limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// ForecastConfig holds the default reorder-point parameters
type ForecastConfig struct {
	LookbackDays     int
	LeadTimeDays     int
	SafetyMultiplier float64
	Floor            int64
	Seasonal         bool
}

// ExpiryConfig holds expiry classification thresholds in days
type ExpiryConfig struct {
	SoonDays int
	NearDays int
}

// ReplenishmentConfig holds reorder-point publisher settings
type ReplenishmentConfig struct {
	Concurrency int
	CacheTTL    time.Duration
	AutoApply   bool
}

// SchedulerConfig holds background sweep settings
type SchedulerConfig struct {
	Enabled        bool
	ExpiryInterval time.Duration
	ReorderHour    int
	ReorderMinute  int
	CheckInterval  time.Duration
	JobTimeout     time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          // Export traces and metrics
	CollectorEndpoint string        // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string        // Service name attached to every signal
	Insecure          bool          // Use insecure (non-TLS) connection (development only)
	ExportInterval    time.Duration // Metric export interval
	SamplingRatio     float64       // Trace sampling ratio, 0.0 to 1.0
	LogsEnabled       bool          // Also ship zap logs to the collector
	DBTracing         bool          // Trace gorm queries
	ProfilingEnabled  bool          // Stream profiles to Pyroscope
	ProfilingServer   string        // Pyroscope server address
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOCK_ prefix (e.g., STOCK_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/stockledger")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to true cannot be told apart from "unset" after
	// decoding, so they get viper defaults instead of applyDefaults.
	v.SetDefault("forecast.seasonal", true)
	v.SetDefault("replenishment.auto_apply", true)
	v.SetDefault("telemetry.sampling_ratio", 1.0)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),

			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Forecast: ForecastConfig{
			LookbackDays:     v.GetInt("forecast.lookback_days"),
			LeadTimeDays:     v.GetInt("forecast.lead_time_days"),
			SafetyMultiplier: v.GetFloat64("forecast.safety_multiplier"),
			Floor:            v.GetInt64("forecast.floor"),
			Seasonal:         v.GetBool("forecast.seasonal"),
		},
		Expiry: ExpiryConfig{
			SoonDays: v.GetInt("expiry.soon_days"),
			NearDays: v.GetInt("expiry.near_days"),
		},
		Replenishment: ReplenishmentConfig{
			Concurrency: v.GetInt("replenishment.concurrency"),
			CacheTTL:    v.GetDuration("replenishment.cache_ttl"),
			AutoApply:   v.GetBool("replenishment.auto_apply"),
		},
		Scheduler: SchedulerConfig{
			Enabled:        v.GetBool("scheduler.enabled"),
			ExpiryInterval: v.GetDuration("scheduler.expiry_interval"),
			ReorderHour:    v.GetInt("scheduler.reorder_hour"),
			ReorderMinute:  v.GetInt("scheduler.reorder_minute"),
			CheckInterval:  v.GetDuration("scheduler.check_interval"),
			JobTimeout:     v.GetDuration("scheduler.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stockledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "stockledger"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
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
	if cfg.HTTP.WriteTimeout == 0 {
		// bulk recalculation can run for a while
		cfg.HTTP.WriteTimeout = 2 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if len(cfg.HTTP.CORSOrigins) == 0 {
		cfg.HTTP.CORSOrigins = []string{"*"}
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Forecast.LookbackDays == 0 {
		cfg.Forecast.LookbackDays = 90
	}
	if cfg.Forecast.LeadTimeDays == 0 {
		cfg.Forecast.LeadTimeDays = 7
	}
	if cfg.Forecast.SafetyMultiplier == 0 {
		cfg.Forecast.SafetyMultiplier = 1.5
	}
	if cfg.Forecast.Floor == 0 {
		cfg.Forecast.Floor = 10
	}
	if cfg.Expiry.SoonDays == 0 {
		cfg.Expiry.SoonDays = 7
	}
	if cfg.Expiry.NearDays == 0 {
		cfg.Expiry.NearDays = 30
	}
	if cfg.Replenishment.Concurrency == 0 {
		cfg.Replenishment.Concurrency = 4
	}
	if cfg.Replenishment.CacheTTL == 0 {
		cfg.Replenishment.CacheTTL = 15 * time.Minute
	}
	if cfg.Scheduler.ExpiryInterval == 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
	if cfg.Scheduler.ReorderHour == 0 && cfg.Scheduler.ReorderMinute == 0 {
		cfg.Scheduler.ReorderHour = 2
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "stockledger"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.HTTP.MaxBodySize < 0 {
		return fmt.Errorf("http.max_body_size cannot be negative")
	}
	if c.HTTP.RateLimitRequests < 0 {
		return fmt.Errorf("http.rate_limit_requests cannot be negative")
	}

	if c.Forecast.LookbackDays < 1 {
		return fmt.Errorf("forecast.lookback_days must be at least 1")
	}
	if c.Forecast.LeadTimeDays < 1 {
		return fmt.Errorf("forecast.lead_time_days must be at least 1")
	}
	if c.Forecast.SafetyMultiplier <= 0 {
		return fmt.Errorf("forecast.safety_multiplier must be positive")
	}
	if c.Forecast.Floor < 0 {
		return fmt.Errorf("forecast.floor cannot be negative")
	}

	if c.Expiry.SoonDays < 0 {
		return fmt.Errorf("expiry.soon_days cannot be negative")
	}
	if c.Expiry.NearDays < c.Expiry.SoonDays {
		return fmt.Errorf("expiry.near_days (%d) cannot be less than expiry.soon_days (%d)",
			c.Expiry.NearDays, c.Expiry.SoonDays)
	}

	if c.Replenishment.Concurrency < 1 {
		return fmt.Errorf("replenishment.concurrency must be at least 1")
	}

	if c.Scheduler.ReorderHour < 0 || c.Scheduler.ReorderHour > 23 {
		return fmt.Errorf("scheduler.reorder_hour must be between 0 and 23, got %d", c.Scheduler.ReorderHour)
	}
	if c.Scheduler.ReorderMinute < 0 || c.Scheduler.ReorderMinute > 59 {
		return fmt.Errorf("scheduler.reorder_minute must be between 0 and 59, got %d", c.Scheduler.ReorderMinute)
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %g", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServer == "" {
		return fmt.Errorf("telemetry.profiling_server is required when profiling is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
