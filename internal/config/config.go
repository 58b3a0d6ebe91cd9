package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultWorkoutSize      = 6
	DefaultRestSeconds      = 15
	DefaultTickInterval     = time.Second
	DefaultSessionTTL       = 24 * 7 * time.Hour
	DefaultCatalogCacheTTL  = 5 * time.Minute
	DefaultLoginRateLimit   = 15
	DefaultMigrationsPath   = "./migrations"
	DefaultTimezoneLocation = "UTC"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	MigrationsPath string `toml:"migrations_path"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`
	SessionTTLHours             int `toml:"session_ttl_hours"`

	// workout
	WorkoutSize         int    `toml:"workout_size"`
	DefaultRestSeconds  int    `toml:"default_rest_seconds"`
	TickIntervalMs      int    `toml:"tick_interval_ms"`
	CatalogCacheSeconds int    `toml:"catalog_cache_seconds"`
	Timezone            string `toml:"timezone"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the section for env,
// with defaults applied and validated.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}
	return FromToml(&t, env)
}

func FromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env [%s] missing", env)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WorkoutSize == 0 {
		c.WorkoutSize = DefaultWorkoutSize
	}
	if c.DefaultRestSeconds == 0 {
		c.DefaultRestSeconds = DefaultRestSeconds
	}
	if c.TickIntervalMs == 0 {
		c.TickIntervalMs = int(DefaultTickInterval / time.Millisecond)
	}
	if c.CatalogCacheSeconds == 0 {
		c.CatalogCacheSeconds = int(DefaultCatalogCacheTTL / time.Second)
	}
	if c.LoginRateLimitAllowedPerMin == 0 {
		c.LoginRateLimitAllowedPerMin = DefaultLoginRateLimit
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = int(DefaultSessionTTL / time.Hour)
	}
	if c.MigrationsPath == "" {
		c.MigrationsPath = DefaultMigrationsPath
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezoneLocation
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
}

func (c *Config) validate() error {
	if c.Port == 0 {
		return errors.New("port is required")
	}
	if c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDBName == "" {
		return errors.New("postgres host, port and db name are required")
	}
	if c.RedisHost == "" || c.RedisPort == "" {
		return errors.New("redis host and port are required")
	}
	if c.WorkoutSize < 0 {
		return fmt.Errorf("workout_size must be positive, got %d", c.WorkoutSize)
	}
	if c.DefaultRestSeconds < 0 {
		return fmt.Errorf("default_rest_seconds cannot be negative, got %d", c.DefaultRestSeconds)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone [%s]: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Location is the timezone used to decide what "today" is.
// validate already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
