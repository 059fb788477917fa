package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendFailover = "failover"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	HTTP struct {
		Address             string  `yaml:"address"`
		ReadTimeoutSeconds  int     `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int     `yaml:"write_timeout_seconds"`
		RateLimitPerSecond  float64 `yaml:"rate_limit_per_second"`
		RateLimitBurst      int     `yaml:"rate_limit_burst"`
	} `yaml:"http"`

	Store struct {
		Backend string `yaml:"backend"`
		SQLite  struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Redis struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		FailoverRecoverySeconds int `yaml:"failover_recovery_seconds"`
	} `yaml:"store"`

	Catalog struct {
		Path string `yaml:"path"`
		// WatchSeconds > 0 reloads the file into the store when it changes.
		WatchSeconds int `yaml:"watch_seconds"`
	} `yaml:"catalog"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Kafka struct {
		Enabled    bool     `yaml:"enabled"`
		Brokers    []string `yaml:"brokers"`
		Topic      string   `yaml:"topic"`
		BufferSize int      `yaml:"buffer_size"`
		MaxRetries int      `yaml:"max_retries"`
	} `yaml:"kafka"`

	Dashboard struct {
		RecentLimit int `yaml:"recent_limit"`
		Months      int `yaml:"months"`
	} `yaml:"dashboard"`

	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if backend := cfg.StoreBackend(); backend == BackendSQLite || backend == BackendFailover {
		if err = os.MkdirAll(filepath.Dir(cfg.SQLitePath()), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate checks the values that have no sensible default.
func (c *Config) Validate() error {
	switch c.StoreBackend() {
	case BackendMemory, BackendSQLite:
	case BackendRedis, BackendFailover:
		if c.Store.Redis.Address == "" {
			return fmt.Errorf("store.redis.address is required for backend %q", c.StoreBackend())
		}
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}

	if c.HTTP.RateLimitPerSecond < 0 {
		return fmt.Errorf("http.rate_limit_per_second cannot be negative")
	}
	return nil
}

func (c *Config) StoreBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if backend == "" {
		return BackendSQLite
	}
	return backend
}

func (c *Config) SQLitePath() string {
	if c.Store.SQLite.Path == "" {
		return "data/grandresort.db"
	}
	return c.Store.SQLite.Path
}

func (c *Config) RedisPrefix() string {
	if c.Store.Redis.Prefix == "" {
		return "grandresort:"
	}
	return c.Store.Redis.Prefix
}

func (c *Config) FailoverRecovery() time.Duration {
	if c.Store.FailoverRecoverySeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Store.FailoverRecoverySeconds) * time.Second
}

func (c *Config) HTTPAddress() string {
	if c.HTTP.Address == "" {
		return ":8080"
	}
	return c.HTTP.Address
}

func (c *Config) ReadTimeout() time.Duration {
	if c.HTTP.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTP.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.HTTP.WriteTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTP.WriteTimeoutSeconds) * time.Second
}

// RateLimit returns requests per second and burst. Zero rate disables limiting.
func (c *Config) RateLimit() (float64, int) {
	burst := c.HTTP.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}
	return c.HTTP.RateLimitPerSecond, burst
}

// CatalogWatchInterval is zero when catalog reloading is off.
func (c *Config) CatalogWatchInterval() time.Duration {
	if c.Catalog.Path == "" || c.Catalog.WatchSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Catalog.WatchSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) BackupPath() string {
	if c.Backup.Path == "" {
		return "data/backups"
	}
	return c.Backup.Path
}

func (c *Config) PrometheusPort() int {
	if c.Monitoring.PrometheusPort == 0 {
		return 9090
	}
	return c.Monitoring.PrometheusPort
}

func (c *Config) DashboardRecentLimit() int {
	if c.Dashboard.RecentLimit <= 0 {
		return 10
	}
	return c.Dashboard.RecentLimit
}

func (c *Config) DashboardMonths() int {
	if c.Dashboard.Months <= 0 {
		return 6
	}
	return c.Dashboard.Months
}
