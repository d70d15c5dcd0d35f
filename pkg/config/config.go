package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	API      APIConfig
	Monitor  MonitorConfig
	Callback CallbackConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LOCALBUY_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"LOCALBUY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOCALBUY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"LOCALBUY_DB_DRIVER" default:"sqlite"`
	// Path is the sqlite database file backing the local cart.
	Path string `envconfig:"LOCALBUY_DB_PATH" default:"localbuy.db"`
	// DSN is only consulted when Driver is postgres.
	DSN         string `envconfig:"LOCALBUY_DB_DSN"`
	AutoMigrate bool   `envconfig:"LOCALBUY_DB_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"LOCALBUY_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"LOCALBUY_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"LOCALBUY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOCALBUY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch db.Driver {
	case DBDriverSQLite:
		if strings.TrimSpace(db.Path) == "" {
			return fmt.Errorf("%s is required for the sqlite driver", EnvDBPath)
		}
		return nil
	case DBDriverPostgres:
		if strings.TrimSpace(db.DSN) == "" {
			return fmt.Errorf("%s is required for the postgres driver", EnvDBDSN)
		}
		return nil
	default:
		return fmt.Errorf("database driver must be %q or %q", DBDriverSQLite, DBDriverPostgres)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"LOCALBUY_REDIS_URL"`
	Address      string        `envconfig:"LOCALBUY_REDIS_ADDR"`
	Password     string        `envconfig:"LOCALBUY_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOCALBUY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOCALBUY_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"LOCALBUY_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"LOCALBUY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOCALBUY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOCALBUY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint is configured. The client runs
// without redis; the monitor then falls back to in-memory dedupe only.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type APIConfig struct {
	BaseURL   string        `envconfig:"LOCALBUY_API_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"LOCALBUY_API_TIMEOUT" default:"15s"`
	UserAgent string        `envconfig:"LOCALBUY_API_USER_AGENT" default:"localbuy-client"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvAPIBaseURL)
	}
	return nil
}

type MonitorConfig struct {
	PollInterval    time.Duration `envconfig:"LOCALBUY_MONITOR_POLL_INTERVAL" default:"30s"`
	SweepLockTTL    time.Duration `envconfig:"LOCALBUY_MONITOR_SWEEP_LOCK_TTL" default:"2m"`
	NotifyDedupeTTL time.Duration `envconfig:"LOCALBUY_MONITOR_NOTIFY_DEDUPE_TTL" default:"72h"`
}

type CallbackConfig struct {
	Addr            string        `envconfig:"LOCALBUY_CALLBACK_ADDR" default:"127.0.0.1:8941"`
	AllowedOrigins  []string      `envconfig:"LOCALBUY_CALLBACK_ALLOWED_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"LOCALBUY_CALLBACK_SHUTDOWN_TIMEOUT" default:"5s"`
}
