package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigPathEnv names the environment variable pointing at a TOML config file
	ConfigPathEnv     = "CRONKEEPER_CONFIG"
	defaultConfigFile = "cronkeeper.toml"
	envPrefix         = "CRONKEEPER"
)

// Storage drivers
const (
	StorageSQLite   = "sqlite"
	StorageDynamoDB = "dynamodb"
)

// AppConfig is the full service configuration
type AppConfig struct {
	Server    ServerSection    `mapstructure:"server"`
	Log       LogSection       `mapstructure:"log"`
	Scheduler SchedulerSection `mapstructure:"scheduler"`
	Storage   StorageSection   `mapstructure:"storage"`
	SQLite    SQLiteSection    `mapstructure:"sqlite"`
	DynamoDB  DynamoDBSection  `mapstructure:"dynamodb"`
	Redis     RedisSection     `mapstructure:"redis"`
	Cache     CacheSection     `mapstructure:"cache"`
	SQS       SQSSection       `mapstructure:"sqs"`
}

type ServerSection struct {
	Port                   string `mapstructure:"port"`
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

type LogSection struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type SchedulerSection struct {
	Timezone               string `mapstructure:"timezone"`
	DispatchTimeoutSeconds int    `mapstructure:"dispatch_timeout_seconds"`
	HistoryLimit           int    `mapstructure:"history_limit"`
}

type StorageSection struct {
	Driver string `mapstructure:"driver"`
}

type SQLiteSection struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

type DynamoDBSection struct {
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	JobsTable     string `mapstructure:"jobs_table"`
	CountersTable string `mapstructure:"counters_table"`
	CreateTables  bool   `mapstructure:"create_tables"`
}

type RedisSection struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheSection configures the in-memory cache used when Redis is disabled
type CacheSection struct {
	MaxKeys int `mapstructure:"max_keys"`
}

type SQSSection struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	QueueURL string `mapstructure:"queue_url"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.service_name", "cronkeeper")
	v.SetDefault("server.version", "1.0.0")
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.dispatch_timeout_seconds", 30)
	v.SetDefault("scheduler.history_limit", 50)

	v.SetDefault("storage.driver", StorageSQLite)

	v.SetDefault("sqlite.path", "data/cronkeeper.db")
	v.SetDefault("sqlite.busy_timeout_ms", 5000)

	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("dynamodb.jobs_table", "cron_jobs")
	v.SetDefault("dynamodb.counters_table", "cron_job_counters")
	v.SetDefault("dynamodb.create_tables", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.max_keys", 4096)

	v.SetDefault("sqs.enabled", false)
	v.SetDefault("sqs.region", "us-east-1")
	v.SetDefault("sqs.endpoint", "")
	v.SetDefault("sqs.queue_url", "")
}

// NewViper builds the viper instance: defaults, then the optional TOML file,
// then CRONKEEPER_* environment variables
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	path := os.Getenv(ConfigPathEnv)
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return v, nil
}

// Load reads the configuration from file and environment
func Load() (*AppConfig, error) {
	v, err := NewViper()
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case StorageSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			errs = append(errs, errors.New("sqlite.path is required for the sqlite driver"))
		}
	case StorageDynamoDB:
		if c.DynamoDB.JobsTable == "" || c.DynamoDB.CountersTable == "" {
			errs = append(errs, errors.New("dynamodb.jobs_table and dynamodb.counters_table are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be %q or %q, got %q",
			StorageSQLite, StorageDynamoDB, c.Storage.Driver))
	}

	if c.SQS.Enabled && c.SQS.QueueURL == "" {
		errs = append(errs, errors.New("sqs.queue_url is required when sqs is enabled"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
