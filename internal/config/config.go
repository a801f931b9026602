// Package config loads runtime settings from electripro.yaml, the
// environment (ELECTRIPRO_* variables) and built-in defaults, in that order
// of precedence from lowest to highest: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/electripro/electripro/internal/backup"
	"github.com/electripro/electripro/internal/remote"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// ELECTRIPRO_REMOTE_DRIVER for remote.driver.
const EnvPrefix = "ELECTRIPRO"

// Config holds every runtime setting.
type Config struct {
	DataDir string       `mapstructure:"data_dir"`
	Cache   CacheConfig  `mapstructure:"cache"`
	Remote  RemoteConfig `mapstructure:"remote"`
	Outbox  OutboxConfig `mapstructure:"outbox"`
	Backup  BackupConfig `mapstructure:"backup"`
	Log     LogConfig    `mapstructure:"log"`
	Serve   ServeConfig  `mapstructure:"serve"`
}

type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// RemoteConfig selects the remote store. An empty driver runs local-only.
type RemoteConfig struct {
	Driver   string         `mapstructure:"driver"`
	DSN      string         `mapstructure:"dsn"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
}

type DynamoDBConfig struct {
	Region      string `mapstructure:"region"`
	Endpoint    string `mapstructure:"endpoint"`
	TablePrefix string `mapstructure:"table_prefix"`
}

type OutboxConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type BackupConfig struct {
	Dir string   `mapstructure:"dir"`
	S3  S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
	Prefix    string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type ServeConfig struct {
	Port           int           `mapstructure:"port"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
	Inbox          string        `mapstructure:"inbox"`
}

// DefaultDataDir is $HOME/.electripro, or .electripro when there is no
// home directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".electripro"
	}
	return filepath.Join(home, ".electripro")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("cache.path", "")
	v.SetDefault("remote.driver", remote.DriverNone)
	v.SetDefault("remote.dsn", "")
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.dynamodb.region", "")
	v.SetDefault("remote.dynamodb.endpoint", "")
	v.SetDefault("remote.dynamodb.table_prefix", "electripro_")
	v.SetDefault("outbox.interval", 250*time.Millisecond)
	v.SetDefault("backup.dir", "")
	v.SetDefault("backup.s3.bucket", "")
	v.SetDefault("backup.s3.region", "")
	v.SetDefault("backup.s3.endpoint", "")
	v.SetDefault("backup.s3.path_style", false)
	v.SetDefault("backup.s3.prefix", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.reload_interval", 5*time.Minute)
	v.SetDefault("serve.inbox", "")
}

// Load reads the configuration. When file is empty, electripro.yaml is
// looked up in the working directory and then in the default data
// directory; a missing file is not an error. An explicit file must exist.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("electripro")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Remote.Driver {
	case remote.DriverNone, remote.DriverDynamoDB:
	case remote.DriverPostgres, remote.DriverLibSQL, remote.DriverSQLite:
		if c.Remote.DSN == "" {
			return fmt.Errorf("remote.dsn is required for driver %q", c.Remote.Driver)
		}
	default:
		return fmt.Errorf("unknown remote.driver %q", c.Remote.Driver)
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port %d out of range", c.Serve.Port)
	}
	return nil
}

// CachePath is cache.path, defaulting to cache.db in the data directory.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.DataDir, "cache.db")
}

// BackupDir is backup.dir, defaulting to backups in the data directory.
func (c *Config) BackupDir() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(c.DataDir, "backups")
}

// InboxDir is serve.inbox, defaulting to inbox in the data directory.
func (c *Config) InboxDir() string {
	if c.Serve.Inbox != "" {
		return c.Serve.Inbox
	}
	return filepath.Join(c.DataDir, "inbox")
}

// RemoteStoreConfig is the remote.Open configuration for tables.
func (c *Config) RemoteStoreConfig(tables []string) remote.Config {
	return remote.Config{
		Driver: c.Remote.Driver,
		DSN:    c.Remote.DSN,
		Tables: tables,
		Dynamo: remote.DynamoConfig{
			Region:      c.Remote.DynamoDB.Region,
			Endpoint:    c.Remote.DynamoDB.Endpoint,
			TablePrefix: c.Remote.DynamoDB.TablePrefix,
		},
	}
}

// S3Configured reports whether backups can go to S3.
func (c *Config) S3Configured() bool {
	return c.Backup.S3.Bucket != ""
}

// S3TargetConfig is the backup.NewS3Target configuration.
func (c *Config) S3TargetConfig() backup.S3Config {
	return backup.S3Config{
		Bucket:    c.Backup.S3.Bucket,
		Region:    c.Backup.S3.Region,
		Endpoint:  c.Backup.S3.Endpoint,
		PathStyle: c.Backup.S3.PathStyle,
		Prefix:    c.Backup.S3.Prefix,
	}
}
