// Package config loads the ledger configuration. LEDGER_* environment
// variables override the YAML file, which overrides the defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // memory | sqlite | bigquery
	SQLitePath string `mapstructure:"sqlite_path"`
	LogMode    bool   `mapstructure:"log_mode"`
	ProjectID  string `mapstructure:"project_id"`
	Dataset    string `mapstructure:"dataset"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"` // empty: in-process locking
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AttachmentsConfig struct {
	Bucket string `mapstructure:"bucket"` // empty: attachments disabled
}

type LedgerConfig struct {
	InstallmentRemainder string `mapstructure:"installment_remainder"` // drop | last
	Currency             string `mapstructure:"currency"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Store       StoreConfig       `mapstructure:"store"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "data/ledger.db")
	v.SetDefault("store.log_mode", false)
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.dataset", "ledger")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("attachments.bucket", "")
	v.SetDefault("ledger.installment_remainder", "drop")
	v.SetDefault("ledger.currency", "BRL")
}

// Load reads configuration from path (e.g. "ledger.yaml"). With an empty path
// it looks for ledger.yaml in the working directory and falls back to
// defaults when none exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("ledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. LEDGER_STORE_DRIVER=memory
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Load: read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return &c, nil
}

// Validate rejects settings the binaries cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case "bigquery":
		if c.Store.ProjectID == "" || c.Store.Dataset == "" {
			return fmt.Errorf("store.project_id and store.dataset are required for the bigquery driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}

	switch c.Ledger.InstallmentRemainder {
	case "drop", "last":
	default:
		return fmt.Errorf("unknown ledger.installment_remainder %q", c.Ledger.InstallmentRemainder)
	}
	return nil
}
