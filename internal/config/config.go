// Package config loads node configuration from defaults, an optional TOML
// file and ARCD_-prefixed environment variables, in that priority order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full node configuration.
type Config struct {
	LogLevel uint32 `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	DatabasePath string `mapstructure:"database_path"`

	NodeDB  NodeDBConfig  `mapstructure:"node_db"`
	Genesis GenesisConfig `mapstructure:"genesis"`

	// CloseInterval is the standalone-mode close cadence in seconds.
	CloseInterval uint32 `mapstructure:"close_interval"`
}

// NodeDBConfig selects and sizes the node store backend.
type NodeDBConfig struct {
	Type      string `mapstructure:"type"` // memory, pebble or leveldb
	Path      string `mapstructure:"path"`
	CacheSize int    `mapstructure:"cache_size"`
}

// GenesisConfig parameterizes the first ledger.
type GenesisConfig struct {
	MasterSeed          string `mapstructure:"master_seed"`
	TotalDrops          uint64 `mapstructure:"total_drops"`
	BaseFee             uint64 `mapstructure:"base_fee"`
	ReserveBase         uint64 `mapstructure:"reserve_base"`
	ReserveIncrement    uint64 `mapstructure:"reserve_increment"`
	CloseTimeResolution uint8  `mapstructure:"close_time_resolution"`
}

// LoadConfig loads configuration. An empty path skips the file stage and
// uses defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("ARCD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", 4) // info
	v.SetDefault("log_json", false)
	v.SetDefault("database_path", "data")
	v.SetDefault("close_interval", 10)

	v.SetDefault("node_db.type", "pebble")
	v.SetDefault("node_db.path", "data/nodestore")
	v.SetDefault("node_db.cache_size", 16384)

	v.SetDefault("genesis.master_seed", "masterpassphrase")
	v.SetDefault("genesis.total_drops", uint64(100_000_000_000_000_000))
	v.SetDefault("genesis.base_fee", uint64(10))
	v.SetDefault("genesis.reserve_base", uint64(10_000_000))
	v.SetDefault("genesis.reserve_increment", uint64(2_000_000))
	v.SetDefault("genesis.close_time_resolution", 10)
}

func validate(cfg *Config) error {
	switch cfg.NodeDB.Type {
	case "memory", "pebble", "leveldb":
	default:
		return fmt.Errorf("unknown node_db.type %q", cfg.NodeDB.Type)
	}
	if cfg.NodeDB.CacheSize <= 0 {
		return fmt.Errorf("node_db.cache_size must be positive")
	}
	if cfg.Genesis.MasterSeed == "" {
		return fmt.Errorf("genesis.master_seed cannot be empty")
	}
	if cfg.Genesis.TotalDrops == 0 {
		return fmt.Errorf("genesis.total_drops cannot be zero")
	}
	return nil
}
