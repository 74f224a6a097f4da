// Package config provides configuration management for the allocator.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/logging"
	"zerodha-allocator/internal/models"
)

// Price sources.
const (
	PriceSourceStatic = "static"
	PriceSourceKite   = "kite"
)

// Config holds all application configuration.
type Config struct {
	Allocation  AllocationConfig  `mapstructure:"allocation"`
	Prices      PricesConfig      `mapstructure:"prices"`
	Store       StoreConfig       `mapstructure:"store"`
	Logging     logging.LogConfig `mapstructure:"logging"`
	Credentials Credentials       `mapstructure:"-"` // Loaded separately
	Dir         string            `mapstructure:"-"`
}

// AllocationConfig holds engine defaults applied when a flag is not given.
type AllocationConfig struct {
	DefaultMode                string `mapstructure:"default_mode"`
	Decimals                   int    `mapstructure:"decimals"`
	MinQtyPerRow               int64  `mapstructure:"min_qty_per_row"`
	RequireWeightsSumTo100     bool   `mapstructure:"require_weights_sum_to_100"`
	OptimizeWithRemainingFunds bool   `mapstructure:"optimize_with_remaining_funds"`
}

// PricesConfig selects where live prices come from.
type PricesConfig struct {
	Source          string `mapstructure:"source"` // "static", "kite"
	DefaultExchange string `mapstructure:"default_exchange"`
}

// StoreConfig locates the saved-plan database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Credentials holds API credentials.
type Credentials struct {
	Zerodha ZerodhaCredentials `mapstructure:"zerodha"`
}

// ZerodhaCredentials holds Kite Connect credentials.
type ZerodhaCredentials struct {
	APIKey      string `mapstructure:"api_key"`
	AccessToken string `mapstructure:"access_token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/zerodha-allocator"
	}
	return filepath.Join(home, ".config", "zerodha-allocator")
}

// Default returns the configuration used when no file exists.
func Default(configDir string) *Config {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	logCfg := logging.DefaultLogConfig()
	logCfg.FilePath = filepath.Join(configDir, "logs", "allocator.log")
	return &Config{
		Allocation: AllocationConfig{
			DefaultMode:                string(models.WeightDriven),
			Decimals:                   2,
			OptimizeWithRemainingFunds: true,
		},
		Prices: PricesConfig{
			Source:          PriceSourceStatic,
			DefaultExchange: string(models.NSE),
		},
		Store:   StoreConfig{Path: filepath.Join(configDir, "allocator.db")},
		Logging: logCfg,
		Dir:     configDir,
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default(configDir)

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// Set defaults
	v.SetDefault("allocation.default_mode", cfg.Allocation.DefaultMode)
	v.SetDefault("allocation.decimals", cfg.Allocation.Decimals)
	v.SetDefault("allocation.min_qty_per_row", cfg.Allocation.MinQtyPerRow)
	v.SetDefault("allocation.require_weights_sum_to_100", cfg.Allocation.RequireWeightsSumTo100)
	v.SetDefault("allocation.optimize_with_remaining_funds", cfg.Allocation.OptimizeWithRemainingFunds)
	v.SetDefault("prices.source", cfg.Prices.Source)
	v.SetDefault("prices.default_exchange", cfg.Prices.DefaultExchange)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.file_path", cfg.Logging.FilePath)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplate(configDir, "config.toml", configTemplate, 0644)
		}
		return err
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Credentials are optional until a live price source is used.
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		cfg.Credentials.Zerodha.APIKey = v
	}
	if v := os.Getenv("ZERODHA_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.Zerodha.AccessToken = v
	}
	if v := os.Getenv("ALLOCATOR_PRICE_SOURCE"); v != "" {
		cfg.Prices.Source = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch models.Mode(c.Allocation.DefaultMode) {
	case models.WeightDriven, models.AmountDriven, models.QtyDriven:
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid,
			"invalid default_mode %q (must be weight, amount or qty)", c.Allocation.DefaultMode)
	}

	if c.Allocation.Decimals < 0 || c.Allocation.Decimals > 8 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "decimals must be between 0 and 8")
	}
	if c.Allocation.MinQtyPerRow < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "min_qty_per_row must be non-negative")
	}

	switch c.Prices.Source {
	case PriceSourceStatic, PriceSourceKite:
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid,
			"invalid price source %q (must be 'static' or 'kite')", c.Prices.Source)
	}

	if c.Store.Path == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "store.path must be set")
	}

	return nil
}

// HasKiteCredentials reports whether live quotes can be requested.
func (c *Config) HasKiteCredentials() bool {
	return c.Credentials.Zerodha.APIKey != "" && c.Credentials.Zerodha.AccessToken != ""
}

// AllocationOptions returns the configured engine defaults.
func (c *Config) AllocationOptions() models.AllocationOptions {
	return models.AllocationOptions{
		RequireWeightsSumTo100:     c.Allocation.RequireWeightsSumTo100,
		MinQtyPerRow:               c.Allocation.MinQtyPerRow,
		OptimizeWithRemainingFunds: c.Allocation.OptimizeWithRemainingFunds,
	}
}
