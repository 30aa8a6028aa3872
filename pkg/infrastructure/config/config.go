package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Planning PlanningConfig `mapstructure:"planning"`
	Output   OutputConfig   `mapstructure:"output"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	// Path of the sqlite file holding composition edges and the stock ledger
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type PlanningConfig struct {
	// IncludeOptional makes BOM explosion follow optional edges by default
	IncludeOptional bool `mapstructure:"include_optional"`
	// FailOnMissingRecipe turns the soft missing-recipe report into an error
	FailOnMissingRecipe bool `mapstructure:"fail_on_missing_recipe"`
}

type OutputConfig struct {
	Format    string `mapstructure:"format"`
	Directory string `mapstructure:"directory"`
}

// EnvPrefix namespaces environment overrides, e.g. FOODPLAN_LOG_LEVEL
const EnvPrefix = "FOODPLAN"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("database.path", "foodplan.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("planning.include_optional", false)
	v.SetDefault("planning.fail_on_missing_recipe", false)
	v.SetDefault("output.format", "text")
	v.SetDefault("output.directory", "")
}

// Load reads config.yaml from ./configs or the working directory, then applies
// FOODPLAN_* environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path; an empty path searches the default locations
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (expected debug, info, warn or error)", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (expected json or console)", c.Log.Format)
	}
	switch c.Output.Format {
	case "text", "json", "csv", "xlsx", "msgpack":
	default:
		return fmt.Errorf("invalid output format: %s (expected text, json, csv, xlsx or msgpack)", c.Output.Format)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1, got %d", c.Database.MaxOpenConns)
	}
	return nil
}
