package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults applied before files and environment are read.
var defaults = map[string]interface{}{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.log_format":       "json",
	"server.shutdown_timeout": "10s",
	"container.path":          "data.json.enc",
	"container.source":        "sample-data.json",
	"unlock.worker_count":     2,
	"unlock.queue_size":       16,
	"unlock.timeout":          "30s",
	"session.seed":            0,
	"session.max_sessions":    1000,
	"session.idle_timeout":    "30m",
}

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit YAML file. When empty, config.yaml is looked
	// up in ConfigDirs and its absence is not an error.
	ConfigFile string
	// ConfigDirs are searched for config.yaml when ConfigFile is empty.
	ConfigDirs []string
	// EnvFile is a dotenv file loaded into the process environment. Variables
	// already set are not overridden. A missing file is ignored.
	EnvFile string
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadWithOptions(Options{
		ConfigDirs: []string{"."},
		EnvFile:    ".env",
	})
}

// LoadWithOptions is Load with explicit file locations.
func LoadWithOptions(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	} else if len(opts.ConfigDirs) > 0 {
		v.SetConfigName("config")
		for _, dir := range opts.ConfigDirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
