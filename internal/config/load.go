package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the loader reads,
// e.g. PODSCRIBE_SERVER_PORT for server.port.
const EnvPrefix = "PODSCRIBE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", LogFormatJSON)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("queue.completed_limit", 50)
	v.SetDefault("queue.snapshot_recent_limit", 10)
	v.SetDefault("queue.broadcast_interval", "2s")
	v.SetDefault("queue.progress_buffer", 64)

	v.SetDefault("history.backend", HistoryBackendFile)
	v.SetDefault("history.path", "data/history.json")
	v.SetDefault("history.max_records", 100)
	v.SetDefault("history.database_url", "")
	v.SetDefault("history.redis_addr", "")
	v.SetDefault("history.redis_password", "")
	v.SetDefault("history.redis_key", "podscribe:history")

	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject", "podscribe.jobs")

	v.SetDefault("pipeline.download_command", "")
	v.SetDefault("pipeline.transcribe_command", "")
	v.SetDefault("pipeline.work_dir", "data/work")
}

// Load configuration from environment variables and optionally a
// config.yaml in the working directory or ./config.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFile loads configuration from the given file plus environment
// variables. The file must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
