package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	History  HistoryConfig  `mapstructure:"history" validate:"required"`
	Events   EventsConfig   `mapstructure:"events"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json console"`

	// AllowedOrigins lists the origins browsers may call the API from
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Log formats
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// QueueConfig contains the job queue and status stream settings.
type QueueConfig struct {
	CompletedLimit      int           `mapstructure:"completed_limit" validate:"required,gt=0"`
	SnapshotRecentLimit int           `mapstructure:"snapshot_recent_limit" validate:"required,gt=0"`
	BroadcastInterval   time.Duration `mapstructure:"broadcast_interval" validate:"required,gt=0"`
	ProgressBuffer      int           `mapstructure:"progress_buffer" validate:"required,gt=0"`
}

// History backends
const (
	HistoryBackendFile     = "file"
	HistoryBackendPostgres = "postgres"
	HistoryBackendRedis    = "redis"
)

// HistoryConfig selects and configures the durable record store.
type HistoryConfig struct {
	Backend       string `mapstructure:"backend" validate:"required,oneof=file postgres redis"`
	Path          string `mapstructure:"path" validate:"required_if=Backend file"`
	MaxRecords    int    `mapstructure:"max_records" validate:"required,gt=0"`
	DatabaseURL   string `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisKey      string `mapstructure:"redis_key"`
}

// EventsConfig configures the optional NATS lifecycle event bridge.
// An empty NATSURL disables it.
type EventsConfig struct {
	NATSURL string `mapstructure:"nats_url" validate:"omitempty,url"`
	Subject string `mapstructure:"subject" validate:"required_with=NATSURL"`
}

// PipelineConfig holds the external commands that download and transcribe
// episodes.
type PipelineConfig struct {
	DownloadCommand   string `mapstructure:"download_command"`
	TranscribeCommand string `mapstructure:"transcribe_command"`
	WorkDir           string `mapstructure:"work_dir" validate:"required"`
}
