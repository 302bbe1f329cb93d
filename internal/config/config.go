package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Container ContainerConfig `mapstructure:"container" validate:"required"`
	Unlock    UnlockConfig    `mapstructure:"unlock" validate:"required"`
	Session   SessionConfig   `mapstructure:"session"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"required,oneof=json text"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// ContainerConfig locates the encrypted container and the plaintext it is
// built from.
type ContainerConfig struct {
	// Path is the encrypted container served to study clients
	Path string `mapstructure:"path" validate:"required"`
	// Source is the plaintext JSON the producer encrypts
	Source string `mapstructure:"source" validate:"required"`
}

// UnlockConfig sizes the worker pool that runs key derivation and decryption.
type UnlockConfig struct {
	WorkerCount int           `mapstructure:"worker_count" validate:"gt=0,lte=64"`
	QueueSize   int           `mapstructure:"queue_size" validate:"gt=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// SessionConfig controls study sessions.
type SessionConfig struct {
	// Seed fixes the shuffle order for every session; 0 means random
	Seed        int64         `mapstructure:"seed"`
	MaxSessions int           `mapstructure:"max_sessions" validate:"gt=0"`
	// IdleTimeout is how long an untouched session is kept before eviction
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
}
