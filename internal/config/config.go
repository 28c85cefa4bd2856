package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Translator TranslatorConfig `mapstructure:"translator" validate:"required"`
	Defaults   DefaultsConfig   `mapstructure:"defaults" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the embedded database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file.
	Path string `mapstructure:"path" validate:"required"`

	// FilesDir is where imported result attachments are stored.
	FilesDir string `mapstructure:"files_dir" validate:"required"`
}

// TranslatorConfig contains the remote translation service settings.
type TranslatorConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	AuthKey        string        `mapstructure:"auth_key" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"required"`
	BatchSize      int           `mapstructure:"batch_size" validate:"required,gt=0"`
}

// DefaultsConfig contains the job configuration applied to new tasks when a
// submission carries no overrides.
type DefaultsConfig struct {
	TargetLanguage       string `mapstructure:"target_language" validate:"required"`
	TranslateModel       string `mapstructure:"translate_model" validate:"required"`
	TranslateMode        string `mapstructure:"translate_mode" validate:"required,oneof=dual translation all"`
	EnhanceCompatibility bool   `mapstructure:"enhance_compatibility"`
}
