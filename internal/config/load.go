package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// A local .env file is a convenience for development; absence is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRANSLATEQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8484)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.path", "data/translateq.db")
	v.SetDefault("database.files_dir", "data/files")

	v.SetDefault("translator.base_url", "https://api.example.com/v1")
	// Registered empty so AutomaticEnv can see the key; validation rejects
	// a missing value.
	v.SetDefault("translator.auth_key", "")
	v.SetDefault("translator.request_timeout", "30s")
	v.SetDefault("translator.retry_delay", "1s")
	v.SetDefault("translator.poll_interval", "3s")
	v.SetDefault("translator.batch_size", 6)

	v.SetDefault("defaults.target_language", "zh-CN")
	v.SetDefault("defaults.translate_model", "standard")
	v.SetDefault("defaults.translate_mode", "dual")
	v.SetDefault("defaults.enhance_compatibility", false)
}
