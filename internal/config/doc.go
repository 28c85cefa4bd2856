// Package config defines the application configuration structure and loads
// it from environment variables and optional YAML config files. Environment
// variables use the TRANSLATEQ_ prefix and take precedence over file values.
package config
