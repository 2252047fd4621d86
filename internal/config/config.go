package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"invoicer/internal/logger"
)

// Config holds the process-wide configuration, read once at startup from
// environment variables (optionally layered over a .env / config.env file).
type Config struct {
	// Batch locations
	InputPath   string // drop folder holding pending batch files
	OutputPath  string // where rendered invoice PDFs are written
	ArchiveDir  string // subdirectory of InputPath for processed batches
	ErrorLog    string // append-only error log file
	PolicyFile  string // optional YAML file overriding the built-in rate tables

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration via Viper. Environment variables take priority
// over config files; missing values fall back to defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Optional config file, ignored when absent
	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("INVOICE_INPUT_PATH", "./pending")
	v.SetDefault("INVOICE_OUTPUT_PATH", "./processed")
	v.SetDefault("INVOICE_ARCHIVE_DIR", "processed")
	v.SetDefault("INVOICE_ERROR_LOG", "./invoice_errors.log")
	v.SetDefault("INVOICE_POLICY_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00")
	v.SetDefault("LOG_OUTPUT", "stderr")

	cfg := &Config{
		InputPath:     v.GetString("INVOICE_INPUT_PATH"),
		OutputPath:    v.GetString("INVOICE_OUTPUT_PATH"),
		ArchiveDir:    v.GetString("INVOICE_ARCHIVE_DIR"),
		ErrorLog:      v.GetString("INVOICE_ERROR_LOG"),
		PolicyFile:    v.GetString("INVOICE_POLICY_FILE"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		LogTimeFormat: v.GetString("LOG_TIME_FORMAT"),
		LogOutput:     v.GetString("LOG_OUTPUT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("INVOICE_INPUT_PATH must not be empty")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("INVOICE_OUTPUT_PATH must not be empty")
	}
	if c.ArchiveDir == "" {
		return fmt.Errorf("INVOICE_ARCHIVE_DIR must not be empty")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}
