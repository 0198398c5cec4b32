package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sightline/internal/logger"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config represents agent configuration
type Config struct {
	Agent AgentConfig   `mapstructure:"agent"`
	Log   logger.Config `mapstructure:"log"`
}

// AgentConfig represents agent configuration
type AgentConfig struct {
	ID                 string        `mapstructure:"id"`
	DisplayName        string        `mapstructure:"display_name"`
	ReportInterval     time.Duration `mapstructure:"report_interval"`
	ScreenshotInterval time.Duration `mapstructure:"screenshot_interval"`
	Server             ServerConfig  `mapstructure:"server"`
}

// ServerConfig represents the collector endpoint configuration
type ServerConfig struct {
	Address           string        `mapstructure:"address"`
	ClientSecret      string        `mapstructure:"client_secret"`
	ReportTimeout     time.Duration `mapstructure:"report_timeout"`
	ScreenshotTimeout time.Duration `mapstructure:"screenshot_timeout"`
}

// LoadConfig loads the agent configuration from file
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	// Add search paths
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/sightline")
	v.AddConfigPath("/etc/sightline")
	// Add executable directory
	ex, err := os.Executable()
	if err != nil {
		return nil, err
	}
	v.AddConfigPath(filepath.Dir(ex))

	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set defaults if not specified
	setDefaults(&config)

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values if not specified
func setDefaults(config *Config) {
	if config.Agent.ID == "" {
		config.Agent.ID = uuid.New().String()
	}

	if config.Agent.DisplayName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown-" + config.Agent.ID[:8]
		}
		config.Agent.DisplayName = hostname
	}

	if config.Agent.ReportInterval == 0 {
		config.Agent.ReportInterval = 60 * time.Second
	}

	if config.Agent.ScreenshotInterval == 0 {
		config.Agent.ScreenshotInterval = 300 * time.Second
	}

	if config.Agent.Server.ReportTimeout == 0 {
		config.Agent.Server.ReportTimeout = 15 * time.Second
	}

	if config.Agent.Server.ScreenshotTimeout == 0 {
		config.Agent.Server.ScreenshotTimeout = 30 * time.Second
	}

	config.Log.SetDefaults()
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Agent.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}

	if config.Agent.Server.ClientSecret == "" {
		return fmt.Errorf("server client_secret is required")
	}

	if config.Agent.ReportInterval < time.Second {
		return fmt.Errorf("report_interval must be at least 1s")
	}

	if config.Agent.ScreenshotInterval < config.Agent.ReportInterval {
		return fmt.Errorf("screenshot_interval must not be shorter than report_interval")
	}

	return nil
}
