package config

import (
	"fmt"
	"time"

	"sightline/internal/logger"

	"github.com/spf13/viper"
)

// Config represents the complete server configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	API         APIConfig         `mapstructure:"api"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Screenshots ScreenshotsConfig `mapstructure:"screenshots"`
	Log         logger.Config     `mapstructure:"log"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// APIConfig represents the API configuration
type APIConfig struct {
	// ClientSecret gates the ingestion endpoints (X-Client-Secret header)
	ClientSecret string `mapstructure:"client_secret"`
	// AdminToken gates the query surface (Authorization: Bearer)
	AdminToken string `mapstructure:"admin_token"`
}

// StorageConfig represents the record store configuration
type StorageConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`

	// Data retention; zero retention keeps records forever
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`

	// Agents with no report within this window are marked offline
	OfflineThreshold time.Duration `mapstructure:"offline_threshold"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// ScreenshotsConfig represents the screenshot blob area configuration
type ScreenshotsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoadConfig loads server configuration from file
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set defaults
	setDefaults(&config)

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}

	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}

	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}

	if config.Server.IdleTimeout == 0 {
		config.Server.IdleTimeout = 120 * time.Second
	}

	if config.Storage.URI == "" {
		config.Storage.URI = "mongodb://localhost:27017"
	}

	if config.Storage.Database == "" {
		config.Storage.Database = "sightline"
	}

	if config.Storage.ConnectTimeout == 0 {
		config.Storage.ConnectTimeout = 5 * time.Second
	}

	if config.Storage.QueryTimeout == 0 {
		config.Storage.QueryTimeout = 10 * time.Second
	}

	if config.Storage.PruneInterval == 0 {
		config.Storage.PruneInterval = 24 * time.Hour
	}

	if config.Storage.OfflineThreshold == 0 {
		config.Storage.OfflineThreshold = 5 * time.Minute
	}

	if config.Storage.SweepInterval == 0 {
		config.Storage.SweepInterval = time.Minute
	}

	config.Log.SetDefaults()
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.API.ClientSecret == "" {
		return fmt.Errorf("api.client_secret is required")
	}

	if config.Screenshots.Dir == "" {
		return fmt.Errorf("screenshots.dir is required")
	}

	if config.Storage.Retention < 0 {
		return fmt.Errorf("storage.retention must not be negative")
	}

	return nil
}
